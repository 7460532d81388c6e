package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/tests/testutil"
)

func TestDefaultCategoriesSeeded(t *testing.T) {
	s := testutil.NewTestStore(t)

	categories, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCategories, categories)
}

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	created, err := s.CreateCategory(ctx, model.Category{Name: " Errands "})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Errands", created.Name)
	assert.NotEmpty(t, created.Color)
	assert.NotEmpty(t, created.Icon)
	assert.False(t, created.UpdatedAt.IsZero())

	created.Color = "#000000"
	created.Name = "Chores"
	require.NoError(t, s.UpdateCategory(ctx, *created))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 4)
	assert.Equal(t, "Chores", categories[3].Name)
	assert.Equal(t, "#000000", categories[3].Color)
	assert.False(t, categories[3].UpdatedAt.Before(created.UpdatedAt))

	require.NoError(t, s.DeleteCategory(ctx, created.ID))
	categories, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3)

	assert.True(t, model.IsNotFound(s.DeleteCategory(ctx, created.ID)))
	assert.True(t, model.IsNotFound(s.UpdateCategory(ctx, model.Category{ID: "nope", Name: "x"})))

	_, err = s.CreateCategory(ctx, model.Category{Name: ""})
	assert.True(t, model.IsValidation(err))
}

func TestDeleteCategoryLeavesDanglingReference(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	todo, err := s.CreateTodo(ctx, model.TodoDraft{Title: "report", CategoryID: ptr("1")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, "1"))

	stored, err := s.GetTodo(ctx, todo.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CategoryID)
	assert.Equal(t, "1", *stored.CategoryID)
}
