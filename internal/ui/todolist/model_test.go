package todolist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/tests/testutil"
)

func TestLoadActiveAndTrash(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	todos := testutil.CreateTodos(t, s, "a", "b", "c")
	require.NoError(t, s.SoftDeleteTodo(ctx, todos[1].ID))

	active := New(s, false, 80, 20)
	msg := active.Load()()
	loaded, ok := msg.(LoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.False(t, loaded.Trash)
	assert.Len(t, loaded.Todos, 2)
	assert.Len(t, loaded.Categories, len(model.DefaultCategories))

	active, _ = active.Update(loaded)
	assert.Equal(t, 2, active.Len())
	sel, ok := active.SelectedTodo()
	require.True(t, ok)
	assert.Equal(t, loaded.Todos[0].ID, sel.ID)
	assert.Len(t, active.Categories(), len(model.DefaultCategories))

	trash := New(s, true, 80, 20)
	trash, _ = trash.Update(active.Load()())
	assert.Equal(t, 0, trash.Len(), "active payload must not land in the trash list")

	trash, _ = trash.Update(trash.Load()())
	require.Equal(t, 1, trash.Len())
	sel, _ = trash.SelectedTodo()
	assert.Equal(t, todos[1].ID, sel.ID)
}

func TestEmptyState(t *testing.T) {
	s := testutil.NewTestStore(t)

	m := New(s, true, 80, 20)
	m, _ = m.Update(m.Load()())
	assert.Contains(t, m.View(), "Trash is empty.")

	_, ok := m.SelectedTodo()
	assert.False(t, ok)
}

func TestSetFilterKeepsFullIndex(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.CreateTodos(t, s, "a", "b", "c")
	all, err := s.ListActive(ctx)
	require.NoError(t, err)
	_, err = s.ToggleTodo(ctx, all[0].ID)
	require.NoError(t, err)

	m := New(s, false, 80, 20)
	m, _ = m.Update(m.Load()())
	require.Equal(t, 3, m.Len())

	m.SetFilter(model.FilterPending)
	assert.Equal(t, model.FilterPending, m.Filter())
	require.Equal(t, 2, m.Len())
	assert.Equal(t, 1, m.FullIndex(0))
	assert.Equal(t, 2, m.FullIndex(1))
	assert.Equal(t, -1, m.FullIndex(2))

	m, _ = m.Update(m.Load()())
	assert.Equal(t, 2, m.Len(), "reload keeps the filter")

	m.SetFilter(model.FilterToday)
	assert.Equal(t, 0, m.Len())
	assert.Contains(t, m.View(), "No today todos.")

	trash := New(s, true, 80, 20)
	assert.Nil(t, trash.SetFilter(model.FilterCompleted))
	assert.Equal(t, model.FilterAll, trash.Filter())
}
