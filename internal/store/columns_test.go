package store

import (
	"context"
	"encoding/base64"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/model"
)

func TestTodoRowMatchesFieldMapping(t *testing.T) {
	rt := reflect.TypeOf(todoRow{})
	require.Equal(t, len(todoFields), rt.NumField())

	for i, f := range todoFields {
		assert.Equal(t, f.Column, rt.Field(i).Tag.Get("db"), "field %s", f.Field)
	}
	assert.Len(t, todoRow{}.values(), len(todoFields))
}

func TestCategoryMatchesFieldMapping(t *testing.T) {
	rt := reflect.TypeOf(model.Category{})
	require.Equal(t, len(categoryFields), rt.NumField())

	for i, f := range categoryFields {
		assert.Equal(t, f.Column, rt.Field(i).Tag.Get("db"))
		assert.Contains(t, rt.Field(i).Tag.Get("json"), f.Field)
	}
}

func TestTodoFieldsMatchWireNames(t *testing.T) {
	rt := reflect.TypeOf(model.Todo{})
	wire := map[string]bool{}
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("json")
		for j, c := range name {
			if c == ',' {
				name = name[:j]
				break
			}
		}
		wire[name] = true
	}

	for _, f := range todoFields {
		if f.Field == "screenshot" {
			continue
		}
		assert.True(t, wire[f.Field], "todo field %s has no JSON counterpart", f.Field)
	}
}

func TestTodoColumnPanicsOnUnknownField(t *testing.T) {
	assert.Equal(t, "category_id", todoColumn("categoryId"))
	assert.Panics(t, func() { todoColumn("nope") })
}

func TestLegacyScreenshotBecomesFirstAttachment(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	img := []byte("legacy png bytes")
	now := formatTime(time.Now())
	_, err = s.db.Exec(`INSERT INTO todos (id, title, screenshot, attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"old", "from v1", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(img),
		`[{"id":"a1","name":"doc.txt","kind":"file","digest":"d","size":1,"createdAt":"2024-01-01T00:00:00Z"}]`,
		now, now,
	)
	require.NoError(t, err)

	todo, err := s.GetTodo(ctx, "old")
	require.NoError(t, err)
	require.Len(t, todo.Attachments, 2)
	assert.Equal(t, model.AttachmentImage, todo.Attachments[0].Kind)
	assert.Equal(t, img, todo.Attachments[0].Payload)
	assert.Equal(t, "a1", todo.Attachments[1].ID)
	assert.Equal(t, model.PriorityMedium, todo.Priority)

	// Rewriting attachments moves the legacy image into the blob table.
	_, err = s.UpdateTodo(ctx, "old", model.TodoPatch{Attachments: &todo.Attachments})
	require.NoError(t, err)

	var screenshot *string
	require.NoError(t, s.db.Get(&screenshot, "SELECT screenshot FROM todos WHERE id = 'old'"))
	assert.Nil(t, screenshot)

	got, err := s.AttachmentPayload(ctx, model.ContentDigest(img))
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestLegacyScreenshotIgnoresGarbage(t *testing.T) {
	_, ok := legacyScreenshot("x", "data:image/png;base64,@@@", time.Now())
	assert.False(t, ok)
	_, ok = legacyScreenshot("x", "data:nocomma", time.Now())
	assert.False(t, ok)
}
