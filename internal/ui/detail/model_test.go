package detail

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/keys"
	"github.com/nhle/todo-agent/internal/model"
)

func sampleTodo() model.Todo {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	cat := "1"
	return model.Todo{
		ID:          "todo-1",
		Title:       "Prepare slides",
		Description: "Quarterly review deck",
		Priority:    model.PriorityHigh,
		CategoryID:  &cat,
		Tags:        []string{"review"},
		Attachments: []model.Attachment{{Name: "shot.png", Kind: model.AttachmentImage, Size: 2048, Digest: "abcdef0123456789"}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRenderContent(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetTodo(sampleTodo(), model.DefaultCategories)

	out := m.renderContent()
	assert.Contains(t, out, "Prepare slides")
	assert.Contains(t, out, "Work")
	assert.Contains(t, out, "#review")
	assert.Contains(t, out, "Quarterly review deck")
	assert.Contains(t, out, "shot.png")
	assert.Contains(t, out, "2 KB")
	assert.Contains(t, out, "abcdef012345")
}

func TestEditAndBack(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	m.SetTodo(sampleTodo(), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)
	edit, ok := cmd().(EditMsg)
	require.True(t, ok)
	assert.Equal(t, "todo-1", edit.Todo.ID)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestTrashedTodoIsReadOnly(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	todo := sampleTodo()
	deleted := todo.CreatedAt.Add(time.Hour)
	todo.DeletedAt = &deleted
	m.SetTodo(todo, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Nil(t, cmd)
	assert.Contains(t, m.renderContent(), "in trash")
}
