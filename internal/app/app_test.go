package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/logging"
	"github.com/nhle/todo-agent/internal/model"
	appsync "github.com/nhle/todo-agent/internal/sync"
	"github.com/nhle/todo-agent/internal/ui/command"
	"github.com/nhle/todo-agent/internal/ui/todoform"
)

func newTestModel(t *testing.T) (Model, *Services) {
	t.Helper()
	svc, err := Open(testConfig(t), Deps{Logger: logging.Discard(), Secrets: noSecrets})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	m := New(svc)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, svc
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// run delivers msg and feeds the message produced by the returned command
// back into the model once.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	return update(t, m, cmd())
}

func keyPress(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func loadLists(t *testing.T, m Model) Model {
	t.Helper()
	m = update(t, m, m.todos.Load()())
	return update(t, m, m.trash.Load()())
}

func TestCreateTodoFromForm(t *testing.T) {
	m, svc := newTestModel(t)
	m = loadLists(t, m)

	m = update(t, m, keyPress("n"))
	assert.Equal(t, ViewForm, m.currentView)

	m = run(t, m, todoform.TodoCreatedMsg{Draft: model.TodoDraft{Title: "Buy milk"}})
	assert.Equal(t, ViewTodos, m.currentView)
	assert.Equal(t, `Added "Buy milk"`, m.notice)
	assert.False(t, m.noticeErr)

	todos, err := svc.Store.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "Buy milk", todos[0].Title)
}

func TestDeleteRestoreAndPurge(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()
	_, err := svc.Store.CreateTodo(ctx, model.TodoDraft{Title: "Old task"})
	require.NoError(t, err)
	m = loadLists(t, m)

	m = run(t, m, keyPress("d"))
	assert.Equal(t, `Moved "Old task" to trash`, m.notice)
	m = loadLists(t, m)
	assert.Equal(t, 0, m.todos.Len())
	assert.Equal(t, 1, m.trash.Len())

	m = update(t, m, keyPress("2"))
	assert.Equal(t, ViewTrash, m.currentView)
	m = run(t, m, keyPress("u"))
	assert.Equal(t, `Restored "Old task"`, m.notice)

	active, err := svc.Store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestToggleTodo(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()
	created, err := svc.Store.CreateTodo(ctx, model.TodoDraft{Title: "Flip me"})
	require.NoError(t, err)
	m = loadLists(t, m)

	run(t, m, keyPress("x"))

	got, err := svc.Store.GetTodo(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
}

func TestFilterKeyCyclesViews(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.Store.CreateTodo(ctx, model.TodoDraft{Title: title})
		require.NoError(t, err)
	}
	all, err := svc.Store.ListActive(ctx)
	require.NoError(t, err)
	_, err = svc.Store.ToggleTodo(ctx, all[1].ID)
	require.NoError(t, err)
	m = loadLists(t, m)
	assert.Equal(t, 3, m.todos.Len())

	m = update(t, m, keyPress("f"))
	assert.Equal(t, model.FilterPending, m.todos.Filter())
	assert.Equal(t, 2, m.todos.Len())
	assert.Contains(t, m.tabLabels()[0], "pending")

	m = update(t, m, keyPress("f"))
	assert.Equal(t, model.FilterCompleted, m.todos.Filter())
	require.Equal(t, 1, m.todos.Len())
	sel, ok := m.todos.SelectedTodo()
	require.True(t, ok)
	assert.Equal(t, all[1].ID, sel.ID)

	for range len(model.Filters) - 2 {
		m = update(t, m, keyPress("f"))
	}
	assert.Equal(t, model.FilterAll, m.todos.Filter())
	assert.Equal(t, 3, m.todos.Len())
}

func TestMoveUnderFilterUsesFullPositions(t *testing.T) {
	m, svc := newTestModel(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.Store.CreateTodo(ctx, model.TodoDraft{Title: title})
		require.NoError(t, err)
	}
	all, err := svc.Store.ListActive(ctx)
	require.NoError(t, err)
	_, err = svc.Store.ToggleTodo(ctx, all[1].ID)
	require.NoError(t, err)
	m = loadLists(t, m)

	m = update(t, m, keyPress("f"))
	require.Equal(t, 2, m.todos.Len())
	m.todos.Select(1)
	assert.Equal(t, 2, m.todos.FullIndex(1))

	run(t, m, keyPress("K"))

	got, err := svc.Store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{all[2].ID, all[0].ID, all[1].ID}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestSyncWithoutBucket(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, keyPress("S"))
	assert.Equal(t, "Sync is not configured", m.notice)
	assert.True(t, m.noticeErr)
	assert.Equal(t, "sync off", m.syncStatus())
}

func TestScheduledSyncFailureIsNotLoggedAgain(t *testing.T) {
	m, svc := newTestModel(t)
	var logs bytes.Buffer
	svc.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	m.syncing = true

	m = update(t, m, appsync.SyncResultMsg{Error: errors.New("bucket unreachable")})

	assert.False(t, m.syncing)
	assert.Empty(t, logs.String(), "the scheduler already logged this failure")
}

func TestCommandPalette(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, keyPress(":"))
	assert.Equal(t, ViewCommand, m.currentView)

	m = run(t, m, command.CommandMsg{Name: "extract"})
	assert.Equal(t, ViewTodos, m.currentView)
	assert.Equal(t, errExtractUsage.Error(), m.notice)

	m = update(t, m, command.CommandMsg{Name: "queue"})
	assert.Equal(t, ViewQueue, m.currentView)

	m = update(t, m, command.CommandMsg{Name: "bogus"})
	assert.Equal(t, "Unknown command: bogus", m.notice)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, keyPress("3"))

	m = update(t, m, keyPress("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Equal(t, 2, m.activeTab())

	m = update(t, m, keyPress("?"))
	assert.Equal(t, ViewQueue, m.currentView)
}

func TestNextTab(t *testing.T) {
	assert.Equal(t, ViewTrash, nextTab(ViewTodos))
	assert.Equal(t, ViewQueue, nextTab(ViewTrash))
	assert.Equal(t, ViewTodos, nextTab(ViewQueue))
	assert.Equal(t, ViewTodos, nextTab(ViewHelp))
}

func TestDetailView(t *testing.T) {
	m, svc := newTestModel(t)
	_, err := svc.Store.CreateTodo(context.Background(), model.TodoDraft{Title: "Look closer", Description: "with notes"})
	require.NoError(t, err)
	m = loadLists(t, m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, m.currentView)
	assert.Contains(t, m.View(), "with notes")

	m = run(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewTodos, m.currentView)
}
