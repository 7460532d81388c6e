package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todo-agent/internal/model"
	appsync "github.com/nhle/todo-agent/internal/sync"
)

var errExtractUsage = errors.New("usage: extract <file>")

// storeResultMsg is sent after a store mutation. selectIndex moves the
// todo list cursor once the lists reload; -1 leaves it alone.
type storeResultMsg struct {
	notice      string
	err         error
	selectIndex int
}

// enqueuedMsg is sent after a screenshot file has been queued.
type enqueuedMsg struct {
	id   string
	path string
	err  error
}

// confirmResultMsg is sent after queue candidates have been confirmed.
type confirmResultMsg struct {
	created int
	err     error
}

// manualSyncMsg carries the result of a sync run without a scheduler.
type manualSyncMsg struct {
	result appsync.CycleResult
	err    error
}

func (m *Model) createTodo(draft model.TodoDraft) tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		todo, err := s.CreateTodo(context.Background(), draft)
		if err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{notice: fmt.Sprintf("Added %q", todo.Title), selectIndex: -1}
	}
}

func (m *Model) updateTodo(id string, patch model.TodoPatch) tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		todo, err := s.UpdateTodo(context.Background(), id, patch)
		if err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{notice: fmt.Sprintf("Saved %q", todo.Title), selectIndex: -1}
	}
}

func (m *Model) toggleTodo(id string) tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		_, err := s.ToggleTodo(context.Background(), id)
		return storeResultMsg{err: err, selectIndex: -1}
	}
}

func (m *Model) deleteTodo(todo model.Todo) tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		if err := s.SoftDeleteTodo(context.Background(), todo.ID); err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{notice: fmt.Sprintf("Moved %q to trash", todo.Title), selectIndex: -1}
	}
}

func (m *Model) restoreTodo(todo model.Todo) tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		if err := s.RestoreTodo(context.Background(), todo.ID); err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{notice: fmt.Sprintf("Restored %q", todo.Title), selectIndex: -1}
	}
}

func (m *Model) purgeTodo(todo model.Todo) tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		if err := s.PurgeTodo(context.Background(), todo.ID); err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{notice: fmt.Sprintf("Deleted %q permanently", todo.Title), selectIndex: -1}
	}
}

func (m *Model) emptyTrash() tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		n, err := s.EmptyTrash(context.Background())
		if err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{notice: fmt.Sprintf("Emptied trash (%d)", n), selectIndex: -1}
	}
}

// moveTodo moves the shown todo at from past its shown neighbour at to.
// Store positions count every active todo, so under a filter both indices
// are mapped back to the unfiltered list first.
func (m *Model) moveTodo(from, to int) tea.Cmd {
	if to < 0 || to >= m.todos.Len() {
		return nil
	}
	fullFrom, fullTo := m.todos.FullIndex(from), m.todos.FullIndex(to)
	if fullFrom < 0 || fullTo < 0 {
		return nil
	}
	s := m.svc.Store
	return func() tea.Msg {
		if err := s.ReorderTodos(context.Background(), fullFrom, fullTo); err != nil {
			return storeResultMsg{err: err, selectIndex: -1}
		}
		return storeResultMsg{selectIndex: to}
	}
}

func (m *Model) enqueueFile(path string) tea.Cmd {
	q := m.svc.Queue
	return func() tea.Msg {
		if path == "" {
			return enqueuedMsg{err: errExtractUsage}
		}
		image, err := os.ReadFile(path)
		if err != nil {
			return enqueuedMsg{path: path, err: err}
		}
		id, err := q.Enqueue(image)
		return enqueuedMsg{id: id, path: path, err: err}
	}
}

func (m *Model) confirm(itemID string, index int) tea.Cmd {
	q := m.svc.Queue
	return func() tea.Msg {
		ctx := context.Background()
		if index < 0 {
			todos, err := q.ConfirmAll(ctx, itemID)
			return confirmResultMsg{created: len(todos), err: err}
		}
		_, err := q.ConfirmOne(ctx, itemID, index)
		if err != nil {
			return confirmResultMsg{err: err}
		}
		return confirmResultMsg{created: 1}
	}
}

func (m *Model) confirmAllItems() tea.Cmd {
	q := m.svc.Queue
	return func() tea.Msg {
		todos, err := q.ConfirmAllItems(context.Background())
		return confirmResultMsg{created: len(todos), err: err}
	}
}

// requestSync asks the scheduler for a cycle, or runs one directly when
// periodic sync is off.
func (m *Model) requestSync() tea.Cmd {
	if m.svc.Sync == nil {
		m.setNotice("Sync is not configured", true)
		return nil
	}
	m.syncing = true
	if m.svc.Scheduler != nil {
		m.svc.Scheduler.Trigger()
		return nil
	}
	engine := m.svc.Sync
	return func() tea.Msg {
		res, err := engine.SyncOnce(context.Background())
		return manualSyncMsg{result: res, err: err}
	}
}

func displayName(path string) string {
	return filepath.Base(path)
}
