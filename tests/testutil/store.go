package testutil

import (
	"context"
	"testing"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// CreateTodos inserts one medium-priority todo per title, in order, and
// returns them.
func CreateTodos(t *testing.T, s store.Store, titles ...string) []model.Todo {
	t.Helper()

	todos := make([]model.Todo, 0, len(titles))
	for _, title := range titles {
		todo, err := s.CreateTodo(context.Background(), model.TodoDraft{Title: title})
		if err != nil {
			t.Fatalf("creating todo %q: %v", title, err)
		}
		todos = append(todos, *todo)
	}
	return todos
}

// ActiveTitles returns the titles of the active todos in list order.
func ActiveTitles(t *testing.T, s store.Store) []string {
	t.Helper()

	todos, err := s.ListActive(context.Background())
	if err != nil {
		t.Fatalf("listing active todos: %v", err)
	}
	titles := make([]string, len(todos))
	for i, todo := range todos {
		titles[i] = todo.Title
	}
	return titles
}
