package store

import (
	"context"
	"time"

	"github.com/nhle/todo-agent/internal/model"
)

// Store defines the persistence interface for todos, categories, attachment
// payloads, and the data exchanged with the sync engine.
type Store interface {
	// === Todo queries ===

	ListActive(ctx context.Context) ([]model.Todo, error)
	ListTrashed(ctx context.Context) ([]model.Todo, error)
	GetTodo(ctx context.Context, id string) (*model.Todo, error)

	// === Todo mutations ===

	CreateTodo(ctx context.Context, draft model.TodoDraft) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error)
	ToggleTodo(ctx context.Context, id string) (*model.Todo, error)
	SoftDeleteTodo(ctx context.Context, id string) error
	RestoreTodo(ctx context.Context, id string) error
	PurgeTodo(ctx context.Context, id string) error
	EmptyTrash(ctx context.Context) (int, error)
	ReorderTodos(ctx context.Context, fromIndex, toIndex int) error

	// === Categories ===

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, c model.Category) (*model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, id string) error

	// === Attachments ===

	AttachmentPayload(ctx context.Context, digest string) ([]byte, error)

	// === Sync ===

	Snapshot(ctx context.Context) (model.LocalData, error)
	ApplyMerged(ctx context.Context, data model.LocalData) error
	ReplaceAll(ctx context.Context, data model.LocalData, since time.Time) error
	OriginID(ctx context.Context) (string, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
