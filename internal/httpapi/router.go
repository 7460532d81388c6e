package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/queue"
	"github.com/nhle/todo-agent/internal/store"
	appsync "github.com/nhle/todo-agent/internal/sync"
)

// maxScreenshotBytes caps an uploaded screenshot.
const maxScreenshotBytes = 20 << 20

// QueueService is the extraction queue as seen by the API.
type QueueService interface {
	Enqueue(image []byte) (string, error)
	Get(id string) (model.QueueItem, bool)
	List() []model.QueueItem
	Summary() queue.Summary
	Remove(id string) error
	Clear()
	ConfirmOne(ctx context.Context, itemID string, index int) (*model.Todo, error)
	ConfirmAll(ctx context.Context, itemID string) ([]model.Todo, error)
	ConfirmAllItems(ctx context.Context) ([]model.Todo, error)
}

// Syncer runs one sync cycle on demand.
type Syncer interface {
	SyncOnce(ctx context.Context) (appsync.CycleResult, error)
}

// Deps holds dependencies for the HTTP router. Sync may be nil when no
// bucket is configured.
type Deps struct {
	Store  store.Store
	Queue  QueueService
	Sync   Syncer
	Logger *slog.Logger
}

// NewRouter creates the local API router.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{
		store:  deps.Store,
		queue:  deps.Queue,
		sync:   deps.Sync,
		logger: deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/screenshots", h.submitScreenshot)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", h.listQueue)
			r.Delete("/", h.clearQueue)
			r.Post("/confirm", h.confirmAllItems)
			r.Get("/{id}", h.getQueueItem)
			r.Delete("/{id}", h.removeQueueItem)
			r.Post("/{id}/confirm", h.confirmQueueItem)
		})

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", h.listTodos)
			r.Post("/", h.createTodo)
			r.Get("/{id}", h.getTodo)
			r.Post("/{id}/toggle", h.toggleTodo)
			r.Delete("/{id}", h.trashTodo)
		})

		r.Get("/trash", h.listTrash)
		r.Post("/sync", h.runSync)
	})

	return r
}
