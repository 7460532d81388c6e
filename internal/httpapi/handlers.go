package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/queue"
	"github.com/nhle/todo-agent/internal/store"
)

type handler struct {
	store  store.Store
	queue  QueueService
	sync   Syncer
	logger *slog.Logger
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status"`
	Sync   bool   `json:"sync"`
}

// EnqueueResponse carries the id of a newly queued screenshot.
type EnqueueResponse struct {
	ID string `json:"id"`
}

// QueueResponse lists the queue in submission order.
type QueueResponse struct {
	Items   []model.QueueItem `json:"items"`
	Summary queue.Summary     `json:"summary"`
}

// ConfirmResponse lists the todos created by a confirmation. Error is set
// when only some candidates could be confirmed.
type ConfirmResponse struct {
	Todos []model.Todo `json:"todos"`
	Error string       `json:"error,omitempty"`
}

// SyncResponse summarizes a completed sync cycle.
type SyncResponse struct {
	Outcome    string    `json:"outcome"`
	Todos      int       `json:"todos"`
	Categories int       `json:"categories"`
	At         time.Time `json:"at"`
}

// CreateTodoRequest is the body of POST /api/todos. Dates accept
// YYYY-MM-DD or RFC 3339.
type CreateTodoRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	CategoryID  *string  `json:"categoryId"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"dueDate"`
	Reminder    string   `json:"reminder"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, HealthResponse{Status: "ok", Sync: h.sync != nil})
}

func (h *handler) submitScreenshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScreenshotBytes))
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	id, err := h.queue.Enqueue(image)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, EnqueueResponse{ID: id})
}

func (h *handler) listQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, QueueResponse{
		Items:   h.queue.List(),
		Summary: h.queue.Summary(),
	})
}

func (h *handler) getQueueItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.queue.Get(id)
	if !ok {
		handleError(r.Context(), w, &model.NotFoundError{Entity: "queue item", ID: id})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, item)
}

func (h *handler) removeQueueItem(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.Remove(chi.URLParam(r, "id")); err != nil {
		handleError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearQueue(w http.ResponseWriter, r *http.Request) {
	h.queue.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// confirmQueueItem confirms one candidate when ?index is given, otherwise
// every candidate of the item.
func (h *handler) confirmQueueItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			handleError(ctx, w, &model.ValidationError{Field: "index", Message: "must be an integer"})
			return
		}
		todo, err := h.queue.ConfirmOne(ctx, id, index)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusCreated, ConfirmResponse{Todos: []model.Todo{*todo}})
		return
	}

	todos, err := h.queue.ConfirmAll(ctx, id)
	h.writeConfirmed(w, r, todos, err)
}

func (h *handler) confirmAllItems(w http.ResponseWriter, r *http.Request) {
	todos, err := h.queue.ConfirmAllItems(r.Context())
	h.writeConfirmed(w, r, todos, err)
}

func (h *handler) writeConfirmed(w http.ResponseWriter, r *http.Request, todos []model.Todo, err error) {
	ctx := r.Context()
	if todos == nil {
		todos = []model.Todo{}
	}
	if err != nil {
		if len(todos) == 0 {
			handleError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, statusFor(err), ConfirmResponse{Todos: todos, Error: err.Error()})
		return
	}
	writeJSON(ctx, w, http.StatusCreated, ConfirmResponse{Todos: todos})
}

func (h *handler) listTodos(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	todos, err := h.store.ListActive(r.Context())
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, filter.Apply(todos, time.Now()))
}

func (h *handler) listTrash(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.ListTrashed(r.Context())
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, todos)
}

func (h *handler) getTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.store.GetTodo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, todo)
}

func (h *handler) createTodo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(ctx, w, &model.ValidationError{Field: "body", Message: "invalid JSON"})
		return
	}
	draft, err := req.draft()
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	todo, err := h.store.CreateTodo(ctx, draft)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, todo)
}

func (h *handler) toggleTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.store.ToggleTodo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, todo)
}

func (h *handler) trashTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SoftDeleteTodo(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) runSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sync == nil {
		writeError(ctx, w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	res, err := h.sync.SyncOnce(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, SyncResponse{
		Outcome:    string(res.Outcome),
		Todos:      res.Todos,
		Categories: res.Categories,
		At:         res.At,
	})
}

func (req CreateTodoRequest) draft() (model.TodoDraft, error) {
	draft := model.TodoDraft{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
	}
	if req.Priority != "" {
		p, ok := model.ParsePriority(req.Priority)
		if !ok {
			return draft, &model.ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", req.Priority)}
		}
		draft.Priority = p
	}

	var err error
	if draft.DueDate, err = parseDate("dueDate", req.DueDate); err != nil {
		return draft, err
	}
	if draft.ReminderAt, err = parseDate("reminder", req.Reminder); err != nil {
		return draft, err
	}
	return draft, nil
}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, &model.ValidationError{Field: field, Message: "use YYYY-MM-DD or RFC 3339"}
}
