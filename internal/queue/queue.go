package queue

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_extractor.go -package=mocks github.com/nhle/todo-agent/internal/queue Extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/nhle/todo-agent/internal/model"
)

// updateBuffer bounds the update channel; updates beyond it are dropped
// since the queue can always be re-read with List.
const updateBuffer = 32

// Extractor turns a screenshot into todo candidates.
type Extractor interface {
	Extract(ctx context.Context, image []byte, categories []string) ([]model.ExtractedTodo, error)
}

// TodoStore is the part of the entity store confirmed candidates are
// written to.
type TodoStore interface {
	CreateTodo(ctx context.Context, draft model.TodoDraft) (*model.Todo, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// ItemUpdatedMsg is delivered to the TUI when an item finishes extraction.
type ItemUpdatedMsg struct {
	Item model.QueueItem
}

// Summary counts queue items by state.
type Summary struct {
	Extracting        int `json:"extracting"`
	Done              int `json:"done"`
	Failed            int `json:"failed"`
	PendingCandidates int `json:"pendingCandidates"`
}

// Queue holds screenshots from submission until their candidates are
// confirmed or discarded. Every submission is extracted in its own
// goroutine. Contents are not persisted.
type Queue struct {
	extractor Extractor
	store     TodoStore
	logger    *slog.Logger

	mu    sync.Mutex
	items []*model.QueueItem

	// confirmMu serializes confirmations so candidate indices stay stable
	// while a todo is being written.
	confirmMu sync.Mutex

	updates chan model.QueueItem
	wg      sync.WaitGroup
}

// New creates an empty queue. A nil logger uses slog.Default().
func New(extractor Extractor, store TodoStore, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		extractor: extractor,
		store:     store,
		logger:    logger.With("component", "queue"),
		updates:   make(chan model.QueueItem, updateBuffer),
	}
}

// Enqueue adds a screenshot and starts extracting it in the background.
// The returned id identifies the item while it stays in the queue.
func (q *Queue) Enqueue(image []byte) (string, error) {
	if len(image) == 0 {
		return "", &model.ValidationError{Field: "image", Message: "must not be empty"}
	}

	item := &model.QueueItem{
		ID:         uuid.New().String(),
		Image:      append([]byte(nil), image...),
		ImageSize:  len(image),
		Candidates: []model.ExtractedTodo{},
		Status:     model.QueueExtracting,
		CreatedAt:  time.Now().UTC(),
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wg.Add(1)
	go q.extract(item.ID, item.Image)

	q.logger.Info("screenshot enqueued", "item", item.ID, "bytes", item.ImageSize)
	return item.ID, nil
}

// extract runs one extraction and records its outcome. A result for an item
// removed in the meantime is dropped.
func (q *Queue) extract(id string, image []byte) {
	defer q.wg.Done()
	ctx := context.Background()

	var names []string
	categories, err := q.store.ListCategories(ctx)
	if err != nil {
		q.logger.Warn("listing categories for extraction hint", "item", id, "error", err)
	}
	for _, c := range categories {
		names = append(names, c.Name)
	}

	candidates, err := q.extractor.Extract(ctx, image, names)

	q.mu.Lock()
	item := q.find(id)
	if item == nil {
		q.mu.Unlock()
		q.logger.Debug("dropping extraction result for removed item", "item", id)
		return
	}
	if err != nil {
		item.Status = model.QueueFailed
		item.ErrorMessage = err.Error()
	} else {
		if candidates == nil {
			candidates = []model.ExtractedTodo{}
		}
		item.Status = model.QueueDone
		item.Candidates = candidates
	}
	snapshot := copyItem(item)
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("extraction failed", "item", id, "error", err)
	} else {
		q.logger.Info("extraction finished", "item", id, "candidates", len(candidates))
	}
	q.publish(snapshot)
}

// publish sends a non-blocking update.
func (q *Queue) publish(item model.QueueItem) {
	select {
	case q.updates <- item:
	default:
	}
}

// Updates returns a channel receiving each item once it leaves the
// extracting state.
func (q *Queue) Updates() <-chan model.QueueItem {
	return q.updates
}

// WaitForUpdate returns a tea.Cmd that blocks until the next item update.
func (q *Queue) WaitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return ItemUpdatedMsg{Item: <-q.updates}
	}
}

// Wait blocks until every in-flight extraction has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Get returns a copy of the item with id.
func (q *Queue) Get(id string) (model.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := q.find(id)
	if item == nil {
		return model.QueueItem{}, false
	}
	return copyItem(item), true
}

// List returns copies of all items in submission order.
func (q *Queue) List() []model.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.QueueItem, len(q.items))
	for i, item := range q.items {
		out[i] = copyItem(item)
	}
	return out
}

// Summary counts items per state and the candidates awaiting confirmation.
func (q *Queue) Summary() Summary {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Summary
	for _, item := range q.items {
		switch item.Status {
		case model.QueueExtracting:
			s.Extracting++
		case model.QueueDone:
			s.Done++
			s.PendingCandidates += len(item.Candidates)
		case model.QueueFailed:
			s.Failed++
		}
	}
	return s
}

// AllSettled reports whether no item is still extracting.
func (q *Queue) AllSettled() bool {
	return q.Summary().Extracting == 0
}

// Remove discards an item without confirming anything.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return &model.NotFoundError{Entity: "queue item", ID: id}
}

// Clear discards every item.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// ConfirmOne turns one candidate into a todo and removes it from its item.
// The item goes away with its last candidate.
func (q *Queue) ConfirmOne(ctx context.Context, itemID string, index int) (*model.Todo, error) {
	q.confirmMu.Lock()
	defer q.confirmMu.Unlock()

	candidates, image, err := q.confirmable(itemID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(candidates) {
		return nil, &model.ValidationError{
			Field:   "index",
			Message: fmt.Sprintf("candidate %d out of range [0,%d)", index, len(candidates)),
		}
	}

	categories, err := q.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	todo, err := q.create(ctx, candidates[index], image, categories)
	if err != nil {
		return nil, err
	}

	q.consume(itemID, map[int]bool{index: true})
	return todo, nil
}

// ConfirmAll turns every remaining candidate of an item into a todo. A
// failing candidate does not stop the others; it stays on the item and its
// error is returned joined with any other failures.
func (q *Queue) ConfirmAll(ctx context.Context, itemID string) ([]model.Todo, error) {
	q.confirmMu.Lock()
	defer q.confirmMu.Unlock()

	return q.confirmAllLocked(ctx, itemID)
}

// ConfirmAllItems confirms every candidate of every item that finished
// extracting. Items still extracting or failed are left alone.
func (q *Queue) ConfirmAllItems(ctx context.Context) ([]model.Todo, error) {
	q.confirmMu.Lock()
	defer q.confirmMu.Unlock()

	var ids []string
	q.mu.Lock()
	for _, item := range q.items {
		if item.Status == model.QueueDone {
			ids = append(ids, item.ID)
		}
	}
	q.mu.Unlock()

	var created []model.Todo
	var errs []error
	for _, id := range ids {
		todos, err := q.confirmAllLocked(ctx, id)
		created = append(created, todos...)
		if err != nil && !model.IsNotFound(err) {
			errs = append(errs, err)
		}
	}
	return created, errors.Join(errs...)
}

func (q *Queue) confirmAllLocked(ctx context.Context, itemID string) ([]model.Todo, error) {
	candidates, image, err := q.confirmable(itemID)
	if err != nil {
		return nil, err
	}

	categories, err := q.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	var created []model.Todo
	var errs []error
	consumed := make(map[int]bool, len(candidates))
	for i, c := range candidates {
		todo, err := q.create(ctx, c, image, categories)
		if err != nil {
			errs = append(errs, fmt.Errorf("confirming %q: %w", c.Title, err))
			continue
		}
		consumed[i] = true
		created = append(created, *todo)
	}

	q.consume(itemID, consumed)
	return created, errors.Join(errs...)
}

// confirmable returns copies of the candidates and image of a done item.
func (q *Queue) confirmable(itemID string) ([]model.ExtractedTodo, []byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := q.find(itemID)
	if item == nil {
		return nil, nil, &model.NotFoundError{Entity: "queue item", ID: itemID}
	}
	if item.Status != model.QueueDone {
		return nil, nil, &model.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("queue item %s is %s, not done", itemID, item.Status),
		}
	}
	return append([]model.ExtractedTodo(nil), item.Candidates...), item.Image, nil
}

// create writes one candidate as a todo with the screenshot attached. Its
// category is the first tag naming an existing category.
func (q *Queue) create(
	ctx context.Context,
	c model.ExtractedTodo,
	image []byte,
	categories []model.Category,
) (*model.Todo, error) {
	draft := c.Draft(model.CategoryForTags(c.Tags, categories))
	if len(image) > 0 {
		draft.Attachments = []model.Attachment{{
			Name:    "screenshot",
			Kind:    model.AttachmentImage,
			Payload: image,
		}}
	}

	todo, err := q.store.CreateTodo(ctx, draft)
	if err != nil {
		return nil, err
	}
	q.logger.Info("candidate confirmed", "todo", todo.ID, "title", todo.Title)
	return todo, nil
}

// consume drops the candidates at the given indices and removes the item
// once it has none left. The item may have been removed meanwhile.
func (q *Queue) consume(itemID string, indices map[int]bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := q.find(itemID)
	if item == nil {
		return
	}

	remaining := make([]model.ExtractedTodo, 0, len(item.Candidates))
	for i, c := range item.Candidates {
		if !indices[i] {
			remaining = append(remaining, c)
		}
	}
	item.Candidates = remaining

	if len(remaining) == 0 {
		for i, it := range q.items {
			if it.ID == itemID {
				q.items = append(q.items[:i], q.items[i+1:]...)
				break
			}
		}
	}
}

// find returns the item with id. Callers hold q.mu.
func (q *Queue) find(id string) *model.QueueItem {
	for _, item := range q.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func copyItem(item *model.QueueItem) model.QueueItem {
	cp := *item
	cp.Candidates = append([]model.ExtractedTodo{}, item.Candidates...)
	return cp
}
