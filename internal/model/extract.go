package model

import "time"

// ExtractedTodo is a task proposed by the AI from a screenshot. It becomes a
// Todo only when the user confirms it.
type ExtractedTodo struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// QueueStatus is the extraction state of a queue item.
type QueueStatus string

// Queue item states. An item leaves QueueExtracting exactly once.
const (
	QueueExtracting QueueStatus = "extracting"
	QueueDone       QueueStatus = "done"
	QueueFailed     QueueStatus = "failed"
)

// QueueItem is one screenshot waiting in the extraction queue.
type QueueItem struct {
	ID           string          `json:"id"`
	Image        []byte          `json:"-"`
	ImageSize    int             `json:"imageSize"`
	Candidates   []ExtractedTodo `json:"candidates"`
	Status       QueueStatus     `json:"status"`
	ErrorMessage string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Draft converts the candidate into a todo draft. categoryID may be nil.
func (e ExtractedTodo) Draft(categoryID *string) TodoDraft {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	p := e.Priority
	if !p.Valid() {
		p = PriorityMedium
	}
	return TodoDraft{
		Title:       e.Title,
		Description: e.Description,
		Priority:    p,
		CategoryID:  categoryID,
		Tags:        tags,
		DueDate:     e.DueDate,
	}
}
