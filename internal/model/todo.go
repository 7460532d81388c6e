package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Priority is the user-facing urgency of a todo.
type Priority string

// Priority constants.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority normalizes s into a Priority. The second return value is
// false when s does not name a known priority.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// AttachmentKind classifies an attachment payload.
type AttachmentKind string

// Attachment kinds.
const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is a binary payload bound to a todo. Payloads are addressed by
// the SHA-256 digest of their content; the database stores each distinct
// payload once.
type Attachment struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Kind      AttachmentKind `json:"kind"`
	Digest    string         `json:"digest"`
	Size      int64          `json:"size"`
	Payload   []byte         `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ContentDigest returns the hex SHA-256 digest used to address payload.
func ContentDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Todo is a task owned by the user. DeletedAt being non-nil means the todo is
// in the trash; every other field is kept intact until it is restored or purged.
type Todo struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Completed   bool         `json:"completed"`
	Priority    Priority     `json:"priority"`
	CategoryID  *string      `json:"categoryId,omitempty"`
	Tags        []string     `json:"tags"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	ReminderAt  *time.Time   `json:"reminder,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	SortOrder   int          `json:"sortOrder"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	DeletedAt   *time.Time   `json:"deletedAt,omitempty"`
}

// IsTrashed reports whether the todo has been soft-deleted.
func (t Todo) IsTrashed() bool {
	return t.DeletedAt != nil
}

// TodoDraft carries the user-supplied fields of a todo that does not exist yet.
type TodoDraft struct {
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	CategoryID  *string
	Tags        []string
	DueDate     *time.Time
	ReminderAt  *time.Time
	Attachments []Attachment
}

// TodoPatch lists the fields to change on an existing todo. Nil fields are
// left untouched. A CategoryID pointing at "" clears the category; the Clear*
// flags clear the optional timestamps. Position is changed only through
// ReorderTodos, which keeps sort orders unique.
type TodoPatch struct {
	Title         *string
	Description   *string
	Completed     *bool
	Priority      *Priority
	CategoryID    *string
	Tags          *[]string
	DueDate       *time.Time
	ClearDueDate  bool
	ReminderAt    *time.Time
	ClearReminder bool
	Attachments   *[]Attachment
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.CategoryID == nil && p.Tags == nil &&
		p.DueDate == nil && !p.ClearDueDate &&
		p.ReminderAt == nil && !p.ClearReminder &&
		p.Attachments == nil
}
