package todolist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/theme"
)

// maxTags is the number of tags rendered before the rest are elided.
const maxTags = 2

// TodoItem wraps a model.Todo so it can be used in a bubbles/list.
type TodoItem struct {
	Todo model.Todo
}

// FilterValue returns the string used for fuzzy filtering.
func (i TodoItem) FilterValue() string { return i.Todo.Title }

// Title returns the todo title for the list.
func (i TodoItem) Title() string { return i.Todo.Title }

// Description returns a short summary line for the list.
func (i TodoItem) Description() string {
	parts := []string{string(i.Todo.Priority)}
	if len(i.Todo.Tags) > 0 {
		parts = append(parts, strings.Join(i.Todo.Tags, ","))
	}
	parts = append(parts, relativeTime(i.Todo.UpdatedAt, time.Now()))
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering todos.
type ItemDelegate struct {
	// categories is shared by reference with the list Model so reloads are
	// visible without rebuilding the delegate.
	categories map[string]model.Category
	trash      bool
	now        func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single todo line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TodoItem)
	if !ok {
		return
	}
	line := d.renderLine(ti.Todo)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func (d ItemDelegate) renderLine(t model.Todo) string {
	now := d.now()

	prefix := "○"
	if t.Completed {
		prefix = "✓"
	}

	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", prefix, priBadge, t.Title)

	if t.CategoryID != nil {
		if c, ok := d.categories[*t.CategoryID]; ok {
			b.WriteString(theme.CategoryStyle(c).Render(" [" + c.Name + "]"))
		}
	}
	if tags := tagSummary(t.Tags); tags != "" {
		b.WriteString(theme.TagStyle.Render(" #" + tags))
	}
	if len(t.Attachments) > 0 {
		b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(" +%d", len(t.Attachments))))
	}

	if d.trash {
		if t.DeletedAt != nil {
			b.WriteString(theme.DimmedStyle.Render("  deleted " + relativeTime(*t.DeletedAt, now)))
		}
		return theme.DimmedStyle.Render(b.String())
	}

	if t.DueDate != nil {
		b.WriteString(theme.DueDateStyle.Render(" " + t.DueDate.Format("Jan 02")))
	}
	if isOverdue(t, now) {
		b.WriteString(theme.OverdueStyle.Render(" OVERDUE"))
	}

	line := b.String()
	if t.Completed {
		line = theme.DimmedStyle.Render(line)
	}
	return line
}

// isOverdue reports whether an open todo's due date is before today.
func isOverdue(t model.Todo, now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := t.DueDate.Date()
	due := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

func tagSummary(tags []string) string {
	if len(tags) <= maxTags {
		return strings.Join(tags, ",")
	}
	return strings.Join(tags[:maxTags], ",") + ",…"
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "H"
	case model.PriorityMedium:
		return "M"
	case model.PriorityLow:
		return "L"
	default:
		return "?"
	}
}
