package queueview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todo-agent/internal/keys"
	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/theme"
)

// ConfirmRequestMsg asks the app to confirm candidates of one item. Index
// -1 confirms every remaining candidate of the item.
type ConfirmRequestMsg struct {
	ItemID string
	Index  int
}

// ConfirmAllRequestMsg asks the app to confirm every candidate of every
// finished item.
type ConfirmAllRequestMsg struct{}

// RemoveRequestMsg asks the app to discard a queue item.
type RemoveRequestMsg struct {
	ItemID string
}

// row is one selectable line: an item header (index -1) or a candidate.
type row struct {
	itemID string
	index  int
}

// Model shows the extraction queue with each item's candidates beneath it.
type Model struct {
	keys    *keys.KeyMap
	items   []model.QueueItem
	rows    []row
	cursor  int
	spinner spinner.Model
	ticking bool
	width   int
	height  int
}

// New creates an empty queue view.
func New(k *keys.KeyMap, width, height int) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorYellow)
	return Model{
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// SetItems replaces the displayed items, keeping the cursor on the same
// row when it still exists and at the same position otherwise. It starts
// the spinner when an item is extracting and the spinner is idle.
func (m *Model) SetItems(items []model.QueueItem) tea.Cmd {
	var current row
	hadRow := m.cursor < len(m.rows)
	if hadRow {
		current = m.rows[m.cursor]
	}

	m.items = items
	m.rows = buildRows(items)
	if hadRow {
		for i, r := range m.rows {
			if r == current {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}

	if m.extracting() && !m.ticking {
		m.ticking = true
		return m.spinner.Tick
	}
	return nil
}

func buildRows(items []model.QueueItem) []row {
	var rows []row
	for _, item := range items {
		rows = append(rows, row{itemID: item.ID, index: -1})
		if item.Status != model.QueueDone {
			continue
		}
		for i := range item.Candidates {
			rows = append(rows, row{itemID: item.ID, index: i})
		}
	}
	return rows
}

func (m Model) extracting() bool {
	for _, item := range m.items {
		if item.Status == model.QueueExtracting {
			return true
		}
	}
	return false
}

// Update handles navigation and action keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.extracting() {
			m.ticking = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Confirm):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ConfirmRequestMsg{ItemID: r.itemID, Index: r.index} }
	case key.Matches(msg, m.keys.ConfirmAll):
		return m, func() tea.Msg { return ConfirmAllRequestMsg{} }
	case key.Matches(msg, m.keys.Delete):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return RemoveRequestMsg{ItemID: r.itemID} }
	}
	return m, nil
}

func (m Model) selected() (row, bool) {
	if m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// View renders the queue.
func (m Model) View() string {
	if len(m.items) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No screenshots queued.\n\nPress : then type 'extract <file>'.")
	}

	byID := make(map[string]model.QueueItem, len(m.items))
	for _, item := range m.items {
		byID[item.ID] = item
	}

	lines := make([]string, 0, len(m.rows))
	for i, r := range m.rows {
		item := byID[r.itemID]
		var line string
		if r.index < 0 {
			line = m.renderItem(item)
		} else {
			line = "    " + renderCandidate(item.Candidates[r.index])
		}
		if i == m.cursor {
			line = theme.SelectedItemStyle.Render(line)
		} else {
			line = theme.ListItemStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(visible(lines, m.cursor, m.height), "\n")
}

func (m Model) renderItem(item model.QueueItem) string {
	status := theme.QueueStatusStyle(item.Status).Render(string(item.Status))
	label := fmt.Sprintf("Screenshot %s (%s)", shortID(item.ID), humanSize(item.ImageSize))

	switch item.Status {
	case model.QueueExtracting:
		return fmt.Sprintf("%s %s %s", m.spinner.View(), status, label)
	case model.QueueFailed:
		return fmt.Sprintf("✗ %s %s %s", status, label, theme.ErrorStyle.Render(item.ErrorMessage))
	default:
		return fmt.Sprintf("● %s %s %s", status, label,
			theme.DimmedStyle.Render(fmt.Sprintf("%d candidate(s)", len(item.Candidates))))
	}
}

func renderCandidate(c model.ExtractedTodo) string {
	var b strings.Builder
	b.WriteString(theme.PriorityStyle(c.Priority).Render(strings.ToUpper(string(c.Priority))))
	b.WriteString(" ")
	b.WriteString(c.Title)
	if len(c.Tags) > 0 {
		b.WriteString(theme.TagStyle.Render(" #" + strings.Join(c.Tags, ",")))
	}
	if c.DueDate != nil {
		b.WriteString(theme.DueDateStyle.Render(" " + c.DueDate.Format("Jan 02")))
	}
	return b.String()
}

// visible windows lines so the cursor stays on screen.
func visible(lines []string, cursor, height int) []string {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	start := max(cursor-height+1, 0)
	return lines[start : start+height]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
