package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todo-agent/internal/keys"
	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/theme"
)

const timeLayout = "2006-01-02 15:04"

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// EditMsg asks the parent to open the edit form for the shown todo.
type EditMsg struct {
	Todo model.Todo
}

// Model is the todo detail view component.
type Model struct {
	todo       *model.Todo
	categories []model.Category
	viewport   viewport.Model
	keys       *keys.KeyMap
	width      int
	height     int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Edit):
			if m.todo != nil && !m.todo.IsTrashed() {
				todo := *m.todo
				return m, func() tea.Msg { return EditMsg{Todo: todo} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.todo == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No todo selected")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.todo == nil {
		return ""
	}
	todo := m.todo
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(todo.Title))

	state := theme.NoticeStyle.Render("open")
	switch {
	case todo.IsTrashed():
		state = theme.ErrorStyle.Render("in trash")
	case todo.Completed:
		state = theme.DimmedStyle.Render("done")
	}
	badges := []string{state, "  ", theme.PriorityStyle(todo.Priority).Render(string(todo.Priority))}
	if c, ok := m.category(todo.CategoryID); ok {
		badges = append(badges, "  ", theme.CategoryStyle(c).Render(c.Name))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(10)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, metaStyle.Render(label+":")+" "+valStyle.Render(value))
	}

	if len(todo.Tags) > 0 {
		meta("Tags", theme.TagStyle.Render("#"+strings.Join(todo.Tags, " #")))
	}
	if todo.DueDate != nil {
		meta("Due", todo.DueDate.Format("2006-01-02"))
	}
	if todo.ReminderAt != nil {
		meta("Reminder", todo.ReminderAt.Local().Format(timeLayout))
	}
	meta("Created", todo.CreatedAt.Local().Format(timeLayout))
	meta("Updated", todo.UpdatedAt.Local().Format(timeLayout))
	if todo.DeletedAt != nil {
		meta("Deleted", todo.DeletedAt.Local().Format(timeLayout))
	}
	meta("ID", todo.ID)

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	sections = append(sections, headerStyle.Render("Description"))

	body := todo.Description
	if body == "" {
		body = lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true).Render("No description")
	}
	sections = append(sections, body)

	if len(todo.Attachments) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render(fmt.Sprintf("Attachments (%d)", len(todo.Attachments))))
		for _, a := range todo.Attachments {
			sections = append(sections, fmt.Sprintf("%s %s  %s  %s",
				theme.TagStyle.Render(string(a.Kind)),
				a.Name,
				theme.DimmedStyle.Render(humanSize(a.Size)),
				theme.DimmedStyle.Render(shortDigest(a.Digest)),
			))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) category(id *string) (model.Category, bool) {
	if id == nil {
		return model.Category{}, false
	}
	for _, c := range m.categories {
		if c.ID == *id {
			return c, true
		}
	}
	return model.Category{}, false
}

// SetTodo updates the todo being displayed and re-renders the content.
func (m *Model) SetTodo(todo model.Todo, categories []model.Category) {
	m.todo = &todo
	m.categories = categories
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.todo != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
