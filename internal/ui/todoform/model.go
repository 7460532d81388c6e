package todoform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/theme"
)

const (
	dateLayout     = "2006-01-02"
	reminderLayout = "2006-01-02 15:04"
)

// TodoCreatedMsg is dispatched when the form is submitted for a new todo.
type TodoCreatedMsg struct {
	Draft model.TodoDraft
}

// TodoUpdatedMsg is dispatched when the form is submitted for an existing
// todo. The patch sets every field the form shows.
type TodoUpdatedMsg struct {
	ID    string
	Patch model.TodoPatch
}

// TodoFormCancelMsg is dispatched when the user cancels the form.
type TodoFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    string
	categoryID  string
	tags        string
	dueDate     string
	reminder    string
}

// Model is the Bubble Tea model for the todo create/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	editID     string
	categories []model.Category
	width      int
	height     int
}

// New creates a new todo form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: string(model.PriorityMedium)},
		width:  width,
		height: height,
	}
}

// SetCategories sets the categories offered by the category selector.
func (m *Model) SetCategories(categories []model.Category) {
	m.categories = categories
}

// StartCreate initializes the form for creating a new todo.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = ""
	*m.fb = formBindings{priority: string(model.PriorityMedium)}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with the fields of an existing todo.
func (m *Model) StartEdit(todo model.Todo) tea.Cmd {
	m.editMode = true
	m.editID = todo.ID
	*m.fb = bindingsFor(todo)
	m.form = m.buildForm()
	return m.form.Init()
}

func bindingsFor(todo model.Todo) formBindings {
	fb := formBindings{
		title:       todo.Title,
		description: todo.Description,
		priority:    string(todo.Priority),
		tags:        strings.Join(todo.Tags, ", "),
	}
	if todo.CategoryID != nil {
		fb.categoryID = *todo.CategoryID
	}
	if todo.DueDate != nil {
		fb.dueDate = todo.DueDate.Format(dateLayout)
	}
	if todo.ReminderAt != nil {
		fb.reminder = todo.ReminderAt.Local().Format(reminderLayout)
	}
	return fb
}

// Update handles messages for the todo form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.handleSubmit()
	case huh.StateAborted:
		return m, func() tea.Msg { return TodoFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the todo form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Todo"
	if m.editMode {
		titleText = "Edit Todo"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("High", string(model.PriorityHigh)),
					huh.NewOption("Medium", string(model.PriorityMedium)),
					huh.NewOption("Low", string(model.PriorityLow)),
				).
				Value(&m.fb.priority),
			m.categoryField(),
			huh.NewInput().
				Title("Tags").
				Placeholder("comma separated (optional)").
				Value(&m.fb.tags),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.dueDate).
				Validate(validateOptional(dateLayout, "YYYY-MM-DD")),
			huh.NewInput().
				Title("Reminder").
				Placeholder("YYYY-MM-DD HH:MM (optional)").
				Value(&m.fb.reminder).
				Validate(validateOptional(reminderLayout, "YYYY-MM-DD HH:MM")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) categoryField() huh.Field {
	opts := []huh.Option[string]{huh.NewOption("None", "")}
	for _, c := range m.categories {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}
	return huh.NewSelect[string]().
		Title("Category").
		Options(opts...).
		Value(&m.fb.categoryID)
}

func (m Model) handleSubmit() tea.Cmd {
	fb := *m.fb
	if m.editMode {
		id := m.editID
		patch := fb.patch()
		return func() tea.Msg { return TodoUpdatedMsg{ID: id, Patch: patch} }
	}
	draft := fb.draft()
	return func() tea.Msg { return TodoCreatedMsg{Draft: draft} }
}

func (fb formBindings) draft() model.TodoDraft {
	d := model.TodoDraft{
		Title:       strings.TrimSpace(fb.title),
		Description: strings.TrimSpace(fb.description),
		Priority:    model.Priority(fb.priority),
		Tags:        splitTags(fb.tags),
		DueDate:     parseOptional(dateLayout, fb.dueDate, time.UTC),
		ReminderAt:  parseOptional(reminderLayout, fb.reminder, time.Local),
	}
	if fb.categoryID != "" {
		id := fb.categoryID
		d.CategoryID = &id
	}
	return d
}

func (fb formBindings) patch() model.TodoPatch {
	d := fb.draft()
	priority := d.Priority
	category := fb.categoryID
	p := model.TodoPatch{
		Title:       &d.Title,
		Description: &d.Description,
		Priority:    &priority,
		CategoryID:  &category,
		Tags:        &d.Tags,
		DueDate:     d.DueDate,
		ReminderAt:  d.ReminderAt,
	}
	p.ClearDueDate = d.DueDate == nil
	p.ClearReminder = d.ReminderAt == nil
	return p
}

func splitTags(s string) []string {
	tags := []string{}
	seen := map[string]bool{}
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func parseOptional(layout, s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return nil
	}
	return &t
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptional(layout, hint string) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if _, err := time.Parse(layout, s); err != nil {
			return fmt.Errorf("invalid format, use %s", hint)
		}
		return nil
	}
}
