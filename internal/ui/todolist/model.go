package todolist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/store"
	"github.com/nhle/todo-agent/internal/theme"
)

// LoadedMsg is sent when todos have been loaded from the store.
type LoadedMsg struct {
	Trash      bool
	Todos      []model.Todo
	Categories []model.Category
	Err        error
}

// Model shows either the active todos or the trash.
type Model struct {
	list       list.Model
	store      store.Store
	trash      bool
	categories map[string]model.Category
	ordered    []model.Category
	all        []model.Todo
	filter     model.Filter
	now        func() time.Time
	err        error
	width      int
	height     int
}

// New creates a todo list. When trash is true the list shows soft-deleted
// todos, most recently deleted first.
func New(s store.Store, trash bool, width, height int) Model {
	categories := make(map[string]model.Category)
	delegate := ItemDelegate{categories: categories, trash: trash, now: time.Now}

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Todos"
	if trash {
		l.Title = "Trash"
	}
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:       l,
		store:      s,
		trash:      trash,
		categories: categories,
		filter:     model.FilterAll,
		now:        time.Now,
		width:      width,
		height:     height,
	}
}

// Init returns a command that loads the initial set of todos.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Update handles messages for the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(LoadedMsg); ok {
		if msg.Trash != m.trash {
			return m, nil
		}
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		if msg.Categories != nil {
			clear(m.categories)
			m.ordered = msg.Categories
			for _, c := range msg.Categories {
				m.categories[c.ID] = c
			}
		}
		m.all = msg.Todos
		return m, m.applyFilter()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list.
func (m Model) View() string {
	if m.err != nil {
		return m.centered().Foreground(theme.ColorRed).Render("Could not load todos:\n" + m.err.Error())
	}
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	if m.trash {
		return m.centered().Render("Trash is empty.")
	}
	if len(m.all) > 0 {
		return m.centered().Render("No " + string(m.filter) + " todos.\n\nPress f to change the filter.")
	}
	return m.centered().Render(
		"No todos yet.\n\n" +
			"Press n to add one, or : then 'extract <file>' to read a screenshot.",
	)
}

func (m Model) centered() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)
}

// Load returns a tea.Cmd that reads this list's todos and the categories.
func (m Model) Load() tea.Cmd {
	s := m.store
	trash := m.trash
	return func() tea.Msg {
		ctx := context.Background()
		var (
			todos []model.Todo
			err   error
		)
		if trash {
			todos, err = s.ListTrashed(ctx)
		} else {
			todos, err = s.ListActive(ctx)
		}
		if err != nil {
			return LoadedMsg{Trash: trash, Err: err}
		}
		categories, err := s.ListCategories(ctx)
		if err != nil {
			return LoadedMsg{Trash: trash, Err: err}
		}
		return LoadedMsg{Trash: trash, Todos: todos, Categories: categories}
	}
}

// SelectedTodo returns the todo under the cursor.
func (m Model) SelectedTodo() (model.Todo, bool) {
	item, ok := m.list.SelectedItem().(TodoItem)
	if !ok {
		return model.Todo{}, false
	}
	return item.Todo, true
}

// Index returns the cursor position.
func (m Model) Index() int {
	return m.list.Index()
}

// Len returns the number of todos shown.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Select moves the cursor to index i.
func (m *Model) Select(i int) {
	m.list.Select(i)
}

// SetFilter narrows the list to todos matching f. The trash ignores it.
func (m *Model) SetFilter(f model.Filter) tea.Cmd {
	if m.trash {
		return nil
	}
	m.filter = f
	return m.applyFilter()
}

// Filter returns the filter in effect.
func (m Model) Filter() model.Filter {
	return m.filter
}

// FullIndex maps a position in the shown list to the todo's position in
// the unfiltered list, or -1 when i is out of range.
func (m Model) FullIndex(i int) int {
	items := m.list.Items()
	if i < 0 || i >= len(items) {
		return -1
	}
	id := items[i].(TodoItem).Todo.ID
	for j, t := range m.all {
		if t.ID == id {
			return j
		}
	}
	return -1
}

func (m *Model) applyFilter() tea.Cmd {
	todos := m.all
	if !m.trash {
		todos = m.filter.Apply(todos, m.now())
	}
	items := make([]list.Item, len(todos))
	for i, t := range todos {
		items[i] = TodoItem{Todo: t}
	}
	return m.list.SetItems(items)
}

// Categories returns the categories seen on the last load, in store order.
func (m Model) Categories() []model.Category {
	return m.ordered
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
