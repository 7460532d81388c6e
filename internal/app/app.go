package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todo-agent/internal/keys"
	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/queue"
	appsync "github.com/nhle/todo-agent/internal/sync"
	"github.com/nhle/todo-agent/internal/ui"
	"github.com/nhle/todo-agent/internal/ui/command"
	"github.com/nhle/todo-agent/internal/ui/detail"
	helpview "github.com/nhle/todo-agent/internal/ui/help"
	"github.com/nhle/todo-agent/internal/ui/queueview"
	"github.com/nhle/todo-agent/internal/ui/todoform"
	"github.com/nhle/todo-agent/internal/ui/todolist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewTodos ViewState = iota
	ViewTrash
	ViewQueue
	ViewHelp
	ViewCommand
	ViewForm
	ViewDetail
)

// tabViews are the views reachable from the tab bar, in order.
var tabViews = []ViewState{ViewTodos, ViewTrash, ViewQueue}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the shared services.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	svc          *Services
	keys         *keys.KeyMap
	todos        todolist.Model
	trash        todolist.Model
	queueView    queueview.Model
	detailView   detail.Model
	helpView     helpview.Model
	commandView  command.Model
	formView     todoform.Model
	ready        bool
	syncing      bool
	notice       string
	noticeErr    bool
}

// New creates the root application model over svc.
func New(svc *Services) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewTodos,
		svc:         svc,
		keys:        k,
		todos:       todolist.New(svc.Store, false, 80, 24),
		trash:       todolist.New(svc.Store, true, 80, 24),
		queueView:   queueview.New(k, 80, 24),
		detailView:  detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		formView:    todoform.New(80, 24),
	}
}

// Init loads both lists, listens for extraction results and starts the
// sync scheduler when one is configured.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.todos.Init(),
		m.trash.Init(),
		m.svc.Queue.WaitForUpdate(),
	}
	if m.svc.Scheduler != nil {
		cmds = append(cmds, m.svc.Scheduler.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.todos.SetSize(w, h)
		m.trash.SetSize(w, h)
		m.queueView.SetSize(w, h)
		m.detailView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.formView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case todolist.LoadedMsg:
		var cmd tea.Cmd
		if msg.Trash {
			m.trash, cmd = m.trash.Update(msg)
		} else {
			m.todos, cmd = m.todos.Update(msg)
		}
		if msg.Err != nil {
			m.setNotice(msg.Err.Error(), true)
		}
		return m, cmd

	case storeResultMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else if msg.notice != "" {
			m.setNotice(msg.notice, false)
		}
		if msg.selectIndex >= 0 {
			m.todos.Select(msg.selectIndex)
		}
		return m, m.reload()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.queueView, cmd = m.queueView.Update(msg)
		return m, cmd

	case queue.ItemUpdatedMsg:
		cmd := m.queueView.SetItems(m.svc.Queue.List())
		if msg.Item.ErrorMessage != "" {
			m.setNotice("Extraction failed: "+msg.Item.ErrorMessage, true)
		} else {
			m.setNotice(fmt.Sprintf("Extracted %d candidate(s)", len(msg.Item.Candidates)), false)
		}
		return m, tea.Batch(cmd, m.svc.Queue.WaitForUpdate())

	case enqueuedMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.setNotice("Queued "+displayName(msg.path), false)
		m.currentView = ViewQueue
		return m, m.queueView.SetItems(m.svc.Queue.List())

	case queueview.ConfirmRequestMsg:
		return m, m.confirm(msg.ItemID, msg.Index)

	case queueview.ConfirmAllRequestMsg:
		return m, m.confirmAllItems()

	case queueview.RemoveRequestMsg:
		if err := m.svc.Queue.Remove(msg.ItemID); err != nil {
			m.setNotice(err.Error(), true)
		}
		return m, m.queueView.SetItems(m.svc.Queue.List())

	case confirmResultMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else {
			m.setNotice(fmt.Sprintf("Added %d todo(s)", msg.created), false)
		}
		return m, tea.Batch(m.queueView.SetItems(m.svc.Queue.List()), m.todos.Load())

	case appsync.SyncResultMsg:
		m.syncing = false
		return m, tea.Batch(m.reload(), m.svc.Scheduler.WaitForNextResult())

	case manualSyncMsg:
		m.syncing = false
		if msg.err != nil {
			m.setNotice("Sync failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setNotice(fmt.Sprintf("Synced (%s, %d todos)", msg.result.Outcome, msg.result.Todos), false)
		return m, m.reload()

	case todoform.TodoCreatedMsg:
		m.currentView = m.previousView
		return m, m.createTodo(msg.Draft)

	case todoform.TodoUpdatedMsg:
		m.currentView = m.previousView
		return m, m.updateTodo(msg.ID, msg.Patch)

	case todoform.TodoFormCancelMsg:
		m.currentView = m.previousView
		return m, nil

	case detail.BackMsg:
		m.currentView = m.previousView
		return m, nil

	case detail.EditMsg:
		m.currentView = m.previousView
		return m, m.openForm(&msg.Todo)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentView == ViewForm || m.currentView == ViewCommand {
			return m.updateActiveView(msg)
		}
		if m.currentView == ViewDetail && !key.Matches(msg, m.keys.Quit) {
			return m.updateActiveView(msg)
		}
		m.notice = ""
		if cmd, handled := m.handleGlobalKeys(msg); handled {
			return m, cmd
		}
		if cmd, handled := m.handleViewKeys(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys shared by the list views and help.
func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.currentView == ViewHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		if key.Matches(msg, m.keys.Quit) {
			return tea.Quit, true
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Help):
		m.openHelp()
		return nil, true
	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	case key.Matches(msg, m.keys.Sync):
		return m.requestSync(), true
	case key.Matches(msg, m.keys.Todos):
		return m.switchView(ViewTodos), true
	case key.Matches(msg, m.keys.Trash):
		return m.switchView(ViewTrash), true
	case key.Matches(msg, m.keys.Queue):
		return m.switchView(ViewQueue), true
	case key.Matches(msg, m.keys.NextView):
		return m.switchView(nextTab(m.currentView)), true
	case key.Matches(msg, m.keys.Back) && m.currentView != ViewTodos:
		return m.switchView(ViewTodos), true
	}
	return nil, false
}

// handleViewKeys processes actions on the selected todo.
func (m *Model) handleViewKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch m.currentView {
	case ViewTodos:
		if key.Matches(msg, m.keys.New) {
			return m.openForm(nil), true
		}
		if key.Matches(msg, m.keys.Filter) {
			f := m.todos.Filter().Next()
			m.setNotice("Filter: "+string(f), false)
			return m.todos.SetFilter(f), true
		}
		todo, ok := m.todos.SelectedTodo()
		if !ok {
			return nil, false
		}
		switch {
		case key.Matches(msg, m.keys.Open):
			m.openDetail(todo)
			return nil, true
		case key.Matches(msg, m.keys.Edit):
			return m.openForm(&todo), true
		case key.Matches(msg, m.keys.Toggle):
			return m.toggleTodo(todo.ID), true
		case key.Matches(msg, m.keys.Delete):
			return m.deleteTodo(todo), true
		case key.Matches(msg, m.keys.MoveUp):
			return m.moveTodo(m.todos.Index(), m.todos.Index()-1), true
		case key.Matches(msg, m.keys.MoveDown):
			return m.moveTodo(m.todos.Index(), m.todos.Index()+1), true
		}

	case ViewTrash:
		if key.Matches(msg, m.keys.EmptyTrash) {
			return m.emptyTrash(), true
		}
		todo, ok := m.trash.SelectedTodo()
		if !ok {
			return nil, false
		}
		switch {
		case key.Matches(msg, m.keys.Open):
			m.openDetail(todo)
			return nil, true
		case key.Matches(msg, m.keys.Restore):
			return m.restoreTodo(todo), true
		case key.Matches(msg, m.keys.Delete):
			return m.purgeTodo(todo), true
		}
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewTodos:
		m.todos, cmd = m.todos.Update(msg)
	case ViewTrash:
		m.trash, cmd = m.trash.Update(msg)
	case ViewQueue:
		m.queueView, cmd = m.queueView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	}

	return m, cmd
}

func (m *Model) switchView(v ViewState) tea.Cmd {
	m.currentView = v
	if v == ViewQueue {
		return m.queueView.SetItems(m.svc.Queue.List())
	}
	return nil
}

func nextTab(v ViewState) ViewState {
	for i, t := range tabViews {
		if t == v {
			return tabViews[(i+1)%len(tabViews)]
		}
	}
	return ViewTodos
}

func (m *Model) openHelp() {
	info := helpview.SyncInfo{
		Configured: m.svc.Sync != nil,
		Scheduled:  m.svc.Scheduler != nil,
		Interval:   m.svc.Config.Sync.Interval(),
	}
	if m.svc.Scheduler != nil {
		info.LastSync = m.svc.Scheduler.Status().LastSync
	}
	m.helpView.SetSync(info)
	m.previousView = m.currentView
	m.currentView = ViewHelp
}

// openForm shows the create form, or the edit form when todo is set.
func (m *Model) openForm(todo *model.Todo) tea.Cmd {
	m.formView.SetCategories(m.todos.Categories())
	m.previousView = m.currentView
	m.currentView = ViewForm
	if todo == nil {
		return m.formView.StartCreate()
	}
	return m.formView.StartEdit(*todo)
}

func (m *Model) openDetail(todo model.Todo) {
	m.detailView.SetTodo(todo, m.todos.Categories())
	m.previousView = m.currentView
	m.currentView = ViewDetail
}

func (m *Model) reload() tea.Cmd {
	return tea.Batch(m.todos.Load(), m.trash.Load())
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case "sync":
		return m.requestSync()
	case "extract":
		return m.enqueueFile(c.Arg)
	case "new":
		m.currentView = ViewTodos
		return m.openForm(nil)
	case "todos":
		return m.switchView(ViewTodos)
	case "trash":
		return m.switchView(ViewTrash)
	case "queue":
		return m.switchView(ViewQueue)
	case "empty trash":
		return m.emptyTrash()
	case "confirm all":
		return m.confirmAllItems()
	case "clear queue":
		m.svc.Queue.Clear()
		return m.queueView.SetItems(nil)
	case "help":
		m.openHelp()
		return nil
	case "quit", "q":
		return tea.Quit
	default:
		m.setNotice("Unknown command: "+c.Name, true)
		return nil
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Todo Agent", m.syncStatus())
	tabs := m.layout.RenderTabs(m.tabLabels(), m.activeTab())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.notice, m.noticeErr)

	return m.layout.RenderWithFrame(header, tabs, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewTodos:
		return m.todos.View()
	case ViewTrash:
		return m.trash.View()
	case ViewQueue:
		return m.queueView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewForm:
		return m.formView.View()
	case ViewDetail:
		return m.detailView.View()
	default:
		return ""
	}
}

func (m Model) tabLabels() []string {
	s := m.svc.Queue.Summary()
	todos := fmt.Sprintf("1 Todos (%d)", m.todos.Len())
	if f := m.todos.Filter(); f != model.FilterAll {
		todos = fmt.Sprintf("1 Todos: %s (%d)", f, m.todos.Len())
	}
	return []string{
		todos,
		fmt.Sprintf("2 Trash (%d)", m.trash.Len()),
		fmt.Sprintf("3 Queue (%d)", s.Extracting+s.Done+s.Failed),
	}
}

func (m Model) activeTab() int {
	v := m.currentView
	if v == ViewHelp || v == ViewCommand || v == ViewForm || v == ViewDetail {
		v = m.previousView
	}
	for i, t := range tabViews {
		if t == v {
			return i
		}
	}
	return 0
}

// syncStatus returns a short string describing the sync state.
func (m Model) syncStatus() string {
	if m.svc.Sync == nil {
		return "sync off"
	}
	if m.syncing {
		return "syncing…"
	}
	if m.svc.Scheduler == nil {
		return "manual sync"
	}

	st := m.svc.Scheduler.Status()
	switch {
	case st.State == appsync.StateRunning:
		return "syncing…"
	case st.State == appsync.StateError:
		return "sync error"
	case st.LastSync.IsZero():
		return "sync pending"
	default:
		return "synced " + st.LastSync.Local().Format("15:04")
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc cancel"
	case ViewForm:
		return "enter next/submit | esc cancel"
	case ViewDetail:
		return "e edit | j/k scroll | esc back"
	case ViewTrash:
		return "enter details | u restore | d delete forever | E empty trash | esc back"
	case ViewQueue:
		return "enter confirm | C confirm all | d discard | esc back"
	default:
		return "q quit | ? help | enter details | n new | e edit | x toggle | d delete | K/J move | f filter | S sync"
	}
}
