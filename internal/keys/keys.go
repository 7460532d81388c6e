package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application. Some keys
// mean different things per view (d deletes a todo, purges from trash, or
// drops a queue item).
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Views
	Todos    key.Binding
	Trash    key.Binding
	Queue    key.Binding
	NextView key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	Command key.Binding
	Help    key.Binding
	Sync    key.Binding

	// Todo actions
	Open     key.Binding
	New      key.Binding
	Edit     key.Binding
	Toggle   key.Binding
	Delete   key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Filter   key.Binding

	// Trash actions
	Restore    key.Binding
	EmptyTrash key.Binding

	// Queue actions
	Confirm    key.Binding
	ConfirmAll key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Todos: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "todos"),
		),
		Trash: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "trash"),
		),
		Queue: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "screenshot queue"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Sync: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "sync now"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new todo"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x/space", "toggle done"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move down"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle filter"),
		),
		Restore: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "restore"),
		),
		EmptyTrash: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "empty trash"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter", "c"),
			key.WithHelp("enter/c", "confirm"),
		),
		ConfirmAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "confirm all"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.NextView, k.New,
		k.Toggle, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Todos, k.Trash, k.Queue, k.NextView},
		{k.Open, k.New, k.Edit, k.Toggle, k.Delete, k.MoveUp, k.MoveDown, k.Filter},
		{k.Restore, k.EmptyTrash, k.Confirm, k.ConfirmAll},
		{k.Sync, k.Command, k.Help, k.Back, k.Quit},
	}
}
