package help

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todo-agent/internal/keys"
	"github.com/nhle/todo-agent/internal/theme"
)

// SyncInfo is the sync state shown under the shortcuts.
type SyncInfo struct {
	Configured bool
	Scheduled  bool
	Interval   time.Duration
	LastSync   time.Time
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	sync   SyncInfo
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetSync updates the sync details shown in the overlay.
func (m *Model) SetSync(info SyncInfo) {
	m.sync = info
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		theme.DimmedStyle.Render(m.syncLine()),
	)

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Render(content)
}

func (m Model) syncLine() string {
	switch {
	case !m.sync.Configured:
		return "Sync: no bucket configured (storage section of config.yaml)"
	case !m.sync.Scheduled:
		return "Sync: manual only, press S to sync now"
	case m.sync.LastSync.IsZero():
		return fmt.Sprintf("Sync: every %s, not yet synced", m.sync.Interval)
	default:
		return fmt.Sprintf("Sync: every %s, last at %s", m.sync.Interval, m.sync.LastSync.Local().Format("15:04"))
	}
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
