package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/todo-agent/internal/app"
	"github.com/nhle/todo-agent/internal/model"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal interface (default)",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal, so logs go to a file.
	logPath := filepath.Join(model.ConfigDir(), "todoagent.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	svc, err := openServices(logFile)
	if err != nil {
		return err
	}
	defer svc.Close()

	p := tea.NewProgram(app.New(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
