package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/todo-agent/internal/app"
	"github.com/nhle/todo-agent/internal/logging"
	"github.com/nhle/todo-agent/internal/model"
)

var Version = "dev"

var (
	configPath string
	logLevel   string
	cfg        *model.AppConfig
)

var rootCmd = &cobra.Command{
	Use:     "todoagent",
	Short:   "Personal todo manager with screenshot extraction and bucket sync",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal.
		_ = godotenv.Load()

		loaded, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded
		return nil
	},
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openServices builds the logger and the shared services. Logs go to w.
func openServices(w io.Writer) (*app.Services, error) {
	logger, err := logging.New(cfg.Log, w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	svc, err := app.Open(cfg, app.Deps{Logger: logger})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
