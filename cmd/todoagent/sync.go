package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/todo-agent/internal/app"
	appsync "github.com/nhle/todo-agent/internal/sync"
)

var syncReconcile bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle against the configured bucket",
	Long: `Run one sync cycle against the configured bucket.

By default local and remote todos are merged record by record and the
result is uploaded. With --reconcile the newer side wins wholesale.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncReconcile, "reconcile", false, "adopt the newer side wholesale instead of merging")
}

func runSync(cmd *cobra.Command, args []string) error {
	return withServices(func(ctx context.Context, svc *app.Services) error {
		engine, err := svc.RequireSync()
		if err != nil {
			return err
		}

		var res appsync.CycleResult
		if syncReconcile {
			res, err = engine.ReconcileOnce(ctx)
		} else {
			res, err = engine.SyncOnce(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Sync %s: %d todo(s), %d categor(ies)\n",
			res.Outcome, res.Todos, res.Categories)
		return nil
	})
}
