package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/todo-agent/internal/app"
	"github.com/nhle/todo-agent/internal/model"
)

var extractConfirm bool

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract todos from a screenshot",
	Long: `Send a screenshot to the configured vision model and print the
todos it proposes. With --confirm every proposal is added to the list
with the screenshot attached.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractConfirm, "confirm", false, "add every extracted todo")
}

func runExtract(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading screenshot: %w", err)
	}

	return withServices(func(ctx context.Context, svc *app.Services) error {
		id, err := svc.Queue.Enqueue(image)
		if err != nil {
			return err
		}
		svc.Queue.Wait()

		item, ok := svc.Queue.Get(id)
		if !ok {
			return &model.NotFoundError{Entity: "queue item", ID: id}
		}
		if item.Status == model.QueueFailed {
			return errors.New("extraction failed: " + item.ErrorMessage)
		}

		w := cmd.OutOrStdout()
		if len(item.Candidates) == 0 {
			fmt.Fprintln(w, "No todos found in the screenshot.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("#", "Priority", "Title", "Tags", "Due")
		for i, c := range item.Candidates {
			due := ""
			if c.DueDate != nil {
				due = c.DueDate.Format("2006-01-02")
			}
			t.Row(strconv.Itoa(i+1), string(c.Priority), c.Title, strings.Join(c.Tags, ","), due)
		}
		fmt.Fprintln(w, t.Render())

		if !extractConfirm {
			return nil
		}
		todos, err := svc.Queue.ConfirmAll(ctx, id)
		fmt.Fprintf(w, "Added %d todo(s)\n", len(todos))
		return err
	})
}
