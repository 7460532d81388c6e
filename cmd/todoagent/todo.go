package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/todo-agent/internal/app"
	"github.com/nhle/todo-agent/internal/model"
)

var (
	addPriority string
	addTags     []string
	addDue      string
	addCategory string
	listAll     bool
	listFilter  string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a todo",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active todos",
	RunE:  runList,
}

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect and manage deleted todos",
	RunE:  runTrashList,
}

var trashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos in the trash",
	RunE:  runTrashList,
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Move a todo back to the list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, svc *app.Services) error {
			if err := svc.Store.RestoreTodo(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
			return nil
		})
	},
}

var trashPurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Delete a trashed todo permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, svc *app.Services) error {
			if err := svc.Store.PurgeTodo(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", args[0])
			return nil
		})
	},
}

var trashEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Delete every trashed todo permanently",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(ctx context.Context, svc *app.Services) error {
			n, err := svc.Store.EmptyTrash(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d todo(s)\n", n)
			return nil
		})
	},
}

func init() {
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "medium", "priority (high, medium, low)")
	addCmd.Flags().StringSliceVarP(&addTags, "tag", "t", nil, "tag (repeatable)")
	addCmd.Flags().StringVar(&addDue, "due", "", "due date (YYYY-MM-DD)")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category name or id")

	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include completed todos (same as --filter all)")
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "view: all, pending, completed, today or upcoming (default pending)")

	trashCmd.AddCommand(trashListCmd)
	trashCmd.AddCommand(trashRestoreCmd)
	trashCmd.AddCommand(trashPurgeCmd)
	trashCmd.AddCommand(trashEmptyCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	priority, ok := model.ParsePriority(addPriority)
	if !ok {
		return &model.ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", addPriority)}
	}
	draft := model.TodoDraft{
		Title:    args[0],
		Priority: priority,
		Tags:     addTags,
	}
	if addDue != "" {
		due, err := time.Parse("2006-01-02", addDue)
		if err != nil {
			return &model.ValidationError{Field: "due", Message: "use YYYY-MM-DD"}
		}
		draft.DueDate = &due
	}

	return withServices(func(ctx context.Context, svc *app.Services) error {
		if addCategory != "" {
			categories, err := svc.Store.ListCategories(ctx)
			if err != nil {
				return err
			}
			id, err := resolveCategory(addCategory, categories)
			if err != nil {
				return err
			}
			draft.CategoryID = &id
		}

		todo, err := svc.Store.CreateTodo(ctx, draft)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", todo.ID, todo.Title)
		return nil
	})
}

func resolveCategory(nameOrID string, categories []model.Category) (string, error) {
	for _, c := range categories {
		if c.ID == nameOrID || c.Name == nameOrID {
			return c.ID, nil
		}
	}
	return "", &model.NotFoundError{Entity: "category", ID: nameOrID}
}

func runList(cmd *cobra.Command, args []string) error {
	return withServices(func(ctx context.Context, svc *app.Services) error {
		todos, err := svc.Store.ListActive(ctx)
		if err != nil {
			return err
		}
		categories, err := svc.Store.ListCategories(ctx)
		if err != nil {
			return err
		}
		filter, err := listFilterFor(listFilter, listAll)
		if err != nil {
			return err
		}
		todos = filter.Apply(todos, time.Now())
		printTodos(cmd.OutOrStdout(), todos, categories, false)
		return nil
	})
}

// listFilterFor picks the view for `list`. An explicit --filter wins over
// --all; with neither the list shows open todos.
func listFilterFor(name string, all bool) (model.Filter, error) {
	switch {
	case name != "":
		return model.ParseFilter(name)
	case all:
		return model.FilterAll, nil
	default:
		return model.FilterPending, nil
	}
}

func runTrashList(cmd *cobra.Command, args []string) error {
	return withServices(func(ctx context.Context, svc *app.Services) error {
		todos, err := svc.Store.ListTrashed(ctx)
		if err != nil {
			return err
		}
		categories, err := svc.Store.ListCategories(ctx)
		if err != nil {
			return err
		}
		printTodos(cmd.OutOrStdout(), todos, categories, true)
		return nil
	})
}

func printTodos(w io.Writer, todos []model.Todo, categories []model.Category, trash bool) {
	if len(todos) == 0 {
		if trash {
			fmt.Fprintln(w, "Trash is empty.")
		} else {
			fmt.Fprintln(w, "No todos.")
		}
		return
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	last := "Due"
	if trash {
		last = "Deleted"
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "Done", "Priority", "Title", "Category", "Tags", last)
	for i, todo := range todos {
		done := ""
		if todo.Completed {
			done = "x"
		}
		category := ""
		if todo.CategoryID != nil {
			category = names[*todo.CategoryID]
		}
		when := ""
		switch {
		case trash && todo.DeletedAt != nil:
			when = todo.DeletedAt.Local().Format("2006-01-02 15:04")
		case !trash && todo.DueDate != nil:
			when = todo.DueDate.Format("2006-01-02")
		}
		t.Row(strconv.Itoa(i+1), todo.ID, done, string(todo.Priority), todo.Title, category,
			strings.Join(todo.Tags, ","), when)
	}
	fmt.Fprintln(w, t.Render())
}

// withServices opens the services with logs on stderr, runs fn, and closes
// them again.
func withServices(fn func(ctx context.Context, svc *app.Services) error) error {
	svc, err := openServices(os.Stderr)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(context.Background(), svc)
}
