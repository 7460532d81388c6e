package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-agent/internal/model"
)

var (
	selectTodos = "SELECT " + todoColumnList + " FROM todos"
	insertTodo  = "INSERT INTO todos (" + todoColumnList + ") VALUES (" + placeholders(len(todoFields)) + ")"

	// upsertTodo only overwrites a stored todo with a strictly newer copy, so
	// an edit made while a sync cycle was in flight survives it.
	upsertTodo = insertTodo +
		" ON CONFLICT(id) DO UPDATE SET " + excludedAssignments(todoFields) +
		" WHERE excluded.updated_at > todos.updated_at"
)

// ListActive returns every todo not in the trash, ordered by sort_order with
// the newest first on ties.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]model.Todo, error) {
	todos, err := queryTodos(ctx, s.db,
		selectTodos+" WHERE deleted_at IS NULL ORDER BY sort_order ASC, created_at DESC")
	if err != nil {
		return nil, ioErr("listing active todos", err)
	}
	return todos, nil
}

// ListTrashed returns every trashed todo, most recently deleted first.
func (s *SQLiteStore) ListTrashed(ctx context.Context) ([]model.Todo, error) {
	todos, err := queryTodos(ctx, s.db,
		selectTodos+" WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC")
	if err != nil {
		return nil, ioErr("listing trashed todos", err)
	}
	return todos, nil
}

// GetTodo retrieves a single todo by ID, active or trashed.
func (s *SQLiteStore) GetTodo(ctx context.Context, id string) (*model.Todo, error) {
	return getTodo(ctx, s.db, id)
}

// CreateTodo validates draft and inserts it at the end of the active list.
func (s *SQLiteStore) CreateTodo(ctx context.Context, draft model.TodoDraft) (*model.Todo, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, &model.ValidationError{Field: "title", Message: "must not be empty"}
	}
	priority := draft.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, &model.ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", priority)}
	}

	now := time.Now().UTC()
	todo := model.Todo{
		ID:          uuid.New().String(),
		Title:       title,
		Description: draft.Description,
		Completed:   draft.Completed,
		Priority:    priority,
		CategoryID:  draft.CategoryID,
		Tags:        draft.Tags,
		DueDate:     draft.DueDate,
		ReminderAt:  draft.ReminderAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if todo.Tags == nil {
		todo.Tags = []string{}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	var maxOrder int
	err = tx.GetContext(ctx, &maxOrder,
		"SELECT COALESCE(MAX(sort_order), -1) FROM todos WHERE deleted_at IS NULL")
	if err != nil {
		return nil, ioErr("getting max sort_order", err)
	}
	todo.SortOrder = maxOrder + 1

	todo.Attachments, err = storeAttachments(ctx, tx, draft.Attachments, now)
	if err != nil {
		return nil, ioErr("storing attachments", err)
	}

	row, err := rowFromTodo(todo)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, insertTodo, row.values()...); err != nil {
		return nil, ioErr("creating todo", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, ioErr("committing todo", err)
	}

	return &todo, nil
}

// UpdateTodo applies the non-nil fields of patch and bumps updated_at.
// Trashed todos may be updated.
func (s *SQLiteStore) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return nil, &model.ValidationError{Field: "title", Message: "must not be empty"}
		}
		patch.Title = &trimmed
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, &model.ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", *patch.Priority)}
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	sets, args, err := patchAssignments(ctx, tx, patch, now)
	if err != nil {
		return nil, err
	}
	args = append(args, id)

	query := "UPDATE todos SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, ioErr(fmt.Sprintf("updating todo %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, notFound("todo", id, "")
	}

	if patch.Attachments != nil {
		if err := collectBlobs(ctx, tx); err != nil {
			return nil, ioErr("collecting unused attachments", err)
		}
	}

	todo, err := getTodo(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, ioErr("committing todo update", err)
	}
	return todo, nil
}

// patchAssignments renders the SET clauses of a todo update, always ending
// with updated_at.
func patchAssignments(ctx context.Context, tx *sqlx.Tx, p model.TodoPatch, now time.Time) ([]string, []any, error) {
	var sets []string
	var args []any
	set := func(field string, v any) {
		sets = append(sets, todoColumn(field)+" = ?")
		args = append(args, v)
	}

	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Completed != nil {
		set("completed", boolToInt(*p.Completed))
	}
	if p.Priority != nil {
		set("priority", string(*p.Priority))
	}
	if p.CategoryID != nil {
		set("categoryId", nullString(p.CategoryID))
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		b, err := jsonText(tags)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling tags: %w", err)
		}
		set("tags", b)
	}
	switch {
	case p.ClearDueDate:
		set("dueDate", nil)
	case p.DueDate != nil:
		set("dueDate", formatTime(*p.DueDate))
	}
	switch {
	case p.ClearReminder:
		set("reminder", nil)
	case p.ReminderAt != nil:
		set("reminder", formatTime(*p.ReminderAt))
	}
	if p.Attachments != nil {
		atts, err := storeAttachments(ctx, tx, *p.Attachments, now)
		if err != nil {
			return nil, nil, ioErr("storing attachments", err)
		}
		encoded, err := marshalAttachments(atts)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling attachments: %w", err)
		}
		set("attachments", encoded)
		set("screenshot", nil)
	}
	set("updatedAt", formatTime(now))

	return sets, args, nil
}

// ToggleTodo flips the completed flag.
func (s *SQLiteStore) ToggleTodo(ctx context.Context, id string) (*model.Todo, error) {
	current, err := s.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	completed := !current.Completed
	return s.UpdateTodo(ctx, id, model.TodoPatch{Completed: &completed})
}

// SoftDeleteTodo moves an active todo to the trash.
func (s *SQLiteStore) SoftDeleteTodo(ctx context.Context, id string) error {
	now := formatTime(time.Now().UTC())
	result, err := s.db.ExecContext(ctx,
		"UPDATE todos SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return ioErr(fmt.Sprintf("trashing todo %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound("todo", id, "no active todo with this id")
	}
	return nil
}

// RestoreTodo takes a todo out of the trash. If another active todo has
// taken its sort_order meanwhile, it moves to the end of the list.
func (s *SQLiteStore) RestoreTodo(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	var sortOrder int
	err = tx.GetContext(ctx, &sortOrder,
		"SELECT sort_order FROM todos WHERE id = ? AND deleted_at IS NOT NULL", id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("todo", id, "no trashed todo with this id")
	}
	if err != nil {
		return ioErr(fmt.Sprintf("reading todo %s", id), err)
	}

	var clashes int
	err = tx.GetContext(ctx, &clashes,
		"SELECT COUNT(*) FROM todos WHERE deleted_at IS NULL AND sort_order = ?", sortOrder)
	if err != nil {
		return ioErr("checking sort_order", err)
	}
	if clashes > 0 {
		err = tx.GetContext(ctx, &sortOrder,
			"SELECT COALESCE(MAX(sort_order), -1) + 1 FROM todos WHERE deleted_at IS NULL")
		if err != nil {
			return ioErr("getting max sort_order", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE todos SET deleted_at = NULL, sort_order = ?, updated_at = ? WHERE id = ?",
		sortOrder, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return ioErr(fmt.Sprintf("restoring todo %s", id), err)
	}
	if err := tx.Commit(); err != nil {
		return ioErr("committing restore", err)
	}
	return nil
}

// PurgeTodo permanently removes a todo and any payloads only it referenced.
func (s *SQLiteStore) PurgeTodo(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return ioErr(fmt.Sprintf("purging todo %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound("todo", id, "")
	}
	if err := collectBlobs(ctx, tx); err != nil {
		return ioErr("collecting unused attachments", err)
	}
	if err := tx.Commit(); err != nil {
		return ioErr("committing purge", err)
	}
	return nil
}

// EmptyTrash permanently removes every trashed todo and returns how many
// were removed.
func (s *SQLiteStore) EmptyTrash(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE deleted_at IS NOT NULL")
	if err != nil {
		return 0, ioErr("emptying trash", err)
	}
	n, _ := result.RowsAffected()
	if err := collectBlobs(ctx, tx); err != nil {
		return 0, ioErr("collecting unused attachments", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, ioErr("committing empty trash", err)
	}
	return int(n), nil
}

// ReorderTodos moves the active todo at fromIndex to toIndex and renumbers
// the whole active list 0..n-1. Indices refer to the ListActive order.
func (s *SQLiteStore) ReorderTodos(ctx context.Context, fromIndex, toIndex int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	var ids []string
	err = tx.SelectContext(ctx, &ids,
		"SELECT id FROM todos WHERE deleted_at IS NULL ORDER BY sort_order ASC, created_at DESC")
	if err != nil {
		return ioErr("listing active todo ids", err)
	}

	n := len(ids)
	if fromIndex < 0 || fromIndex >= n {
		return &model.ValidationError{Field: "fromIndex", Message: fmt.Sprintf("index %d out of range [0,%d)", fromIndex, n)}
	}
	if toIndex < 0 || toIndex >= n {
		return &model.ValidationError{Field: "toIndex", Message: fmt.Sprintf("index %d out of range [0,%d)", toIndex, n)}
	}

	moved := ids[fromIndex]
	ids = append(ids[:fromIndex], ids[fromIndex+1:]...)
	ids = append(ids[:toIndex], append([]string{moved}, ids[toIndex:]...)...)

	if err := renumber(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return ioErr("committing reorder", err)
	}
	return nil
}

// renumber assigns sort_order = position for each id.
func renumber(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	stmt, err := tx.PreparexContext(ctx, "UPDATE todos SET sort_order = ? WHERE id = ?")
	if err != nil {
		return ioErr("preparing reorder statement", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return ioErr(fmt.Sprintf("renumbering todo %s", id), err)
		}
	}
	return nil
}

func getTodo(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Todo, error) {
	var row todoRow
	err := sqlx.GetContext(ctx, q, &row, selectTodos+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("todo", id, "")
	}
	if err != nil {
		return nil, ioErr(fmt.Sprintf("getting todo %s", id), err)
	}
	todo, err := row.toTodo()
	if err != nil {
		return nil, ioErr(fmt.Sprintf("decoding todo %s", id), err)
	}
	return &todo, nil
}

func queryTodos(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]model.Todo, error) {
	var rows []todoRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	todos := make([]model.Todo, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTodo()
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, nil
}
