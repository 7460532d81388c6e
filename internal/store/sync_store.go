package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-agent/internal/model"
)

// Snapshot reads every todo (active and trashed) and every category in one
// transaction. Attachment payloads are loaded inline so the result can be
// shipped to another installation as is.
func (s *SQLiteStore) Snapshot(ctx context.Context) (model.LocalData, error) {
	readAt := time.Now().UTC()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.LocalData{}, ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	todos, err := queryTodos(ctx, tx, selectTodos+" ORDER BY sort_order ASC, created_at DESC")
	if err != nil {
		return model.LocalData{}, ioErr("reading todos for snapshot", err)
	}
	if err := withPayloads(ctx, tx, todos); err != nil {
		return model.LocalData{}, err
	}

	categories, err := queryCategories(ctx, tx)
	if err != nil {
		return model.LocalData{}, ioErr("reading categories for snapshot", err)
	}

	return model.LocalData{Todos: todos, Categories: categories, ReadAt: readAt}, nil
}

// ApplyMerged writes the todos and categories in data in one transaction.
// A stored todo is only replaced by a copy with a later updated_at, and a
// stored category by one at least as recent, so edits made since data was
// computed are kept. Records absent from data are left alone. When the
// writes leave two active todos with the same sort_order, the active list is
// renumbered.
func (s *SQLiteStore) ApplyMerged(ctx context.Context, data model.LocalData) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := writeAll(ctx, tx, data); err != nil {
		return err
	}

	var dupes int
	err = tx.GetContext(ctx, &dupes,
		"SELECT COUNT(*) - COUNT(DISTINCT sort_order) FROM todos WHERE deleted_at IS NULL")
	if err != nil {
		return ioErr("checking sort_order", err)
	}
	if dupes > 0 {
		var ids []string
		err = tx.SelectContext(ctx, &ids,
			"SELECT id FROM todos WHERE deleted_at IS NULL ORDER BY sort_order ASC, created_at DESC")
		if err != nil {
			return ioErr("listing active todo ids", err)
		}
		if err := renumber(ctx, tx, ids); err != nil {
			return err
		}
	}

	if err := collectBlobs(ctx, tx); err != nil {
		return ioErr("collecting unused attachments", err)
	}
	if err := tx.Commit(); err != nil {
		return ioErr("committing merged data", err)
	}
	return nil
}

// ReplaceAll discards every local todo and category and writes data in their
// place, in one transaction. When since is set and a todo or category was
// written after it, nothing changes and model.ErrLocalChanged is returned.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, data model.LocalData, since time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ioErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if !since.IsZero() {
		var changed int
		err := tx.GetContext(ctx, &changed,
			`SELECT (SELECT COUNT(*) FROM todos WHERE updated_at > ?) +
			        (SELECT COUNT(*) FROM categories WHERE updated_at > ?)`,
			formatTime(since), formatTime(since))
		if err != nil {
			return ioErr("checking for local changes", err)
		}
		if changed > 0 {
			return model.ErrLocalChanged
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM todos"); err != nil {
		return ioErr("clearing todos", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
		return ioErr("clearing categories", err)
	}
	if err := writeAll(ctx, tx, data); err != nil {
		return err
	}
	if err := collectBlobs(ctx, tx); err != nil {
		return ioErr("collecting unused attachments", err)
	}
	if err := tx.Commit(); err != nil {
		return ioErr("committing replaced data", err)
	}
	return nil
}

// writeAll upserts todos and categories exactly as given, timestamps
// included. Records from other installations may lack a priority or tags.
func writeAll(ctx context.Context, tx *sqlx.Tx, data model.LocalData) error {
	now := time.Now().UTC()

	todoStmt, err := tx.PreparexContext(ctx, upsertTodo)
	if err != nil {
		return ioErr("preparing todo upsert", err)
	}
	defer todoStmt.Close()

	for _, t := range data.Todos {
		if t.ID == "" {
			return &model.ValidationError{Field: "id", Message: "todo without id in sync data"}
		}
		if !t.Priority.Valid() {
			t.Priority = model.PriorityMedium
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		t.Attachments, err = storeAttachments(ctx, tx, t.Attachments, now)
		if err != nil {
			return ioErr(fmt.Sprintf("storing attachments for todo %s", t.ID), err)
		}
		row, err := rowFromTodo(t)
		if err != nil {
			return err
		}
		if _, err := todoStmt.ExecContext(ctx, row.values()...); err != nil {
			return ioErr(fmt.Sprintf("upserting todo %s", t.ID), err)
		}
	}

	catStmt, err := tx.PreparexContext(ctx, upsertCategory)
	if err != nil {
		return ioErr("preparing category upsert", err)
	}
	defer catStmt.Close()

	for _, c := range data.Categories {
		if c.ID == "" {
			return &model.ValidationError{Field: "id", Message: "category without id in sync data"}
		}
		if _, err := catStmt.ExecContext(ctx, categoryValues(c)...); err != nil {
			return ioErr(fmt.Sprintf("upserting category %s", c.ID), err)
		}
	}

	return nil
}
