package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-agent/internal/model"
)

const (
	defaultCategoryColor = "#6366F1"
	defaultCategoryIcon  = "folder"
)

var (
	selectCategories = "SELECT " + categoryColumnList + " FROM categories"
	insertCategory   = "INSERT INTO categories (" + categoryColumnList + ") VALUES (" + placeholders(len(categoryFields)) + ")"

	// upsertCategory keeps the stored row when it was edited after the
	// incoming copy. Equal timestamps let the incoming copy through.
	upsertCategory = insertCategory +
		" ON CONFLICT(id) DO UPDATE SET " + excludedAssignments(categoryFields) +
		" WHERE excluded.updated_at >= categories.updated_at"
)

// ListCategories returns all categories in creation order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := queryCategories(ctx, s.db)
	if err != nil {
		return nil, ioErr("listing categories", err)
	}
	return categories, nil
}

func queryCategories(ctx context.Context, q sqlx.QueryerContext) ([]model.Category, error) {
	var rows []categoryRow
	if err := sqlx.SelectContext(ctx, q, &rows, selectCategories+" ORDER BY rowid"); err != nil {
		return nil, err
	}
	categories := make([]model.Category, 0, len(rows))
	for _, r := range rows {
		c, err := r.toCategory()
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}

// CreateCategory inserts a new category. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateCategory(ctx context.Context, c model.Category) (*model.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, &model.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Color == "" {
		c.Color = defaultCategoryColor
	}
	if c.Icon == "" {
		c.Icon = defaultCategoryIcon
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, insertCategory, categoryValues(c)...)
	if err != nil {
		return nil, ioErr(fmt.Sprintf("creating category %s", c.Name), err)
	}
	return &c, nil
}

// UpdateCategory replaces the name, color and icon of an existing category
// and bumps its updated_at.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, c model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &model.ValidationError{Field: "name", Message: "must not be empty"}
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, color = ?, icon = ?, updated_at = ? WHERE id = ?",
		c.Name, c.Color, c.Icon, formatTime(time.Now()), c.ID,
	)
	if err != nil {
		return ioErr(fmt.Sprintf("updating category %s", c.ID), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound("category", c.ID, "")
	}
	return nil
}

// DeleteCategory removes a category immediately. Todos keep their
// category_id, which then dangles.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return ioErr(fmt.Sprintf("deleting category %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFound("category", id, "")
	}
	return nil
}
