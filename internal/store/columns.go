package store

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/todo-agent/internal/model"
)

// timeLayout is fixed-width so that ORDER BY on timestamp text columns
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// fieldMapping binds an entity field, as named on the sync wire format, to
// its database column.
type fieldMapping struct {
	Field  string
	Column string
}

// todoFields is the complete column mapping for the todos table, in
// SELECT order.
var todoFields = []fieldMapping{
	{Field: "id", Column: "id"},
	{Field: "title", Column: "title"},
	{Field: "description", Column: "description"},
	{Field: "completed", Column: "completed"},
	{Field: "priority", Column: "priority"},
	{Field: "categoryId", Column: "category_id"},
	{Field: "tags", Column: "tags"},
	{Field: "dueDate", Column: "due_date"},
	{Field: "reminder", Column: "reminder"},
	{Field: "screenshot", Column: "screenshot"},
	{Field: "attachments", Column: "attachments"},
	{Field: "sortOrder", Column: "sort_order"},
	{Field: "createdAt", Column: "created_at"},
	{Field: "updatedAt", Column: "updated_at"},
	{Field: "deletedAt", Column: "deleted_at"},
}

// categoryFields is the complete column mapping for the categories table.
var categoryFields = []fieldMapping{
	{Field: "id", Column: "id"},
	{Field: "name", Column: "name"},
	{Field: "color", Column: "color"},
	{Field: "icon", Column: "icon"},
	{Field: "updatedAt", Column: "updated_at"},
}

var (
	todoColumnList     = columnList(todoFields)
	categoryColumnList = columnList(categoryFields)
)

func columnList(fields []fieldMapping) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return strings.Join(cols, ", ")
}

// excludedAssignments renders "col = excluded.col" for every field but id,
// for the DO UPDATE clause of an upsert.
func excludedAssignments(fields []fieldMapping) string {
	sets := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Column == "id" {
			continue
		}
		sets = append(sets, f.Column+" = excluded."+f.Column)
	}
	return strings.Join(sets, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// todoColumn returns the column for a todo field. Unknown fields panic since
// they can only come from a programming error.
func todoColumn(field string) string {
	for _, f := range todoFields {
		if f.Field == field {
			return f.Column
		}
	}
	panic(fmt.Sprintf("store: no column mapped for todo field %q", field))
}

// todoRow is the database shape of a todo.
type todoRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Completed   int            `db:"completed"`
	Priority    string         `db:"priority"`
	CategoryID  sql.NullString `db:"category_id"`
	Tags        string         `db:"tags"`
	DueDate     sql.NullString `db:"due_date"`
	Reminder    sql.NullString `db:"reminder"`
	Screenshot  sql.NullString `db:"screenshot"`
	Attachments string         `db:"attachments"`
	SortOrder   int            `db:"sort_order"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
	DeletedAt   sql.NullString `db:"deleted_at"`
}

// values returns the row's column values in todoFields order.
func (r todoRow) values() []any {
	return []any{
		r.ID, r.Title, r.Description, r.Completed, r.Priority,
		r.CategoryID, r.Tags, r.DueDate, r.Reminder, r.Screenshot,
		r.Attachments, r.SortOrder, r.CreatedAt, r.UpdatedAt, r.DeletedAt,
	}
}

// categoryRow is the database shape of a category. A zero UpdatedAt is
// stored as the empty string so it sorts before every real timestamp.
type categoryRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Color     string `db:"color"`
	Icon      string `db:"icon"`
	UpdatedAt string `db:"updated_at"`
}

func categoryValues(c model.Category) []any {
	updated := ""
	if !c.UpdatedAt.IsZero() {
		updated = formatTime(c.UpdatedAt)
	}
	return []any{c.ID, c.Name, c.Color, c.Icon, updated}
}

func (r categoryRow) toCategory() (model.Category, error) {
	c := model.Category{ID: r.ID, Name: r.Name, Color: r.Color, Icon: r.Icon}
	if r.UpdatedAt == "" {
		return c, nil
	}
	t, err := parseTime(r.UpdatedAt)
	if err != nil {
		return model.Category{}, fmt.Errorf("category %s updated_at: %w", r.ID, err)
	}
	c.UpdatedAt = t
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// rowFromTodo converts a todo into its row form. Attachment payloads must
// already have been moved into the blobs table.
func rowFromTodo(t model.Todo) (todoRow, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return todoRow{}, fmt.Errorf("marshaling tags for todo %s: %w", t.ID, err)
	}
	attJSON, err := marshalAttachments(t.Attachments)
	if err != nil {
		return todoRow{}, fmt.Errorf("marshaling attachments for todo %s: %w", t.ID, err)
	}

	return todoRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   boolToInt(t.Completed),
		Priority:    string(t.Priority),
		CategoryID:  nullString(t.CategoryID),
		Tags:        string(tagsJSON),
		DueDate:     nullTime(t.DueDate),
		Reminder:    nullTime(t.ReminderAt),
		Attachments: attJSON,
		SortOrder:   t.SortOrder,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
		DeletedAt:   nullTime(t.DeletedAt),
	}, nil
}

// toTodo converts a row into a todo. A legacy screenshot column is surfaced
// as the first attachment with its payload inline.
func (r todoRow) toTodo() (model.Todo, error) {
	t := model.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed != 0,
		Priority:    model.Priority(r.Priority),
		SortOrder:   r.SortOrder,
		Tags:        []string{},
	}
	if !t.Priority.Valid() {
		t.Priority = model.PriorityMedium
	}
	if r.CategoryID.Valid && r.CategoryID.String != "" {
		id := r.CategoryID.String
		t.CategoryID = &id
	}

	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &t.Tags); err != nil {
			return model.Todo{}, fmt.Errorf("unmarshaling tags for todo %s: %w", r.ID, err)
		}
		if t.Tags == nil {
			t.Tags = []string{}
		}
	}

	var err error
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return model.Todo{}, err
	}
	if t.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return model.Todo{}, err
	}
	if t.DueDate, err = parseNullTime(r.DueDate); err != nil {
		return model.Todo{}, err
	}
	if t.ReminderAt, err = parseNullTime(r.Reminder); err != nil {
		return model.Todo{}, err
	}
	if t.DeletedAt, err = parseNullTime(r.DeletedAt); err != nil {
		return model.Todo{}, err
	}

	if r.Attachments != "" {
		if err := json.Unmarshal([]byte(r.Attachments), &t.Attachments); err != nil {
			return model.Todo{}, fmt.Errorf("unmarshaling attachments for todo %s: %w", r.ID, err)
		}
	}
	if r.Screenshot.Valid && r.Screenshot.String != "" {
		if legacy, ok := legacyScreenshot(r.ID, r.Screenshot.String, t.CreatedAt); ok {
			t.Attachments = append([]model.Attachment{legacy}, t.Attachments...)
		}
	}

	return t, nil
}

func marshalAttachments(atts []model.Attachment) (string, error) {
	meta := make([]model.Attachment, len(atts))
	for i, a := range atts {
		a.Payload = nil
		meta[i] = a
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// legacyScreenshot decodes the pre-attachments screenshot column, which holds
// a base64 image optionally wrapped in a data URL. Undecodable values are
// ignored.
func legacyScreenshot(todoID, encoded string, createdAt time.Time) (model.Attachment, bool) {
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ",")
		if idx < 0 {
			return model.Attachment{}, false
		}
		encoded = encoded[idx+1:]
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(payload) == 0 {
		return model.Attachment{}, false
	}
	return model.Attachment{
		ID:        "screenshot-" + todoID,
		Name:      "screenshot",
		Kind:      model.AttachmentImage,
		Digest:    model.ContentDigest(payload),
		Size:      int64(len(payload)),
		Payload:   payload,
		CreatedAt: createdAt,
	}, true
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func jsonText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
