package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-agent/internal/model"
)

// storeAttachments writes every inline payload into the blobs table and
// returns the attachments as metadata only. Attachments without a payload
// are assumed to reference a blob already stored.
func storeAttachments(
	ctx context.Context,
	ext sqlx.ExecerContext,
	atts []model.Attachment,
	now time.Time,
) ([]model.Attachment, error) {
	out := make([]model.Attachment, 0, len(atts))
	for _, a := range atts {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.Kind == "" {
			a.Kind = model.AttachmentFile
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if len(a.Payload) > 0 {
			a.Digest = model.ContentDigest(a.Payload)
			a.Size = int64(len(a.Payload))
			_, err := ext.ExecContext(ctx,
				"INSERT OR IGNORE INTO blobs (digest, data, size, created_at) VALUES (?, ?, ?, ?)",
				a.Digest, a.Payload, a.Size, formatTime(now),
			)
			if err != nil {
				return nil, fmt.Errorf("storing blob %s: %w", a.Digest, err)
			}
		}
		a.Payload = nil
		out = append(out, a)
	}
	return out, nil
}

// collectBlobs deletes payloads no todo references any more.
func collectBlobs(ctx context.Context, ext sqlx.ExecerContext) error {
	_, err := ext.ExecContext(ctx, `
		DELETE FROM blobs WHERE digest NOT IN (
			SELECT json_extract(a.value, '$.digest')
			FROM todos, json_each(todos.attachments) AS a
			WHERE json_extract(a.value, '$.digest') IS NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("deleting unreferenced blobs: %w", err)
	}
	return nil
}

// AttachmentPayload returns the stored bytes for a content digest.
func (s *SQLiteStore) AttachmentPayload(ctx context.Context, digest string) ([]byte, error) {
	return loadBlob(ctx, s.db, digest)
}

func loadBlob(ctx context.Context, q sqlx.QueryerContext, digest string) ([]byte, error) {
	var data []byte
	err := sqlx.GetContext(ctx, q, &data, "SELECT data FROM blobs WHERE digest = ?", digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("attachment", digest, "")
	}
	if err != nil {
		return nil, ioErr(fmt.Sprintf("reading attachment %s", digest), err)
	}
	return data, nil
}

// withPayloads fills in the payload of every attachment that has a stored
// blob. Missing blobs leave the payload empty.
func withPayloads(ctx context.Context, q sqlx.QueryerContext, todos []model.Todo) error {
	for i := range todos {
		for j := range todos[i].Attachments {
			a := &todos[i].Attachments[j]
			if len(a.Payload) > 0 || a.Digest == "" {
				continue
			}
			data, err := loadBlob(ctx, q, a.Digest)
			if model.IsNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			a.Payload = data
		}
	}
	return nil
}
