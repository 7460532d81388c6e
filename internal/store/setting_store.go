package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const originIDKey = "origin_id"

// GetSetting returns the value stored under key. The boolean is false when
// the key has never been set.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioErr(fmt.Sprintf("reading setting %s", key), err)
	}
	return value, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return ioErr(fmt.Sprintf("writing setting %s", key), err)
	}
	return nil
}

// OriginID returns the identifier of this installation, generating and
// persisting one on first use.
func (s *SQLiteStore) OriginID(ctx context.Context) (string, error) {
	id, ok, err := s.GetSetting(ctx, originIDKey)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.New().String()
	// INSERT OR IGNORE keeps the first id if two callers race.
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)", originIDKey, id,
	); err != nil {
		return "", ioErr("creating origin id", err)
	}
	id, _, err = s.GetSetting(ctx, originIDKey)
	return id, err
}
