package objstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_object_store.go -package=mocks github.com/nhle/todo-agent/internal/objstore ObjectStore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no object.
var ErrNotFound = errors.New("object not found")

// ObjectStore stores whole objects under string keys.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
