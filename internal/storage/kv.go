// Package storage holds the key-value backends the record store persists to.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for a key that was never set or was deleted.
var ErrNotFound = errors.New("key not found")

// KV is a string-keyed byte store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns the backend selected by name.
func Open(backend, sqlitePath string) (KV, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported data backend %q", backend)
	}
}
