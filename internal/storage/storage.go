// Package storage defines the blob persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no value exists for a key.
var ErrNotFound = errors.New("storage: key not found")

// Store is the key-value blob persistence contract. The engine treats
// absence as "first run" and tolerates save failures by logging and
// continuing with in-memory state.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}
