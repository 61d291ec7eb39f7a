// internal/kv/kv.go
//
// Key-value persistence used for the game snapshot.
// Implementations:
//   - Memory: map guarded by RWMutex; ephemeral, used in tests and when
//     durability is not required.
//   - SQLite: single-file store (default), see sqlite.go.
//   - Redis: shared store, see redis.go.

package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: not found")

// Store is the persistence interface the snapshot writer depends on.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}
