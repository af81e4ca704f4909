// Package storage is the durable key/value layer behind the cart and auth
// stores. Values are opaque blobs; the cart keeps one JSON array under a
// single well-known key.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when the key has never been written.
// Callers treat it as "empty", never as a failure.
var ErrNotFound = errors.New("storage: key not found")

// Storage is the persistence contract. OnChange delivers notifications for
// writes performed through other contexts (another process or connection);
// delivery timing is not bounded and carries no payload, so observers re-read
// the key instead of trusting what they last saw. A context may also receive
// notifications for its own writes; the resync path is idempotent, so that is
// only redundant work.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// OnChange registers fn to run when key changes. The returned cancel
	// removes the registration.
	OnChange(key string, fn func()) (cancel func(), err error)

	Close() error
}
