// Package store provides the key-value backends that entity repositories
// persist through. Values are JSON encoded, so anything that round-trips
// through encoding/json can be stored.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a key-value store of JSON-serializable values.
type Store interface {
	// Get decodes the value stored under key into dst.
	// It reports false, with a nil error, when the key does not exist.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
