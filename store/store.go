// Package store persists encoded boards by key.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has never been created.
	ErrNotFound = errors.New("store: key not found")
	// ErrExists is returned by Create when the key is already present.
	ErrExists = errors.New("store: key already exists")
)

// UpdateFunc receives the current value and returns the replacement. A
// non-nil error aborts the update and nothing is written.
type UpdateFunc func(cur []byte) ([]byte, error)

// Store is a key/value store with atomic read-modify-write.
type Store interface {
	// Create writes val under key only if key is absent.
	Create(ctx context.Context, key, val []byte) error
	// Get returns a copy of the value under key.
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Update applies fn to the value under key atomically.
	Update(ctx context.Context, key []byte, fn UpdateFunc) error
	Close() error
}
