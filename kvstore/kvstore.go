// Package kvstore provides small byte-valued key-value stores that survive
// between runs of a process, for caches that must outlive it.
package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for a key that has no value.
	ErrNotFound = errors.New("kvstore: key not found")

	ErrEmptyDir = errors.New("kvstore: empty directory")
)

// Store is a string-keyed byte store. Implementations are safe for
// concurrent use. Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
