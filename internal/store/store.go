// Package store provides the key-value backend the poem state lives in.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("key not found")

// Store is a string-keyed byte store with optional per-key expiry.
// A ttl of zero means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent or expired and reports
	// whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// Keys returns the live keys starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// PurgeExpired deletes expired keys and returns how many were removed.
	PurgeExpired(ctx context.Context) (int, error)
	Close() error
}
