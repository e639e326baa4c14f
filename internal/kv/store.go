package kv

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is absent or has expired.
// Callers must not distinguish the two cases: an expired OTT token
// and a token that never existed answer identically.
var ErrKeyNotFound = errors.New("key not found")

// Store is the ephemeral key-value space shared by OTT tokens and NID
// flags. Entries live until their TTL elapses or Expire re-arms them.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Expire replaces the remaining TTL of an existing key. A
	// non-positive TTL deletes the key immediately.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
