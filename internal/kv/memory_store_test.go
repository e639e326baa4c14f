package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedStore() (*MemoryStore, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Now = func() time.Time { return now }
	return store, &now
}

func TestMemoryStoreGetSet(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestMemoryStoreTTL(t *testing.T) {
	store, now := newClockedStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))

	*now = now.Add(59 * time.Minute)
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreExpireReArms(t *testing.T) {
	store, now := newClockedStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 24*time.Hour))
	require.NoError(t, store.Expire(ctx, "k", time.Hour))

	*now = now.Add(30 * time.Minute)
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreExpireMissingKey(t *testing.T) {
	store, _ := newClockedStore()

	err := store.Expire(context.Background(), "missing", time.Hour)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreExpireZeroDeletes(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, store.Expire(ctx, "k", 0))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}
