package service

import (
	"context"
	"testing"
	"time"

	"iot-fleet-backend/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppableClock lets tests walk a MemoryStore through TTL windows.
type steppableClock struct {
	now time.Time
}

func (c *steppableClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newOTTFixture(t *testing.T, ttl time.Duration) (*OTTService, *steppableClock) {
	t.Helper()
	clock := &steppableClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := kv.NewMemoryStore()
	store.Now = func() time.Time { return clock.now }
	return NewOTTService(store, ttl), clock
}

func TestOTTRoundTrip(t *testing.T) {
	svc, _ := newOTTFixture(t, 24*time.Hour)

	req := &FirmwareRequest{MAC: "AA:BB:CC:DD:EE:FF", UDID: "device-1", Owner: testOwner}
	token, err := svc.StoreOTT(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	fetched, err := svc.FetchOTT(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, req.UDID, fetched.UDID)
	assert.Equal(t, req.Owner, fetched.Owner)
	assert.Equal(t, req.MAC, fetched.MAC)
}

func TestOTTTokensAreUnique(t *testing.T) {
	svc, _ := newOTTFixture(t, 24*time.Hour)

	req := &FirmwareRequest{UDID: "device-1", Owner: testOwner}
	first, err := svc.StoreOTT(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.StoreOTT(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestOTTExpiry(t *testing.T) {
	svc, clock := newOTTFixture(t, 24*time.Hour)

	token, err := svc.StoreOTT(context.Background(), &FirmwareRequest{UDID: "device-1"})
	require.NoError(t, err)

	// Still valid just inside the window.
	clock.advance(23 * time.Hour)
	_, err = svc.FetchOTT(context.Background(), token)
	require.NoError(t, err)

	// Gone once the window closes.
	clock.advance(2 * time.Hour)
	_, err = svc.FetchOTT(context.Background(), token)
	assert.ErrorIs(t, err, ErrOTTNotFound)
}

func TestOTTUnknownToken(t *testing.T) {
	svc, _ := newOTTFixture(t, 24*time.Hour)

	_, err := svc.FetchOTT(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrOTTNotFound)
}

func TestOTTRedeemShortensWindow(t *testing.T) {
	svc, clock := newOTTFixture(t, 24*time.Hour)

	token, err := svc.StoreOTT(context.Background(), &FirmwareRequest{UDID: "device-1"})
	require.NoError(t, err)

	// Redemption re-arms the token to a short follow-up window
	// instead of deleting it outright.
	require.NoError(t, svc.Redeem(context.Background(), token, time.Hour))

	clock.advance(30 * time.Minute)
	_, err = svc.FetchOTT(context.Background(), token)
	require.NoError(t, err)

	clock.advance(time.Hour)
	_, err = svc.FetchOTT(context.Background(), token)
	assert.ErrorIs(t, err, ErrOTTNotFound)
}
