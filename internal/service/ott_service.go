package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"iot-fleet-backend/internal/kv"
	"iot-fleet-backend/pkg/utils"
)

const ottKeyPrefix = "ott:"

// ErrOTTNotFound is returned for unknown and expired tokens alike.
var ErrOTTNotFound = errors.New("ott not found")

// OTTService issues and redeems one-time tokens that let a device
// fetch firmware asynchronously without re-authenticating. A token
// maps to the serialized original update request.
type OTTService struct {
	store kv.Store
	ttl   time.Duration
}

func NewOTTService(store kv.Store, ttl time.Duration) *OTTService {
	return &OTTService{store: store, ttl: ttl}
}

// StoreOTT serializes the update request under a fresh token with the
// full TTL and returns the token.
func (s *OTTService) StoreOTT(ctx context.Context, req *FirmwareRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to serialize ott request: %w", err)
	}

	token := utils.TimestampToken()
	if err := s.store.Set(ctx, ottKeyPrefix+token, string(payload), s.ttl); err != nil {
		return "", fmt.Errorf("failed to store ott: %w", err)
	}
	return token, nil
}

// FetchOTT resolves a token back to the stored update request.
func (s *OTTService) FetchOTT(ctx context.Context, token string) (*FirmwareRequest, error) {
	payload, err := s.store.Get(ctx, ottKeyPrefix+token)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, ErrOTTNotFound
		}
		return nil, err
	}

	var req FirmwareRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("corrupt ott payload: %w", err)
	}
	return &req, nil
}

// OTTRequest wraps StoreOTT for the firmware endpoint. The caller has
// already been authenticated by the firmware flow.
func (s *OTTService) OTTRequest(ctx context.Context, owner string, req *FirmwareRequest) (string, error) {
	return s.StoreOTT(ctx, req)
}

// Redeem shortens a token's remaining TTL after a successful delivery.
// The token is not deleted outright so short-window retries of an
// in-flight fetch still succeed.
func (s *OTTService) Redeem(ctx context.Context, token string, ttl time.Duration) error {
	return s.store.Expire(ctx, ottKeyPrefix+token, ttl)
}
