package service

import (
	"context"
	"errors"

	"iot-fleet-backend/internal/models"
	"iot-fleet-backend/internal/repository"

	"github.com/sethvargo/go-retry"
)

// EditResult is the outcome of an operator device edit.
type EditResult struct {
	Success bool           `json:"success"`
	Status  string         `json:"status,omitempty"`
	Change  *DeviceChanges `json:"change,omitempty"`
}

// Edit applies an owner-scoped partial update to a device record.
// Only the owning account may mutate its devices.
func (s *RegistrationService) Edit(ctx context.Context, owner string, changes *DeviceChanges) *EditResult {
	if changes == nil {
		return &EditResult{Success: false, Status: "changes_undefined"}
	}
	if owner == "" {
		return &EditResult{Success: false, Status: "owner_undefined"}
	}
	if changes.UDID == "" {
		return &EditResult{Success: false, Status: "udid_undefined"}
	}

	backoff := retry.WithMaxRetries(s.conflictRetries, retry.NewConstant(conflictRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		device, err := s.devices.GetByUDID(changes.UDID)
		if err != nil {
			return err
		}
		if device.Owner != owner {
			return repository.ErrNotFound
		}

		applyChanges(device, changes)

		if err := s.devices.Update(device); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &EditResult{Success: false, Status: "no_such_device"}
		}
		return &EditResult{Success: false, Status: "device_not_changed"}
	}
	return &EditResult{Success: true, Change: changes}
}

func applyChanges(device *models.Device, changes *DeviceChanges) {
	if changes.Alias != nil {
		device.Alias = *changes.Alias
	}
	if changes.AutoUpdate != nil {
		device.AutoUpdate = *changes.AutoUpdate
	}
	if changes.Description != nil {
		device.Description = *changes.Description
	}
	if changes.Category != nil {
		device.Category = *changes.Category
	}
	if changes.Tags != nil {
		device.Tags = *changes.Tags
	}
}
