package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"iot-fleet-backend/internal/deploy"
	"iot-fleet-backend/internal/models"
	"iot-fleet-backend/internal/repository"
	"iot-fleet-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const conflictRetryDelay = 25 * time.Millisecond

// minReusableUDIDLength is the shortest request-supplied UDID accepted
// for reuse; anything shorter gets a freshly synthesized identifier.
const minReusableUDIDLength = 5

type RegistrationService struct {
	devices         repository.DeviceStore
	apiKeys         repository.APIKeyStore
	audit           repository.AuditStore
	resolver        deploy.Resolver
	provisioner     Provisioner
	conflictRetries uint64
}

func NewRegistrationService(
	devices repository.DeviceStore,
	apiKeys repository.APIKeyStore,
	audit repository.AuditStore,
	resolver deploy.Resolver,
	provisioner Provisioner,
	conflictRetries uint64,
) *RegistrationService {
	return &RegistrationService{
		devices:         devices,
		apiKeys:         apiKeys,
		audit:           audit,
		resolver:        resolver,
		provisioner:     provisioner,
		conflictRetries: conflictRetries,
	}
}

// Register validates an inbound device request, creates or updates the
// device record, and resolves the firmware update decision. The result
// is always a structured registration envelope; no failure escapes as
// an error.
func (s *RegistrationService) Register(ctx context.Context, req *RegistrationRequest, apiKey string) *RegistrationResult {
	if req == nil {
		return registrationFailure("no_registration_info")
	}

	if req.Owner == "" {
		return registrationFailure("old_protocol_owner")
	}
	owner := req.Owner

	if apiKey == "" {
		s.audit.Log(owner, "Attempt to register without API Key!")
		return registrationFailure("authentication")
	}

	if ok, reason := s.apiKeys.Verify(owner, apiKey); !ok {
		s.audit.Log(owner, fmt.Sprintf("Attempt to use invalid API Key: %s on device registration.", apiKey))
		if reason == "" {
			reason = "authentication"
		}
		return registrationFailure(reason)
	}

	s.audit.Log(owner, fmt.Sprintf("Attempt to register device: %s alias: %s", req.UDID, stringOrEmpty(req.Alias)))

	// Creates the owner's deploy path if it does not exist yet.
	if err := s.resolver.InitWithOwner(owner); err != nil {
		log.Printf("Deploy path init failed for owner %s: %v", owner, err)
	}

	udid := req.UDID
	if len(udid) < minReusableUDIDLength {
		udid = newUDID()
	}
	mac := NormalizeMACPtr(req.MAC)

	device, udid, err := s.findDevice(owner, udid, mac)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("Device lookup failed for %s: %v", udid, err)
		return registrationFailure("insert_failed")
	}

	if device != nil {
		device, err = s.checkin(ctx, device, req, apiKey)
	} else {
		device, err = s.createDevice(owner, udid, mac, req, apiKey)
	}
	if err != nil {
		log.Printf("Device persistence failed for %s: %v", udid, err)
		return registrationFailure("insert_failed")
	}

	// The update decision is always resolved before responding.
	registration := Registration{
		Success:    true,
		Status:     "OK",
		Owner:      device.Owner,
		Alias:      device.Alias,
		UDID:       device.UDID,
		AutoUpdate: device.AutoUpdate,
	}
	s.applyUpdateDecision(device, &registration)

	return &RegistrationResult{Registration: registration}
}

// findDevice resolves the existing record for a request: by UDID when
// the owners match, otherwise by mac+owner (devices that lost their
// assigned UDID). ErrNotFound means a new device. The returned UDID is
// the one any new record must be created under; a claimed identifier
// that belongs to another account is replaced by a fresh one.
func (s *RegistrationService) findDevice(owner, udid, mac string) (*models.Device, string, error) {
	device, err := s.devices.GetByUDID(udid)
	if err == nil {
		if device.Owner == owner {
			return device, udid, nil
		}
		// The record's owner wins; this caller may not adopt the
		// UDID and falls through to the mac lookup.
		log.Printf("Owner mismatch for device %s: stored %s, claimed %s", udid, device.Owner, owner)
		udid = newUDID()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, udid, err
	}

	if mac == MACUndefined || mac == MACEmpty {
		return nil, udid, repository.ErrNotFound
	}
	device, err = s.devices.GetByMAC(owner, mac)
	return device, udid, err
}

// checkin merges the fields present in the request into the stored
// record and persists via a revision-checked update, retrying losing
// writers against fresh reads a bounded number of times.
func (s *RegistrationService) checkin(ctx context.Context, device *models.Device, req *RegistrationRequest, apiKey string) (*models.Device, error) {
	udid := device.UDID
	var updated *models.Device

	backoff := retry.WithMaxRetries(s.conflictRetries, retry.NewConstant(conflictRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fresh, err := s.devices.GetByUDID(udid)
		if err != nil {
			return err
		}

		applyCheckinFields(fresh, req, apiKey)

		if err := s.devices.Update(fresh); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		updated = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyCheckinFields overwrites only the fields present in the
// request; partial updates never null out existing data. The stored
// owner is authoritative and is not touched here.
func applyCheckinFields(device *models.Device, req *RegistrationRequest, apiKey string) {
	if req.Firmware != nil {
		device.Firmware = *req.Firmware
	}
	if req.Push != nil {
		device.Push = *req.Push
	}
	if req.Alias != nil {
		device.Alias = *req.Alias
	}
	device.LastUpdate = time.Now().UTC()
	device.LastKey = utils.SHA256Hex(apiKey)
}

func (s *RegistrationService) createDevice(owner, udid, mac string, req *RegistrationRequest, apiKey string) (*models.Device, error) {
	device := &models.Device{
		UDID:        udid,
		MAC:         mac,
		Owner:       owner,
		Firmware:    stringOr(req.Firmware, "unknown"),
		Version:     stringOr(req.Version, "1.0.0"),
		Checksum:    stringOrEmpty(req.Checksum),
		Platform:    stringOr(req.Platform, "unknown"),
		Alias:       stringOrEmpty(req.Alias),
		Push:        stringOrEmpty(req.Push),
		AutoUpdate:  false,
		LastUpdate:  time.Now().UTC(),
		LastKey:     utils.SHA256Hex(apiKey),
		MQTT:        fmt.Sprintf("/%s/%s", owner, udid),
		Description: "new device",
	}

	// Best-effort messaging credential; failure never blocks the
	// registration.
	if s.provisioner != nil {
		if err := s.provisioner.Provision(udid, apiKey); err != nil {
			log.Printf("MQTT credential provisioning failed for %s: %v", udid, err)
		}
	}

	if err := s.devices.Insert(device); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A writer created the UDID first; the identifier space
			// is time-ordered, so collisions mean a replayed request.
			return nil, fmt.Errorf("device %s already exists: %w", udid, err)
		}
		return nil, err
	}
	return device, nil
}

// applyUpdateDecision consults the firmware resolver and shapes the
// response. Any resolver outcome other than a definite update reads as
// "no update".
func (s *RegistrationService) applyUpdateDecision(device *models.Device, registration *Registration) {
	if !s.resolver.HasUpdateAvailable(device) {
		return
	}

	envelope, err := s.resolver.LatestEnvelope(device)
	if err != nil {
		log.Printf("Firmware envelope fetch failed for %s: %v", device.UDID, err)
		return
	}

	responseMAC := envelope.MAC
	if responseMAC == "" {
		responseMAC = device.MAC
	}

	registration.Status = "FIRMWARE_UPDATE"
	registration.URL = envelope.URL
	registration.MAC = NormalizeMAC(responseMAC)
	registration.Commit = envelope.Commit
	registration.Version = envelope.Version
	registration.Checksum = envelope.Checksum
}

// newUDID synthesizes a time-ordered unique device identifier.
func newUDID() string {
	if id, err := uuid.NewUUID(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

func registrationFailure(status string) *RegistrationResult {
	return &RegistrationResult{Registration: Registration{
		Success: false,
		Status:  status,
	}}
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

func stringOrEmpty(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
