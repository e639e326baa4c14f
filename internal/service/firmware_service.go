package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"iot-fleet-backend/internal/config"
	"iot-fleet-backend/internal/deploy"
	"iot-fleet-backend/internal/kv"
	"iot-fleet-backend/internal/models"
	"iot-fleet-backend/internal/repository"
)

const nidKeyPrefix = "nid:"

// nidFlag is the payload under nid:{udid}: an outstanding actionable
// push notification. It is only cleared once the user acknowledged it.
type nidFlag struct {
	Done bool `json:"done"`
}

// FirmwareService turns a device's firmware request into a delivery:
// direct bytes, a multi-file bundle, a deferred OTT token, or a
// structured failure.
type FirmwareService struct {
	devices     repository.DeviceStore
	apiKeys     repository.APIKeyStore
	audit       repository.AuditStore
	resolver    deploy.Resolver
	ephemeral   kv.Store
	ott         *OTTService
	platforms   map[string]config.PlatformDescriptor
	redeemedTTL time.Duration
}

func NewFirmwareService(
	devices repository.DeviceStore,
	apiKeys repository.APIKeyStore,
	audit repository.AuditStore,
	resolver deploy.Resolver,
	ephemeral kv.Store,
	ott *OTTService,
	platforms map[string]config.PlatformDescriptor,
	redeemedTTL time.Duration,
) *FirmwareService {
	return &FirmwareService{
		devices:     devices,
		apiKeys:     apiKeys,
		audit:       audit,
		resolver:    resolver,
		ephemeral:   ephemeral,
		ott:         ott,
		platforms:   platforms,
		redeemedTTL: redeemedTTL,
	}
}

// Firmware handles a standard or forced update request. Every outcome
// is a structured Delivery; nothing escapes as an error.
func (s *FirmwareService) Firmware(ctx context.Context, req *FirmwareRequest, apiKey string) *Delivery {
	if req == nil || req.MAC == "" {
		return &Delivery{Success: false, Status: "missing_mac"}
	}
	if apiKey == "" {
		return &Delivery{Success: false, Status: "authentication"}
	}

	if ok, reason := s.apiKeys.Verify(req.Owner, apiKey); !ok && !req.OTT {
		s.audit.Log(req.Owner, fmt.Sprintf("Attempt to use invalid API Key: %s on firmware request.", apiKey))
		if reason == "" {
			reason = "authentication"
		}
		return &Delivery{Success: false, Status: reason}
	}

	s.audit.Log(req.Owner, fmt.Sprintf("Firmware request for device: %s alias: %s", req.UDID, req.Alias))

	device, err := s.devices.GetByUDID(req.UDID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Delivery{Success: false, Status: "device_not_found"}
		}
		log.Printf("Device lookup failed for %s: %v", req.UDID, err)
		return &Delivery{Success: false, Status: "device_not_found"}
	}

	// A foreign device reads as absent; artifacts never cross owners.
	if device.Owner != req.Owner {
		s.audit.Log(req.Owner, fmt.Sprintf("Firmware request for foreign device: %s", req.UDID))
		return &Delivery{Success: false, Status: "device_not_found"}
	}

	if err := s.resolver.InitWithDevice(device.Owner, device.UDID); err != nil {
		log.Printf("Deploy path init failed for %s: %v", device.UDID, err)
	}

	updateAvailable := s.resolver.HasUpdateAvailable(device)
	s.reconcileNID(ctx, device.UDID, updateAvailable)

	// No resolvable build path is always terminal, forced or not.
	path := s.resolver.LatestFirmwarePath(device.Owner, device.UDID)
	if path == "" {
		return &Delivery{Success: false, Status: "UPDATE_NOT_FOUND"}
	}

	if req.Forced {
		updateAvailable = true
	}

	if !updateAvailable {
		return &Delivery{Success: true, Status: "no_update_available"}
	}

	if req.Forced {
		return s.deliverFromPath(ctx, device, path, "")
	}

	if req.OTT {
		token, err := s.ott.OTTRequest(ctx, device.Owner, req)
		if err != nil {
			log.Printf("OTT issue failed for %s: %v", device.UDID, err)
			return &Delivery{Success: false, Status: "ott_store_failed"}
		}
		return &Delivery{Success: true, Status: "OK", OTT: token}
	}

	return s.deliverFromPath(ctx, device, path, "")
}

// OTTUpdate redeems a one-time token: the stored original request is
// resolved back to a device and its artifact is delivered. Expired and
// unknown tokens answer identically.
func (s *FirmwareService) OTTUpdate(ctx context.Context, token string) *Delivery {
	stored, err := s.ott.FetchOTT(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrOTTNotFound) {
			log.Printf("OTT fetch failed: %v", err)
		}
		return &Delivery{Success: false, Status: "OTT_UPDATE_NOT_FOUND", OTT: token}
	}

	device, err := s.devices.GetByUDID(stored.UDID)
	if err != nil {
		return &Delivery{Success: false, Status: "OTT_UPDATE_NOT_AVAILABLE"}
	}

	if err := s.resolver.InitWithDevice(device.Owner, device.UDID); err != nil {
		log.Printf("Deploy path init failed for %s: %v", device.UDID, err)
	}

	path := s.resolver.LatestFirmwarePath(device.Owner, device.UDID)
	if path == "" {
		return &Delivery{Success: false, Status: "OTT_UPDATE_NOT_AVAILABLE"}
	}

	return s.deliverFromPath(ctx, device, path, token)
}

// reconcileNID clears an acknowledged notification flag once the
// device is current; an unacknowledged flag and an absent flag are
// both left alone.
func (s *FirmwareService) reconcileNID(ctx context.Context, udid string, updateAvailable bool) {
	if updateAvailable {
		return
	}

	payload, err := s.ephemeral.Get(ctx, nidKeyPrefix+udid)
	if err != nil {
		// No NID, that's OK.
		return
	}

	var flag nidFlag
	if err := json.Unmarshal([]byte(payload), &flag); err != nil {
		log.Printf("Corrupt NID payload for %s: %v", udid, err)
		return
	}

	if flag.Done {
		log.Printf("Device %s firmware current, clearing NID notification", udid)
		if err := s.ephemeral.Delete(ctx, nidKeyPrefix+udid); err != nil {
			log.Printf("NID delete failed for %s: %v", udid, err)
		}
	}
}

// deliverFromPath transfers the resolved artifact: a file is a
// single-binary update, a directory is a multi-file bundle assembled
// from the device platform's descriptor. A redeemed OTT token is
// re-armed with the short follow-up TTL on successful single-file
// delivery.
func (s *FirmwareService) deliverFromPath(ctx context.Context, device *models.Device, path, ottToken string) *Delivery {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Artifact missing at %s: %v", path, err)
		return &Delivery{Success: false, Status: "UPDATE_NOT_FOUND"}
	}

	if !info.IsDir() {
		payload, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Artifact read failed at %s: %v", path, err)
			return &Delivery{Success: false, Status: "UPDATE_NOT_FOUND"}
		}

		if ottToken != "" {
			if err := s.ott.Redeem(ctx, ottToken, s.redeemedTTL); err != nil {
				log.Printf("OTT re-arm failed: %v", err)
			}
		}

		log.Printf("Sending firmware update from %s", path)
		return &Delivery{Success: true, Status: "FIRMWARE_UPDATE", Payload: payload}
	}

	return s.deliverBundle(device, path)
}

func (s *FirmwareService) deliverBundle(device *models.Device, dir string) *Delivery {
	descriptor, ok := s.platforms[device.Platform]
	if !ok || descriptor.Header == "" || len(descriptor.Extensions) == 0 {
		log.Printf("No multi-file descriptor for platform %q", device.Platform)
		return &Delivery{Success: false, Status: "platform_not_configured"}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Artifact dir read failed at %s: %v", dir, err)
		return &Delivery{Success: false, Status: "UPDATE_NOT_FOUND"}
	}

	var files []FileArtifact
	headerFound := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name != descriptor.Header && !matchesExtension(name, descriptor.Extensions) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Bundle file read failed %s: %v", name, err)
			continue
		}
		if name == descriptor.Header {
			headerFound = true
		}
		files = append(files, FileArtifact{Name: name, Data: data})
	}

	// The header file is mandatory; a bundle without it is not a
	// deliverable artifact.
	if !headerFound {
		return &Delivery{Success: false, Status: "UPDATE_NOT_FOUND"}
	}

	return &Delivery{Success: true, Status: "FIRMWARE_UPDATE", Files: files}
}

func matchesExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
