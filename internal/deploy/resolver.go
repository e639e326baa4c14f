package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"iot-fleet-backend/internal/models"

	"golang.org/x/mod/semver"
)

// ErrNoEnvelope is returned when no firmware has been deployed for a
// device yet.
var ErrNoEnvelope = errors.New("no firmware envelope")

// Envelope describes the latest applicable firmware artifact selected
// for a device. Produced by the build pipeline, consumed read-only.
type Envelope struct {
	URL      string `json:"url"`
	MAC      string `json:"mac"`
	Commit   string `json:"commit"`
	Version  string `json:"version"`
	Checksum string `json:"checksum"`
	BuildID  string `json:"build_id,omitempty"`

	// Artifact is the deliverable, relative to the device's deploy
	// directory. A file is a single-binary update; a directory is a
	// multi-file update.
	Artifact string `json:"artifact,omitempty"`
}

// Resolver answers the update decision for a device and locates the
// deliverable artifact on disk.
type Resolver interface {
	HasUpdateAvailable(device *models.Device) bool
	LatestEnvelope(device *models.Device) (*Envelope, error)
	// LatestFirmwarePath returns the absolute artifact path, or ""
	// when nothing deployable exists for the device.
	LatestFirmwarePath(owner, udid string) string
	// InitWithOwner and InitWithDevice lazily provision the deploy
	// directory structure. Both are idempotent.
	InitWithOwner(owner string) error
	InitWithDevice(owner, udid string) error
}

// FilesystemResolver reads envelope.json files below the deploy root.
// Layout: {root}/{owner}/{udid}/envelope.json, with the artifact path
// inside the envelope relative to the device directory.
type FilesystemResolver struct {
	root string
}

func NewFilesystemResolver(root string) *FilesystemResolver {
	return &FilesystemResolver{root: root}
}

// PathForDevice returns the device's deploy directory
func (r *FilesystemResolver) PathForDevice(owner, udid string) string {
	return filepath.Join(r.root, owner, udid)
}

func (r *FilesystemResolver) InitWithOwner(owner string) error {
	return os.MkdirAll(filepath.Join(r.root, owner), 0o755)
}

func (r *FilesystemResolver) InitWithDevice(owner, udid string) error {
	return os.MkdirAll(r.PathForDevice(owner, udid), 0o755)
}

func (r *FilesystemResolver) LatestEnvelope(device *models.Device) (*Envelope, error) {
	return r.readEnvelope(device.Owner, device.UDID)
}

// HasUpdateAvailable reports whether the deployed envelope carries a
// strictly newer version than the device declares. Any resolver
// failure reads as "no update" (fail-safe).
func (r *FilesystemResolver) HasUpdateAvailable(device *models.Device) bool {
	envelope, err := r.readEnvelope(device.Owner, device.UDID)
	if err != nil {
		if !errors.Is(err, ErrNoEnvelope) {
			log.Printf("[deploy] envelope read failed for %s: %v", device.UDID, err)
		}
		return false
	}
	return versionNewer(envelope.Version, device.Version)
}

func (r *FilesystemResolver) LatestFirmwarePath(owner, udid string) string {
	envelope, err := r.readEnvelope(owner, udid)
	if err != nil || envelope.Artifact == "" {
		return ""
	}
	path := filepath.Join(r.PathForDevice(owner, udid), envelope.Artifact)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (r *FilesystemResolver) readEnvelope(owner, udid string) (*Envelope, error) {
	path := filepath.Join(r.PathForDevice(owner, udid), "envelope.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoEnvelope
		}
		return nil, err
	}

	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid envelope %s: %w", path, err)
	}
	return &envelope, nil
}

// versionNewer reports whether candidate is a strictly newer semantic
// version than current. Unparseable versions never trigger an update.
func versionNewer(candidate, current string) bool {
	c, d := "v"+candidate, "v"+current
	if !semver.IsValid(c) || !semver.IsValid(d) {
		return false
	}
	return semver.Compare(c, d) > 0
}
