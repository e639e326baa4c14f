package service

import (
	"sync"

	"iot-fleet-backend/internal/deploy"
	"iot-fleet-backend/internal/models"
	"iot-fleet-backend/internal/repository"
)

// fakeDeviceStore is an in-memory DeviceStore with the same revision
// semantics as the database-backed repository. conflictsLeft injects
// that many artificial write conflicts before letting updates through.
type fakeDeviceStore struct {
	mu            sync.Mutex
	devices       map[string]models.Device
	conflictsLeft int
	updateCalls   int
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{devices: make(map[string]models.Device)}
}

func (f *fakeDeviceStore) GetByUDID(udid string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	device, ok := f.devices[udid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := device
	return &copied, nil
}

func (f *fakeDeviceStore) GetByMAC(owner, mac string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, device := range f.devices {
		if device.Owner == owner && device.MAC == mac {
			copied := device
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDeviceStore) Insert(device *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.devices[device.UDID]; ok {
		return repository.ErrDuplicate
	}
	f.devices[device.UDID] = *device
	return nil
}

func (f *fakeDeviceStore) Update(device *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updateCalls++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return repository.ErrConflict
	}

	stored, ok := f.devices[device.UDID]
	if !ok || stored.Revision != device.Revision {
		return repository.ErrConflict
	}
	device.Revision++
	f.devices[device.UDID] = *device
	return nil
}

func (f *fakeDeviceStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

// fakeAPIKeyStore accepts a single owner/key pair.
type fakeAPIKeyStore struct {
	owner  string
	apiKey string
}

func (f *fakeAPIKeyStore) Verify(owner, apiKey string) (bool, string) {
	if owner != f.owner {
		return false, "owner_found_but_no_key"
	}
	if apiKey != f.apiKey {
		return false, "apikey_not_found"
	}
	return true, ""
}

// fakeAuditStore records messages for assertion.
type fakeAuditStore struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeAuditStore) Log(owner, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeAuditStore) entries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// fakeResolver serves a fixed update decision and artifact path.
type fakeResolver struct {
	updateAvailable bool
	envelope        *deploy.Envelope
	firmwarePath    string

	ownerInits  []string
	deviceInits []string
}

func (f *fakeResolver) HasUpdateAvailable(*models.Device) bool {
	return f.updateAvailable
}

func (f *fakeResolver) LatestEnvelope(*models.Device) (*deploy.Envelope, error) {
	if f.envelope == nil {
		return nil, deploy.ErrNoEnvelope
	}
	return f.envelope, nil
}

func (f *fakeResolver) LatestFirmwarePath(owner, udid string) string {
	return f.firmwarePath
}

func (f *fakeResolver) InitWithOwner(owner string) error {
	f.ownerInits = append(f.ownerInits, owner)
	return nil
}

func (f *fakeResolver) InitWithDevice(owner, udid string) error {
	f.deviceInits = append(f.deviceInits, owner+"/"+udid)
	return nil
}

// fakeBuildLogStore mirrors the revision semantics of the build log
// repository and can inject conflicts ahead of successful updates.
type fakeBuildLogStore struct {
	mu            sync.Mutex
	records       map[string]models.BuildLog
	conflictsLeft int
}

func newFakeBuildLogStore() *fakeBuildLogStore {
	return &fakeBuildLogStore{records: make(map[string]models.BuildLog)}
}

func (f *fakeBuildLogStore) Get(buildID string) (*models.BuildLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[buildID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := record
	copied.Log = append([]models.BuildLogEntry(nil), record.Log...)
	return &copied, nil
}

func (f *fakeBuildLogStore) Insert(record *models.BuildLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.records[record.BuildID]; ok {
		return repository.ErrDuplicate
	}
	f.records[record.BuildID] = *record
	return nil
}

func (f *fakeBuildLogStore) Update(record *models.BuildLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return repository.ErrConflict
	}

	stored, ok := f.records[record.BuildID]
	if !ok || stored.Revision != record.Revision {
		return repository.ErrConflict
	}
	record.Revision++
	f.records[record.BuildID] = *record
	return nil
}

func (f *fakeBuildLogStore) ListByOwner(owner string, limit int) ([]models.BuildLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var records []models.BuildLog
	for _, record := range f.records {
		if record.Owner == owner {
			records = append(records, record)
		}
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// fakeProvisioner records provisioning attempts.
type fakeProvisioner struct {
	provisioned []string
	err         error
}

func (f *fakeProvisioner) Provision(udid, apiKey string) error {
	f.provisioned = append(f.provisioned, udid)
	return f.err
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
