package repository

import (
	"errors"
	"strings"

	"iot-fleet-backend/internal/models"

	"gorm.io/gorm"
)

// DeviceStore is the Device Directory contract. Update is
// revision-checked: it only applies when the stored revision equals
// the one the caller read, and reports ErrConflict otherwise.
type DeviceStore interface {
	GetByUDID(udid string) (*models.Device, error)
	GetByMAC(owner, mac string) (*models.Device, error)
	Insert(device *models.Device) error
	Update(device *models.Device) error
}

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepo(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// GetByUDID retrieves a device by its primary key
func (r *DeviceRepository) GetByUDID(udid string) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("udid = ?", udid).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

// GetByMAC retrieves a device by its normalized hardware address,
// scoped to the authenticated owner. Used as the fallback lookup for
// devices that lost their assigned UDID.
func (r *DeviceRepository) GetByMAC(owner, mac string) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("owner = ? AND mac = ?", owner, mac).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

// Insert creates a new device record
func (r *DeviceRepository) Insert(device *models.Device) error {
	err := r.db.Create(device).Error
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// Update persists a device mutation conditioned on the revision the
// caller read; the revision advances by one on success.
func (r *DeviceRepository) Update(device *models.Device) error {
	readRevision := device.Revision
	device.Revision = readRevision + 1

	result := r.db.Model(&models.Device{}).
		Where("udid = ? AND revision = ?", device.UDID, readRevision).
		Select("*").Omit("created_at").
		Updates(device)

	if result.Error != nil {
		device.Revision = readRevision
		return result.Error
	}
	if result.RowsAffected == 0 {
		device.Revision = readRevision
		return ErrConflict
	}
	return nil
}

// isDuplicateKey detects a primary-key collision across the MySQL
// driver's error surfaces.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
