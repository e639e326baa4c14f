package repository

import (
	"errors"

	"iot-fleet-backend/internal/models"

	"gorm.io/gorm"
)

// BuildLogStore is the Build Log Store contract. Appends go through
// Get + Update with a revision check so concurrent appenders for the
// same build are serialized without losing entries.
type BuildLogStore interface {
	Get(buildID string) (*models.BuildLog, error)
	Insert(record *models.BuildLog) error
	Update(record *models.BuildLog) error
	ListByOwner(owner string, limit int) ([]models.BuildLog, error)
}

type BuildLogRepository struct {
	db *gorm.DB
}

func NewBuildLogRepo(db *gorm.DB) *BuildLogRepository {
	return &BuildLogRepository{db: db}
}

// Get retrieves a build log record by build ID
func (r *BuildLogRepository) Get(buildID string) (*models.BuildLog, error) {
	var record models.BuildLog
	err := r.db.Where("build_id = ?", buildID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Insert creates the initial record for a build
func (r *BuildLogRepository) Insert(record *models.BuildLog) error {
	err := r.db.Create(record).Error
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// Update persists a record mutation conditioned on the revision the
// caller read.
func (r *BuildLogRepository) Update(record *models.BuildLog) error {
	readRevision := record.Revision
	record.Revision = readRevision + 1

	result := r.db.Model(&models.BuildLog{}).
		Where("build_id = ? AND revision = ?", record.BuildID, readRevision).
		Select("*").
		Updates(record)

	if result.Error != nil {
		record.Revision = readRevision
		return result.Error
	}
	if result.RowsAffected == 0 {
		record.Revision = readRevision
		return ErrConflict
	}
	return nil
}

// ListByOwner retrieves the most recent build log records for an owner
func (r *BuildLogRepository) ListByOwner(owner string, limit int) ([]models.BuildLog, error) {
	var records []models.BuildLog
	err := r.db.Where("owner = ?", owner).
		Order("last_update DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
