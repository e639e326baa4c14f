package repository

import (
	"log"

	"iot-fleet-backend/internal/models"

	"gorm.io/gorm"
)

// AuditStore records per-owner security events. Logging is
// best-effort; a failed audit write never blocks the request it
// describes.
type AuditStore interface {
	Log(owner, message string)
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log creates a new audit log entry
func (r *AuditRepository) Log(owner, message string) {
	entry := &models.AuditLog{
		Owner:   owner,
		Message: message,
	}
	if err := r.db.Create(entry).Error; err != nil {
		log.Printf("Audit log insertion error: %v", err)
	}
}

// Fetch retrieves the latest audit entries for an owner, newest first
func (r *AuditRepository) Fetch(owner string) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.Where("owner = ?", owner).
		Order("created_at DESC").
		Limit(100).
		Find(&entries).Error
	return entries, err
}
