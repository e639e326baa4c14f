package kv

import (
	"context"
	"errors"
	"time"

	"iot-fleet-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists ephemeral entries in the ephemeral_entries table.
// Expiry is enforced on read; stale rows are deleted when seen.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var entry models.EphemeralEntry
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrKeyNotFound
		}
		return "", err
	}

	if !entry.ExpiresAt.After(s.now()) {
		// Lazy purge; the row is already dead.
		s.db.WithContext(ctx).Delete(&models.EphemeralEntry{}, "`key` = ?", key)
		return "", ErrKeyNotFound
	}

	return entry.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := models.EphemeralEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().Add(ttl),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
}

func (s *GormStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}
	result := s.db.WithContext(ctx).
		Model(&models.EphemeralEntry{}).
		Where("`key` = ?", key).
		Update("expires_at", s.now().Add(ttl))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&models.EphemeralEntry{}, "`key` = ?", key).Error
}
