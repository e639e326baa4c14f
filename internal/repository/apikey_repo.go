package repository

import (
	"iot-fleet-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// APIKeyStore is the API-key verification capability consumed by the
// registration and firmware engines. Verify answers whether the plain
// key belongs to the stated owner's key set, with a reason code usable
// as a response status on failure.
type APIKeyStore interface {
	Verify(owner, apiKey string) (bool, string)
}

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepo(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// CreateAPIKey stores a new API key for an owner. The plain key is
// bcrypt-hashed before it touches the database.
func (r *APIKeyRepository) CreateAPIKey(owner, plainKey, alias string) (*models.APIKey, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plainKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		Owner:      owner,
		APIKeyHash: string(hash),
		Alias:      alias,
		IsActive:   true,
	}
	if err := r.db.Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}

// Verify checks the plain key against every active key stored for the
// owner. Failure reasons mirror the response status codes.
func (r *APIKeyRepository) Verify(owner, apiKey string) (bool, string) {
	var keys []models.APIKey
	err := r.db.Where("owner = ? AND is_active = ?", owner, true).Find(&keys).Error
	if err != nil {
		return false, "apikey_not_found"
	}
	if len(keys) == 0 {
		return false, "apikey_not_found"
	}

	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.APIKeyHash), []byte(apiKey)) == nil {
			return true, ""
		}
	}
	return false, "owner_found_but_no_key"
}

// ListAPIKeys retrieves all keys for an owner, newest first
func (r *APIKeyRepository) ListAPIKeys(owner string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.Where("owner = ?", owner).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// RevokeAPIKey revokes (deactivates) an API key
func (r *APIKeyRepository) RevokeAPIKey(owner string, keyID uint) error {
	result := r.db.Model(&models.APIKey{}).
		Where("id = ? AND owner = ?", keyID, owner).
		Update("is_active", false)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
