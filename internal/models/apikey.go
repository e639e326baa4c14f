package models

import "time"

// APIKey represents the api_keys table.
// Used for authenticating devices on the registration and firmware
// endpoints. The plain key is never stored, only its bcrypt hash.
type APIKey struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Owner      string    `gorm:"size:128;not null;index" json:"owner"`
	APIKeyHash string    `gorm:"size:255;not null" json:"-"` // Hidden from JSON for security
	Alias      string    `gorm:"size:128" json:"alias"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}

// APIKeyResponse is used when returning API keys to the client.
// Includes the plain-text key (only shown once during generation).
type APIKeyResponse struct {
	ID        uint      `json:"id"`
	Owner     string    `json:"owner"`
	APIKey    string    `json:"api_key,omitempty"` // Plain-text key, only populated during generation
	Alias     string    `json:"alias"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
