package models

import "time"

// EphemeralEntry represents the ephemeral_entries table, the shared
// TTL key-value space holding OTT tokens and NID flags. Expired rows
// are treated as absent and purged opportunistically.
type EphemeralEntry struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

// TableName specifies the table name for EphemeralEntry model
func (EphemeralEntry) TableName() string {
	return "ephemeral_entries"
}
