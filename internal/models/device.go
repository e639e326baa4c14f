package models

import "time"

// Device represents the devices table. One durable record per device,
// keyed by UDID. The MAC column is a secondary lookup key only; it is
// never the record key (devices that lost their UDID are matched by
// mac+owner and re-adopted under their stored UDID).
type Device struct {
	UDID        string    `gorm:"primaryKey;size:64" json:"udid"`
	MAC         string    `gorm:"size:17;index" json:"mac"`
	Owner       string    `gorm:"size:128;not null;index" json:"owner"`
	Firmware    string    `gorm:"size:255" json:"firmware"`
	Version     string    `gorm:"size:64;default:'1.0.0'" json:"version"`
	Checksum    string    `gorm:"size:128" json:"checksum"`
	Platform    string    `gorm:"size:64;default:'unknown'" json:"platform"`
	Alias       string    `gorm:"size:128" json:"alias"`
	Push        string    `gorm:"size:255" json:"push"`
	AutoUpdate  bool      `gorm:"default:false" json:"auto_update"`
	LastUpdate  time.Time `json:"lastupdate"`
	LastKey     string    `gorm:"size:64" json:"-"` // sha256 of the API key last used
	MQTT        string    `gorm:"size:255" json:"mqtt"`
	Description string    `gorm:"size:255" json:"description,omitempty"`
	Category    string    `gorm:"size:64" json:"category,omitempty"`
	Tags        string    `gorm:"size:255" json:"tags,omitempty"`

	// Revision is the optimistic-concurrency counter; every
	// successful update increments it and conditions on the value
	// the writer last read.
	Revision int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Device model
func (Device) TableName() string {
	return "devices"
}
