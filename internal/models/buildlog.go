package models

import "time"

// BuildLogEntry is one line of a build's lifecycle log. Entries are
// append-only; slice order is chronological order.
type BuildLogEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	UDID      string    `json:"udid"`
	BuildID   string    `json:"build_id"`
	Contents  string    `json:"contents,omitempty"`
}

// BuildLog represents the build_logs table: one durable record per
// build, keyed by build_id, holding the ordered entry sequence.
type BuildLog struct {
	BuildID    string          `gorm:"primaryKey;size:64" json:"build_id"`
	Owner      string          `gorm:"size:128;not null;index" json:"owner"`
	UDID       string          `gorm:"size:64" json:"udid"`
	StartTime  time.Time       `json:"start_time"`
	LastUpdate time.Time       `json:"last_update"`
	Log        []BuildLogEntry `gorm:"serializer:json;type:longtext" json:"log"`

	// Revision guards concurrent appenders; see BuildLogStore.Update.
	Revision int64 `gorm:"not null;default:0" json:"-"`
}

// TableName specifies the table name for BuildLog model
func (BuildLog) TableName() string {
	return "build_logs"
}

// BuildLogSummary is the list-view projection of a build log record.
type BuildLogSummary struct {
	BuildID    string    `json:"build_id"`
	Owner      string    `json:"owner"`
	UDID       string    `json:"udid"`
	StartTime  time.Time `json:"start_time"`
	LastUpdate time.Time `json:"last_update"`
	Lines      int       `json:"lines"`
}
