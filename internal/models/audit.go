package models

import "time"

// AuditLog represents the audit_logs table
// Used for security tracking of device authentication attempts
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Owner     string    `gorm:"size:128;index" json:"owner"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
