package models

import "github.com/google/uuid"

// ExpirationStatus mirrors the owning timer's status while an
// expiration record exists; only running and retrying timers have
// one.
type ExpirationStatus string

const (
	ExpirationStatusRunning  ExpirationStatus = "running"
	ExpirationStatusRetrying ExpirationStatus = "retrying"
)

// ExpirationRecord is the deadline index the sweeper scans. It
// exists only while the owning timer is running or retrying.
type ExpirationRecord struct {
	TimerID     uuid.UUID        `json:"timerId" gorm:"type:uuid;primaryKey"`
	ExpiresAtMs int64            `json:"expiresAtMs" gorm:"not null;index:idx_expirations_due"`
	Status      ExpirationStatus `json:"status" gorm:"type:varchar(20);not null"`
	Worker      string           `json:"worker" gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM.
func (ExpirationRecord) TableName() string { return "timer_expirations" }
