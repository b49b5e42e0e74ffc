package models

import "github.com/google/uuid"

// TeamMetric is a per-team, per-timer performance record. DriftMs
// measures scheduler drift: actual fire time minus the scheduled
// endTimeMs.
type TeamMetric struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TimerID          uuid.UUID `json:"timerId" gorm:"type:uuid;not null;index:idx_metrics_timer"`
	TeamID           string    `json:"teamId,omitempty" gorm:"type:varchar(255);index:idx_metrics_team"`
	Event            EventType `json:"event" gorm:"type:varchar(32);not null"`
	DriftMs          int64     `json:"driftMs"`
	WebhookLatencyMs int64     `json:"webhookLatencyMs"`
	Success          bool      `json:"success"`
	Attempt          int       `json:"attempt"`
	CreatedAtMs      int64     `json:"createdAtMs" gorm:"not null"`
}

// TableName returns the table name for GORM.
func (TeamMetric) TableName() string { return "timer_team_metrics" }

// DeletionMetric is appended by cascade delete:
// one record per delete describing what was reclaimed.
type DeletionMetric struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TimerID       uuid.UUID      `json:"timerId" gorm:"type:uuid;not null;index:idx_deletion_metrics_timer"`
	TeamID        string         `json:"teamId,omitempty" gorm:"type:varchar(255)"`
	Counts        DeletionCounts `json:"counts" gorm:"type:jsonb;serializer:json"`
	Reason        string         `json:"reason,omitempty" gorm:"type:text"`
	TriggeredAtMs int64          `json:"triggeredAtMs" gorm:"not null"`
}

// TableName returns the table name for GORM.
func (DeletionMetric) TableName() string { return "timer_deletion_metrics" }

// DeletionCounts reports how many rows cascade delete removed per
// collection.
type DeletionCounts struct {
	Logs          int `json:"logs"`
	Metrics       int `json:"metrics"`
	ReplayEntries int `json:"replayEntries"`
}
