package models

import "github.com/google/uuid"

// EventType enumerates the timer lifecycle events the event log
// records.
type EventType string

const (
	EventActivated      EventType = "activated"
	EventSkipped        EventType = "skipped"
	EventRetryScheduled EventType = "retry_scheduled"
	EventExpired        EventType = "expired"
	EventFailed         EventType = "failed"
)

// EventLogEntry is an append-only lifecycle record, consumed by
// analytics. It is never mutated once written.
type EventLogEntry struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TimerID       uuid.UUID `json:"timerId" gorm:"type:uuid;not null;index:idx_events_timer"`
	Event         EventType `json:"event" gorm:"type:varchar(32);not null"`
	TeamID        string    `json:"teamId,omitempty" gorm:"type:varchar(255);index:idx_events_team"`
	Attempt       int       `json:"attempt,omitempty"`
	DelayMs       int64     `json:"delayMs,omitempty"`
	FailureReason string    `json:"failureReason,omitempty" gorm:"type:text"`
	TimestampMs   int64     `json:"timestampMs" gorm:"not null;index:idx_events_timestamp"`
}

// TableName returns the table name for GORM.
func (EventLogEntry) TableName() string { return "timer_events" }
