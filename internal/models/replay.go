package models

import "github.com/google/uuid"

// ReplayQueueStatus is a replay queue entry's lifecycle state.
type ReplayQueueStatus string

const (
	ReplayQueuePending    ReplayQueueStatus = "pending"
	ReplayQueueProcessing ReplayQueueStatus = "processing"
	ReplayQueueProcessed  ReplayQueueStatus = "processed"
	ReplayQueueError      ReplayQueueStatus = "error"
)

// ReplayQueueEntry is a deduplicated FIFO entry for a failed timer
// awaiting replay.
type ReplayQueueEntry struct {
	ID       uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	TimerID  uuid.UUID         `json:"timerId" gorm:"type:uuid;not null;index:idx_replay_timer"`
	TeamID   string            `json:"teamId,omitempty" gorm:"type:varchar(255)"`
	Status   ReplayQueueStatus `json:"status" gorm:"type:varchar(20);not null;index:idx_replay_status"`
	Reason   string            `json:"reason,omitempty" gorm:"type:text"`
	Attempts int               `json:"attempts"`

	Payload Timer `json:"payload" gorm:"type:jsonb;serializer:json"`

	EnqueuedAtMs    int64      `json:"enqueuedAtMs" gorm:"not null;index:idx_replay_enqueued"`
	LastAttemptAtMs *int64     `json:"lastAttemptAtMs,omitempty"`
	ProcessedAtMs   *int64     `json:"processedAtMs,omitempty"`
	ReplayTimerID   *uuid.UUID `json:"replayTimerId,omitempty" gorm:"type:uuid"`
	LastError       string     `json:"lastError,omitempty" gorm:"type:text"`
	ErrorCount      int        `json:"errorCount"`
}

// TableName returns the table name for GORM.
func (ReplayQueueEntry) TableName() string { return "replay_queue" }

// ReplayHistoryEntry is lineage for auditing and loop detection.
type ReplayHistoryEntry struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SourceTimerID uuid.UUID  `json:"sourceTimerId" gorm:"type:uuid;not null;index:idx_replay_history_source"`
	ReplayTimerID uuid.UUID  `json:"replayTimerId" gorm:"type:uuid;not null"`
	Reason        string     `json:"reason,omitempty" gorm:"type:text"`
	RequestedBy   string     `json:"requestedBy,omitempty" gorm:"type:varchar(255)"`
	QueueEntryID  *uuid.UUID `json:"queueEntryId,omitempty" gorm:"type:uuid"`
	TeamID        string     `json:"teamId,omitempty" gorm:"type:varchar(255)"`
	CreatedAtMs   int64      `json:"createdAtMs" gorm:"not null"`
}

// TableName returns the table name for GORM.
func (ReplayHistoryEntry) TableName() string { return "replay_history" }
