// Package models holds the engine's persisted record types: Timer,
// ExpirationRecord, EventLogEntry, TeamMetric, ReplayQueueEntry,
// ReplayHistoryEntry and CronSchedule, plus the request/filter shapes
// the external operations accept.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/condition"
	"github.com/minoots/engine/internal/retrypolicy"
)

// Status is a timer's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusRetrying Status = "retrying"
	StatusExpired  Status = "expired"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusDeleted  Status = "deleted"
)

// IsTerminal reports whether s is one of the lifecycle's terminal
// states.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusExpired, StatusFailed, StatusSkipped, StatusDeleted:
		return true
	default:
		return false
	}
}

// OnExpireEvent is a timer's configured webhook-on-expire payload.
type OnExpireEvent struct {
	WebhookURL string      `json:"webhookUrl,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// TimerEvents groups a timer's lifecycle event hooks. on_expire is the
// only one the engine fires today.
type TimerEvents struct {
	OnExpire *OnExpireEvent `json:"on_expire,omitempty"`
}

// Timer is the central entity.
type Timer struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	Name         string `json:"name,omitempty" gorm:"type:varchar(255)"`
	OwnerAgentID string `json:"ownerAgentId,omitempty" gorm:"type:varchar(255);index:idx_timers_agent"`
	TeamID       string `json:"teamId,omitempty" gorm:"type:varchar(255);index:idx_timers_team"`
	CreatedBy    string `json:"createdBy,omitempty" gorm:"type:varchar(255)"`

	DurationMs  int64  `json:"durationMs" gorm:"not null"`
	StartTimeMs *int64 `json:"startTimeMs,omitempty"`
	EndTimeMs   *int64 `json:"endTimeMs,omitempty" gorm:"index:idx_timers_end_time"`

	Status Status `json:"status" gorm:"type:varchar(20);not null;index:idx_timers_status"`

	Dependencies        []string `json:"dependencies,omitempty" gorm:"type:jsonb;serializer:json"`
	PendingDependencies []string `json:"pendingDependencies,omitempty" gorm:"type:jsonb;serializer:json"`

	Conditions []condition.Condition  `json:"conditions,omitempty" gorm:"type:jsonb;serializer:json"`
	Context    map[string]interface{} `json:"context,omitempty" gorm:"type:jsonb;serializer:json"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`

	Events TimerEvents `json:"events" gorm:"type:jsonb;serializer:json"`

	RetryPolicy *retrypolicy.Policy `json:"retryPolicy,omitempty" gorm:"type:jsonb;serializer:json"`
	RetryCount  int                 `json:"retryCount" gorm:"default:0"`

	ChainID          string `json:"chainId,omitempty" gorm:"type:varchar(255)"`
	TemplateID       string `json:"templateId,omitempty" gorm:"type:varchar(255)"`
	Scenario         string `json:"scenario,omitempty" gorm:"type:varchar(255)"`
	LoadBalancingKey string `json:"loadBalancingKey,omitempty" gorm:"type:varchar(255)"`

	AssignedWorker string `json:"assignedWorker" gorm:"type:varchar(64)"`

	SkipReason    string `json:"skipReason,omitempty" gorm:"type:text"`
	FailureReason string `json:"failureReason,omitempty" gorm:"type:text"`
	NextRetryAtMs *int64 `json:"nextRetryAtMs,omitempty"`

	CreatedAtMs   int64  `json:"createdAtMs" gorm:"not null"`
	UpdatedAtMs   int64  `json:"updatedAtMs" gorm:"not null"`
	CompletedAtMs *int64 `json:"completedAtMs,omitempty"`
}

// TableName returns the table name for GORM.
func (Timer) TableName() string { return "timers" }

// Clone returns a deep-enough copy of t suitable for a replay snapshot
// or for handing to a caller without risking aliasing the store's
// slices/maps.
func (t Timer) Clone() Timer {
	c := t
	c.Dependencies = append([]string(nil), t.Dependencies...)
	c.PendingDependencies = append([]string(nil), t.PendingDependencies...)
	c.Conditions = append([]condition.Condition(nil), t.Conditions...)
	c.Context = cloneMap(t.Context)
	c.Metadata = cloneMap(t.Metadata)
	if t.RetryPolicy != nil {
		p := *t.RetryPolicy
		c.RetryPolicy = &p
	}
	return c
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NowMs returns the millisecond epoch timestamp for t, the engine's
// standard timestamp unit throughout the data model.
func NowMs(t time.Time) int64 {
	return t.UnixMilli()
}
