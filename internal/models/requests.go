package models

import (
	"github.com/google/uuid"
	"github.com/minoots/engine/internal/condition"
	"github.com/minoots/engine/internal/retrypolicy"
)

// CreateTimerConfig is the input to the Lifecycle Manager's Create
// operation. Duration accepts anything
// internal/duration.Parse accepts: a string like "5m" or a raw
// millisecond integer.
type CreateTimerConfig struct {
	Name         string
	OwnerAgentID string
	TeamID       string
	CreatedBy    string

	Duration interface{}

	Dependencies []string

	// Conditions is the normalized array form. ConditionsMap is the
	// alternate key/value shorthand ({"field": "value"} meaning
	// field equals value); Create normalizes either into Conditions.
	Conditions    []condition.Condition
	ConditionsMap map[string]interface{}

	Context  map[string]interface{}
	Metadata map[string]interface{}

	Events TimerEvents

	RetryPolicy *retrypolicy.Policy

	ChainID          string
	TemplateID       string
	Scenario         string
	LoadBalancingKey string
}

// UpdateTimerPatch is the partial-field input to UpdateTimer. Only
// non-nil fields are applied.
type UpdateTimerPatch struct {
	Name        *string
	Metadata    map[string]interface{}
	Context     map[string]interface{}
	Events      *TimerEvents
	RetryPolicy *retrypolicy.Policy
}

// TimerFilter is the server-side filter ListTimers accepts.
// Ownership/visibility enforcement is the calling collaborator's
// responsibility, not the engine's.
type TimerFilter struct {
	AgentID string
	TeamID  string
	Status  Status
}

// DeleteOptions configures DeleteTimer / cascade delete.
// Cascade defaults to true when nil.
type DeleteOptions struct {
	Reason  string
	Cascade *bool
}

// CascadeDefault reports the effective cascade flag for o.
func (o DeleteOptions) CascadeDefault() bool {
	if o.Cascade == nil {
		return true
	}
	return *o.Cascade
}

// DeleteResult is DeleteTimer's result.
type DeleteResult struct {
	Deleted bool
	Counts  DeletionCounts
	TeamID  string
}

// ReplayOptions configures ReplayTimer.
// IncludeReplayMetadata defaults to true when nil.
type ReplayOptions struct {
	Reason                string
	Payload               *Timer
	RequestedBy           string
	QueueEntryID          *uuid.UUID
	MetadataOverrides     map[string]interface{}
	ContextOverrides      map[string]interface{}
	IncludeReplayMetadata *bool
}

// IncludeReplayMetadataDefault reports the effective
// includeReplayMetadata flag for o.
func (o ReplayOptions) IncludeReplayMetadataDefault() bool {
	if o.IncludeReplayMetadata == nil {
		return true
	}
	return *o.IncludeReplayMetadata
}

// EnqueueReplayMeta is the metadata EnqueueReplay accepts alongside a
// timer snapshot.
type EnqueueReplayMeta struct {
	Reason      string
	Attempts    int
	Failure     string
	TriggeredBy string
}

// ProcessReplayQueueOptions configures ProcessReplayQueue. Limit <= 0
// selects the replay manager's default batch size.
type ProcessReplayQueueOptions struct {
	Limit int
}

// ReplayProcessResult is one drained replay queue entry's outcome.
type ReplayProcessResult struct {
	QueueEntryID  uuid.UUID
	ReplayTimerID uuid.UUID
}

// ReplayCleanupOptions configures CleanupReplayQueue.
type ReplayCleanupOptions struct {
	OlderThanMs  int64
	MaxBatchSize int
}
