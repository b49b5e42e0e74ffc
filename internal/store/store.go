// Package store declares the durable persistence boundary the engine
// runs against. internal/store/postgres implements it over GORM;
// internal/store/memory implements it in-process for tests.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/models"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: not found" }

// Store is the durable persistence boundary. It holds no lifecycle
// logic; callers are responsible for sequencing operations correctly.
type Store interface {
	// Timers

	CreateTimer(ctx context.Context, t *models.Timer) error
	SaveTimer(ctx context.Context, t *models.Timer) error
	GetTimer(ctx context.Context, id uuid.UUID) (*models.Timer, error)
	ListTimers(ctx context.Context, filter models.TimerFilter) ([]models.Timer, error)
	DeleteTimer(ctx context.Context, id uuid.UUID) error
	// ListDependents finds timers that list timerID in Dependencies or
	// PendingDependencies.
	ListDependents(ctx context.Context, timerID uuid.UUID) ([]models.Timer, error)

	// Expiration records

	UpsertExpiration(ctx context.Context, e *models.ExpirationRecord) error
	DeleteExpiration(ctx context.Context, timerID uuid.UUID) error
	// DueExpirations returns expiration records with ExpiresAtMs <= atMs,
	// oldest first, capped at limit.
	DueExpirations(ctx context.Context, atMs int64, limit int) ([]models.ExpirationRecord, error)

	// Event log

	AppendEvent(ctx context.Context, e *models.EventLogEntry) error
	DeleteEventsForTimer(ctx context.Context, timerID uuid.UUID) (int, error)

	// Team metrics

	AppendTeamMetric(ctx context.Context, m *models.TeamMetric) error
	DeleteTeamMetricsForTimer(ctx context.Context, timerID uuid.UUID) (int, error)

	// Deletion metrics

	AppendDeletionMetric(ctx context.Context, m *models.DeletionMetric) error

	// Replay queue

	EnqueueReplay(ctx context.Context, e *models.ReplayQueueEntry) error
	// PendingReplayForTimer finds an existing pending/processing entry
	// for timerID, used to dedup re-enqueues.
	PendingReplayForTimer(ctx context.Context, timerID uuid.UUID) (*models.ReplayQueueEntry, error)
	GetReplayEntry(ctx context.Context, id uuid.UUID) (*models.ReplayQueueEntry, error)
	SaveReplayEntry(ctx context.Context, e *models.ReplayQueueEntry) error
	DeleteReplayEntriesForTimer(ctx context.Context, timerID uuid.UUID) (int, error)
	// PendingReplayBatch returns up to limit pending entries, oldest
	// first, for draining.
	PendingReplayBatch(ctx context.Context, limit int) ([]models.ReplayQueueEntry, error)
	// StaleReplayBatch returns processed/error entries older than
	// olderThanMs, capped at limit, for CleanupReplayQueue.
	StaleReplayBatch(ctx context.Context, olderThanMs int64, limit int) ([]models.ReplayQueueEntry, error)
	DeleteReplayEntries(ctx context.Context, ids []uuid.UUID) (int, error)

	AppendReplayHistory(ctx context.Context, h *models.ReplayHistoryEntry) error

	// Cron schedules

	GetSchedule(ctx context.Context, id uuid.UUID) (*models.CronSchedule, error)
	SaveSchedule(ctx context.Context, s *models.CronSchedule) error
	// DueSchedules returns unpaused schedules with NextRunAtMs <= atMs.
	DueSchedules(ctx context.Context, atMs int64, limit int) ([]models.CronSchedule, error)

	// Templates (read-only; template CRUD belongs to an outside
	// collaborator)

	GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error)

	// StaleExpiredTimers returns timers with status=expired and
	// EndTimeMs < beforeMs, capped at limit, for the daily terminal
	// cleanup task. Only their primary record is a target
	// for deletion; logs/metrics/replay entries are untouched by this
	// sweep, unlike cascade delete.
	StaleExpiredTimers(ctx context.Context, beforeMs int64, limit int) ([]models.Timer, error)
}
