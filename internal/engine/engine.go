// Package engine is the public facade over the timer lifecycle,
// sweeper, replay, cascade-delete and schedule collaborators. It
// holds no state of its own beyond the collaborators themselves.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/cascade"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/replay"
	"github.com/minoots/engine/internal/schedule"
	"github.com/minoots/engine/internal/sweep"
)

// Engine exposes the timer operations callers (the HTTP layer, the
// background task scheduler) drive.
type Engine struct {
	Lifecycle    *lifecycle.Manager
	Sweeper      *sweep.Sweeper
	Replay       *replay.Manager
	Cascade      *cascade.Deleter
	Materializer *schedule.Materializer
}

// New assembles an Engine from its collaborators.
func New(l *lifecycle.Manager, sw *sweep.Sweeper, r *replay.Manager, c *cascade.Deleter, m *schedule.Materializer) *Engine {
	return &Engine{Lifecycle: l, Sweeper: sw, Replay: r, Cascade: c, Materializer: m}
}

// CreateTimer creates a new timer.
func (e *Engine) CreateTimer(ctx context.Context, cfg models.CreateTimerConfig) (*models.Timer, error) {
	return e.Lifecycle.Create(ctx, cfg)
}

// GetTimer returns a single timer by ID, with derived fields computed
// for the current moment.
func (e *Engine) GetTimer(ctx context.Context, id uuid.UUID) (*models.TimerView, error) {
	return e.Lifecycle.Get(ctx, id)
}

// ListTimers returns the timers matching filter.
func (e *Engine) ListTimers(ctx context.Context, filter models.TimerFilter) ([]models.Timer, error) {
	return e.Lifecycle.List(ctx, filter)
}

// UpdateTimer applies patch's non-nil fields to id's timer.
func (e *Engine) UpdateTimer(ctx context.Context, id uuid.UUID, patch models.UpdateTimerPatch) (*models.Timer, error) {
	return e.Lifecycle.Update(ctx, id, patch)
}

// CleanupExpiredTimers deletes the primary record of every expired
// timer whose deadline is older than beforeMs. It never touches a
// timer's logs, metrics or replay queue entries; only a cascade
// delete reclaims those.
func (e *Engine) CleanupExpiredTimers(ctx context.Context, beforeMs int64, limit int) (int, error) {
	return e.Lifecycle.CleanupExpired(ctx, beforeMs, limit)
}

// DeleteTimer deletes a timer, optionally cascading to its dependent
// records.
func (e *Engine) DeleteTimer(ctx context.Context, id uuid.UUID, opts models.DeleteOptions) (*models.DeleteResult, error) {
	return e.Cascade.Delete(ctx, id, opts)
}

// ReplayTimer creates a fresh timer derived from sourceID's config.
func (e *Engine) ReplayTimer(ctx context.Context, sourceID uuid.UUID, opts models.ReplayOptions) (*models.Timer, error) {
	return e.Replay.Replay(ctx, sourceID, opts)
}

// EnqueueReplay records a timer snapshot on the replay queue for later
// processing.
func (e *Engine) EnqueueReplay(ctx context.Context, t models.Timer, meta models.EnqueueReplayMeta) (*models.ReplayQueueEntry, error) {
	return e.Replay.Enqueue(ctx, t, meta)
}

// ProcessReplayQueue drains pending replay queue entries.
func (e *Engine) ProcessReplayQueue(ctx context.Context, opts models.ProcessReplayQueueOptions) ([]models.ReplayProcessResult, error) {
	return e.Replay.ProcessQueue(ctx, opts)
}

// CleanupReplayQueue purges stale replay queue entries.
func (e *Engine) CleanupReplayQueue(ctx context.Context, opts models.ReplayCleanupOptions) (int, error) {
	return e.Replay.CleanupQueue(ctx, opts)
}

// MaterializeSchedule resolves a single schedule into the timer
// config its next run would create, without creating it.
func (e *Engine) MaterializeSchedule(ctx context.Context, sch *models.CronSchedule) (models.CreateTimerConfig, error) {
	return e.Materializer.BuildConfig(ctx, sch)
}

// MaterializeSchedules ticks every due cron schedule into fresh
// timers.
func (e *Engine) MaterializeSchedules(ctx context.Context) (int, error) {
	return e.Materializer.Run(ctx)
}

// SweepExpirations runs the expiration sweeper once.
func (e *Engine) SweepExpirations(ctx context.Context) (int, error) {
	return e.Sweeper.Run(ctx)
}
