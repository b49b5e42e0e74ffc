// Package sweep implements the expiration sweeper: scanning due
// expiration records and driving each through the core expire
// transition (webhook, retry, replay, dependent release).
package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/replay"
	"github.com/minoots/engine/internal/retrypolicy"
	"github.com/minoots/engine/internal/store"
	"github.com/minoots/engine/internal/webhook"
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize bounds how many due expirations one Run call
// processes.
const DefaultBatchSize = 200

// Sweeper scans due expiration records and expires their timers.
type Sweeper struct {
	store      store.Store
	clock      clock.Clock
	dispatcher *webhook.Dispatcher
	lifecycle  *lifecycle.Manager
	replay     *replay.Manager
	batchSize  int
}

// New returns a Sweeper. batchSize <= 0 selects DefaultBatchSize.
func New(s store.Store, c clock.Clock, d *webhook.Dispatcher, l *lifecycle.Manager, r *replay.Manager, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sweeper{store: s, clock: c, dispatcher: d, lifecycle: l, replay: r, batchSize: batchSize}
}

// Run scans and expires every due timer, up to the sweeper's batch
// size, tolerating individual timer failures.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	nowMs := models.NowMs(s.clock.Now())
	due, err := s.store.DueExpirations(ctx, nowMs, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("sweep: list due expirations: %w", err)
	}

	processed := 0
	for _, rec := range due {
		t, err := s.store.GetTimer(ctx, rec.TimerID)
		if err != nil {
			log.Error().Err(err).Str("timerId", rec.TimerID.String()).Msg("sweep: timer missing for expiration record")
			_ = s.store.DeleteExpiration(ctx, rec.TimerID)
			continue
		}
		if t.Status.IsTerminal() {
			// Already resolved by a concurrent sweep; drop the stale record.
			_ = s.store.DeleteExpiration(ctx, t.ID)
			continue
		}
		if err := s.Expire(ctx, t); err != nil {
			log.Error().Err(err).Str("timerId", t.ID.String()).Msg("sweep: expire failed")
			continue
		}
		processed++
	}
	return processed, nil
}

// Expire runs the core expiration state transition for t:
// fire the webhook, record drift/latency metrics, and either mark the
// timer expired, schedule a retry, or mark it failed and enqueue it
// for replay.
func (s *Sweeper) Expire(ctx context.Context, t *models.Timer) error {
	now := s.clock.Now()
	nowMs := models.NowMs(now)

	if t.Status != models.StatusRunning && t.Status != models.StatusRetrying {
		// Already resolved by a concurrent sweep.
		return nil
	}

	// The attempt is recorded before the webhook fires, so a crash
	// mid-dispatch still counts it against the retry budget.
	attempt := t.RetryCount + 1
	t.RetryCount = attempt
	t.UpdatedAtMs = nowMs
	if err := s.store.SaveTimer(ctx, t); err != nil {
		return fmt.Errorf("sweep: record attempt: %w", err)
	}

	// Drift against the deadline this attempt was scheduled for,
	// captured before a retry moves EndTimeMs.
	var driftMs int64
	if t.EndTimeMs != nil {
		driftMs = nowMs - *t.EndTimeMs
	}

	result := s.dispatcher.Dispatch(ctx, *t)

	if result.Success {
		return s.markExpired(ctx, t, nowMs, attempt, driftMs, result)
	}

	policy := retrypolicy.Policy{}
	if t.RetryPolicy != nil {
		policy = *t.RetryPolicy
	}
	if retrypolicy.ShouldRetry(policy, attempt) {
		return s.scheduleRetry(ctx, t, policy, attempt, nowMs, result.Err)
	}
	return s.markFailed(ctx, t, nowMs, attempt, driftMs, result)
}

// appendMetric records the terminal attempt's drift/latency for the
// owning team. Retried attempts carry no metric; only the attempt
// that resolves the timer does.
func (s *Sweeper) appendMetric(ctx context.Context, t *models.Timer, event models.EventType, nowMs, driftMs int64, attempt int, result webhook.Result) error {
	return s.store.AppendTeamMetric(ctx, &models.TeamMetric{
		ID:               uuid.New(),
		TimerID:          t.ID,
		TeamID:           t.TeamID,
		Event:            event,
		DriftMs:          driftMs,
		WebhookLatencyMs: result.LatencyMs,
		Success:          result.Success,
		Attempt:          attempt,
		CreatedAtMs:      nowMs,
	})
}

func (s *Sweeper) markExpired(ctx context.Context, t *models.Timer, nowMs int64, attempt int, driftMs int64, result webhook.Result) error {
	t.Status = models.StatusExpired
	t.NextRetryAtMs = nil
	t.CompletedAtMs = &nowMs
	t.UpdatedAtMs = nowMs
	if err := s.store.SaveTimer(ctx, t); err != nil {
		return fmt.Errorf("sweep: mark expired: save timer: %w", err)
	}
	if err := s.store.DeleteExpiration(ctx, t.ID); err != nil {
		return fmt.Errorf("sweep: mark expired: delete expiration: %w", err)
	}
	if err := s.appendMetric(ctx, t, models.EventExpired, nowMs, driftMs, attempt, result); err != nil {
		return fmt.Errorf("sweep: mark expired: append team metric: %w", err)
	}
	if err := s.store.AppendEvent(ctx, &models.EventLogEntry{
		ID:          uuid.New(),
		TimerID:     t.ID,
		Event:       models.EventExpired,
		TeamID:      t.TeamID,
		Attempt:     attempt,
		TimestampMs: nowMs,
	}); err != nil {
		return fmt.Errorf("sweep: mark expired: append event: %w", err)
	}
	if err := s.lifecycle.ReleaseDependents(ctx, t.ID); err != nil {
		return fmt.Errorf("sweep: mark expired: release dependents: %w", err)
	}
	return nil
}

func (s *Sweeper) scheduleRetry(ctx context.Context, t *models.Timer, policy retrypolicy.Policy, attempt int, nowMs int64, reason string) error {
	delayMs := retrypolicy.NextDelayMs(policy, attempt)
	nextRetryAt := nowMs + delayMs

	t.Status = models.StatusRetrying
	t.NextRetryAtMs = &nextRetryAt
	t.FailureReason = reason
	t.EndTimeMs = &nextRetryAt
	t.UpdatedAtMs = nowMs
	if err := s.store.SaveTimer(ctx, t); err != nil {
		return fmt.Errorf("sweep: schedule retry: save timer: %w", err)
	}
	if err := s.store.UpsertExpiration(ctx, &models.ExpirationRecord{
		TimerID:     t.ID,
		ExpiresAtMs: nextRetryAt,
		Status:      models.ExpirationStatusRetrying,
		Worker:      t.AssignedWorker,
	}); err != nil {
		return fmt.Errorf("sweep: schedule retry: upsert expiration: %w", err)
	}
	// The event names the upcoming attempt, not the one that just
	// failed.
	if err := s.store.AppendEvent(ctx, &models.EventLogEntry{
		ID:            uuid.New(),
		TimerID:       t.ID,
		Event:         models.EventRetryScheduled,
		TeamID:        t.TeamID,
		Attempt:       attempt + 1,
		DelayMs:       delayMs,
		FailureReason: reason,
		TimestampMs:   nowMs,
	}); err != nil {
		return fmt.Errorf("sweep: schedule retry: append event: %w", err)
	}
	return nil
}

func (s *Sweeper) markFailed(ctx context.Context, t *models.Timer, nowMs int64, attempt int, driftMs int64, result webhook.Result) error {
	t.Status = models.StatusFailed
	t.NextRetryAtMs = nil
	t.FailureReason = result.Err
	t.CompletedAtMs = &nowMs
	t.UpdatedAtMs = nowMs
	if err := s.store.SaveTimer(ctx, t); err != nil {
		return fmt.Errorf("sweep: mark failed: save timer: %w", err)
	}
	if err := s.store.DeleteExpiration(ctx, t.ID); err != nil {
		return fmt.Errorf("sweep: mark failed: delete expiration: %w", err)
	}
	if err := s.appendMetric(ctx, t, models.EventFailed, nowMs, driftMs, attempt, result); err != nil {
		return fmt.Errorf("sweep: mark failed: append team metric: %w", err)
	}
	if err := s.store.AppendEvent(ctx, &models.EventLogEntry{
		ID:            uuid.New(),
		TimerID:       t.ID,
		Event:         models.EventFailed,
		TeamID:        t.TeamID,
		Attempt:       attempt,
		FailureReason: result.Err,
		TimestampMs:   nowMs,
	}); err != nil {
		return fmt.Errorf("sweep: mark failed: append event: %w", err)
	}
	if _, err := s.replay.Enqueue(ctx, *t, models.EnqueueReplayMeta{
		Reason:   "webhook_failed",
		Attempts: attempt,
		Failure:  result.Err,
	}); err != nil {
		return fmt.Errorf("sweep: mark failed: enqueue replay: %w", err)
	}
	if err := s.lifecycle.ReleaseDependents(ctx, t.ID); err != nil {
		return fmt.Errorf("sweep: mark failed: release dependents: %w", err)
	}
	return nil
}
