// Package lifecycle implements timer creation and the
// dependency/condition gate that moves a timer from pending into
// running.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/condition"
	"github.com/minoots/engine/internal/duration"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store"
	"github.com/minoots/engine/internal/workerassign"
	"github.com/rs/zerolog/log"
)

// Manager owns a timer's creation and its dependency/condition gated
// transition into the running state.
type Manager struct {
	store       store.Store
	clock       clock.Clock
	workerCount int
}

// New returns a Manager. workerCount <= 0 selects
// workerassign.DefaultWorkerCount.
func New(s store.Store, c clock.Clock, workerCount int) *Manager {
	if workerCount <= 0 {
		workerCount = workerassign.DefaultWorkerCount
	}
	return &Manager{store: s, clock: c, workerCount: workerCount}
}

// Create builds and persists a new timer from cfg. A timer with no
// unresolved dependencies activates immediately when its conditions
// hold, and is created skipped (skipReason "conditions_not_met") when
// they do not; a timer with dependencies starts pending.
func (m *Manager) Create(ctx context.Context, cfg models.CreateTimerConfig) (*models.Timer, error) {
	if cfg.Duration == nil {
		return nil, fmt.Errorf("lifecycle: duration is required")
	}
	durationMs, err := duration.Parse(cfg.Duration)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: invalid duration: %w", err)
	}

	conditions := cfg.Conditions
	if len(conditions) == 0 && len(cfg.ConditionsMap) > 0 {
		conditions = conditionsFromMap(cfg.ConditionsMap)
	}

	dependencies := dedupStrings(cfg.Dependencies)

	nowMs := models.NowMs(m.clock.Now())
	id := uuid.New()

	t := &models.Timer{
		ID:                  id,
		Name:                cfg.Name,
		OwnerAgentID:        cfg.OwnerAgentID,
		TeamID:              cfg.TeamID,
		CreatedBy:           cfg.CreatedBy,
		DurationMs:          durationMs,
		Status:              models.StatusPending,
		Dependencies:        dependencies,
		PendingDependencies: append([]string(nil), dependencies...),
		Conditions:          conditions,
		Context:             cfg.Context,
		Metadata:            cfg.Metadata,
		Events:              cfg.Events,
		RetryPolicy:         cfg.RetryPolicy,
		ChainID:             cfg.ChainID,
		TemplateID:          cfg.TemplateID,
		Scenario:            cfg.Scenario,
		LoadBalancingKey:    cfg.LoadBalancingKey,
		AssignedWorker:      workerassign.Assign(cfg.TeamID, id.String(), m.workerCount),
		CreatedAtMs:         nowMs,
		UpdatedAtMs:         nowMs,
	}

	if len(t.PendingDependencies) == 0 && !condition.Evaluate(t.Conditions, t.Context, t.Metadata) {
		t.Status = models.StatusSkipped
		t.SkipReason = "conditions_not_met"
	}

	if err := m.store.CreateTimer(ctx, t); err != nil {
		return nil, fmt.Errorf("lifecycle: create timer: %w", err)
	}

	switch {
	case t.Status == models.StatusSkipped:
		if err := m.store.AppendEvent(ctx, &models.EventLogEntry{
			ID:          uuid.New(),
			TimerID:     t.ID,
			Event:       models.EventSkipped,
			TeamID:      t.TeamID,
			TimestampMs: nowMs,
		}); err != nil {
			return nil, fmt.Errorf("lifecycle: create: append skipped event: %w", err)
		}
	case len(t.PendingDependencies) == 0:
		if err := m.activate(ctx, t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// conditionsFromMap turns the {"field": value} shorthand into
// equals conditions against context.<field>.
func conditionsFromMap(m map[string]interface{}) []condition.Condition {
	out := make([]condition.Condition, 0, len(m))
	for field, want := range m {
		rhs := want
		out = append(out, condition.Condition{
			Lhs:      "context." + field,
			Rhs:      rhs,
			Operator: condition.Equals,
		})
	}
	return out
}

// Get returns a TimerView for id with derived fields computed as of
// now.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*models.TimerView, error) {
	t, err := m.store.GetTimer(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewTimerView(*t, models.NowMs(m.clock.Now()))
	return &v, nil
}

// Update applies patch's non-nil fields to id's timer and persists the
// result. It does not re-run the create-time
// dependency/condition gate; callers wanting re-activation should rely
// on ReleaseDependents firing naturally.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, patch models.UpdateTimerPatch) (*models.Timer, error) {
	t, err := m.store.GetTimer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: update: load timer: %w", err)
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Metadata != nil {
		t.Metadata = patch.Metadata
	}
	if patch.Context != nil {
		t.Context = patch.Context
	}
	if patch.Events != nil {
		t.Events = *patch.Events
	}
	if patch.RetryPolicy != nil {
		t.RetryPolicy = patch.RetryPolicy
	}
	t.UpdatedAtMs = models.NowMs(m.clock.Now())

	if err := m.store.SaveTimer(ctx, t); err != nil {
		return nil, fmt.Errorf("lifecycle: update: save timer: %w", err)
	}
	return t, nil
}

// CleanupExpired deletes the primary timer record for every timer in
// status=expired whose EndTimeMs is older than beforeMs. This is
// deliberately narrow: it reclaims only the timer row itself, leaving
// event log, team metric and replay queue rows for these timers
// untouched. Those are reclaimed only by an explicit cascade delete.
func (m *Manager) CleanupExpired(ctx context.Context, beforeMs int64, limit int) (int, error) {
	stale, err := m.store.StaleExpiredTimers(ctx, beforeMs, limit)
	if err != nil {
		return 0, fmt.Errorf("lifecycle: cleanup expired: list stale: %w", err)
	}
	deleted := 0
	for i := range stale {
		if err := m.store.DeleteTimer(ctx, stale[i].ID); err != nil {
			log.Error().Err(err).Str("timerId", stale[i].ID.String()).Msg("lifecycle: cleanup expired: delete failed")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// List returns the timers matching filter.
func (m *Manager) List(ctx context.Context, filter models.TimerFilter) ([]models.Timer, error) {
	return m.store.ListTimers(ctx, filter)
}

// activate transitions t from pending to running: it stamps
// start/end times, creates the expiration record the sweeper scans,
// and records the activation event.
func (m *Manager) activate(ctx context.Context, t *models.Timer) error {
	now := m.clock.Now()
	nowMs := models.NowMs(now)
	end := nowMs + t.DurationMs

	t.Status = models.StatusRunning
	t.StartTimeMs = &nowMs
	t.EndTimeMs = &end
	t.UpdatedAtMs = nowMs

	if err := m.store.SaveTimer(ctx, t); err != nil {
		return fmt.Errorf("lifecycle: activate: save timer: %w", err)
	}
	if err := m.store.UpsertExpiration(ctx, &models.ExpirationRecord{
		TimerID:     t.ID,
		ExpiresAtMs: end,
		Status:      models.ExpirationStatusRunning,
		Worker:      t.AssignedWorker,
	}); err != nil {
		return fmt.Errorf("lifecycle: activate: upsert expiration: %w", err)
	}
	if err := m.store.AppendEvent(ctx, &models.EventLogEntry{
		ID:          uuid.New(),
		TimerID:     t.ID,
		Event:       models.EventActivated,
		TeamID:      t.TeamID,
		TimestampMs: nowMs,
	}); err != nil {
		return fmt.Errorf("lifecycle: activate: append event: %w", err)
	}
	return nil
}

// ReleaseDependents clears finishedID from every timer that lists it
// as a dependency, and activates or skips any that become fully
// unblocked. It is called whenever a timer reaches any terminal state
// (expired, failed or skipped); dependents only need their dependency
// resolved, not successful.
func (m *Manager) ReleaseDependents(ctx context.Context, finishedID uuid.UUID) error {
	dependents, err := m.store.ListDependents(ctx, finishedID)
	if err != nil {
		return fmt.Errorf("lifecycle: release dependents: list: %w", err)
	}

	finished := finishedID.String()
	for i := range dependents {
		dep := dependents[i]
		dep.PendingDependencies = removeString(dep.PendingDependencies, finished)
		dep.UpdatedAtMs = models.NowMs(m.clock.Now())

		if len(dep.PendingDependencies) > 0 || dep.Status != models.StatusPending {
			if err := m.store.SaveTimer(ctx, &dep); err != nil {
				return fmt.Errorf("lifecycle: release dependents: save %s: %w", dep.ID, err)
			}
			continue
		}

		if !condition.Evaluate(dep.Conditions, dep.Context, dep.Metadata) {
			reason := fmt.Sprintf("conditions not satisfied after dependency %s resolved", finished)
			dep.Status = models.StatusSkipped
			dep.SkipReason = reason
			if err := m.store.SaveTimer(ctx, &dep); err != nil {
				return fmt.Errorf("lifecycle: release dependents: save skipped %s: %w", dep.ID, err)
			}
			if err := m.store.AppendEvent(ctx, &models.EventLogEntry{
				ID:          uuid.New(),
				TimerID:     dep.ID,
				Event:       models.EventSkipped,
				TeamID:      dep.TeamID,
				TimestampMs: dep.UpdatedAtMs,
			}); err != nil {
				return fmt.Errorf("lifecycle: release dependents: append skipped event %s: %w", dep.ID, err)
			}
			log.Info().Str("timerId", dep.ID.String()).Str("reason", reason).Msg("timer skipped")
			if err := m.ReleaseDependents(ctx, dep.ID); err != nil {
				return fmt.Errorf("lifecycle: release dependents: release after skip %s: %w", dep.ID, err)
			}
			continue
		}

		if err := m.activate(ctx, &dep); err != nil {
			return fmt.Errorf("lifecycle: release dependents: activate %s: %w", dep.ID, err)
		}
	}
	return nil
}

// dedupStrings drops repeated ids while preserving first-seen order.
func dedupStrings(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func removeString(ss []string, v string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
