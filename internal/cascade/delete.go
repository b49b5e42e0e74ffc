// Package cascade implements timer deletion, including the optional
// cascade that reclaims a timer's event log, metrics and replay queue
// entries.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store"
)

// Deleter deletes timers and, optionally, their dependent records.
type Deleter struct {
	store     store.Store
	clock     clock.Clock
	lifecycle *lifecycle.Manager
}

// New returns a Deleter.
func New(s store.Store, c clock.Clock, l *lifecycle.Manager) *Deleter {
	return &Deleter{store: s, clock: c, lifecycle: l}
}

// Delete removes id's timer. Dependents are always
// released first so they don't wait forever on a deleted dependency.
// When opts.Cascade is true (the default), the timer's event log,
// team metrics and replay queue entries are removed too and a
// deletion metric is recorded describing what was reclaimed.
func (d *Deleter) Delete(ctx context.Context, id uuid.UUID, opts models.DeleteOptions) (*models.DeleteResult, error) {
	t, err := d.store.GetTimer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &models.DeleteResult{Deleted: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cascade: load timer: %w", err)
	}

	if err := d.lifecycle.ReleaseDependents(ctx, id); err != nil {
		return nil, fmt.Errorf("cascade: release dependents: %w", err)
	}

	if err := d.store.DeleteExpiration(ctx, id); err != nil {
		return nil, fmt.Errorf("cascade: delete expiration: %w", err)
	}

	var counts models.DeletionCounts
	if opts.CascadeDefault() {
		counts, err = d.reclaim(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if err := d.store.DeleteTimer(ctx, id); err != nil {
		return nil, fmt.Errorf("cascade: delete timer: %w", err)
	}

	if err := d.store.AppendDeletionMetric(ctx, &models.DeletionMetric{
		ID:            uuid.New(),
		TimerID:       id,
		TeamID:        t.TeamID,
		Counts:        counts,
		Reason:        opts.Reason,
		TriggeredAtMs: models.NowMs(d.clock.Now()),
	}); err != nil {
		return nil, fmt.Errorf("cascade: append deletion metric: %w", err)
	}

	return &models.DeleteResult{Deleted: true, Counts: counts, TeamID: t.TeamID}, nil
}

func (d *Deleter) reclaim(ctx context.Context, id uuid.UUID) (models.DeletionCounts, error) {
	var counts models.DeletionCounts

	logs, err := d.store.DeleteEventsForTimer(ctx, id)
	if err != nil {
		return counts, fmt.Errorf("cascade: delete events: %w", err)
	}
	counts.Logs = logs

	metrics, err := d.store.DeleteTeamMetricsForTimer(ctx, id)
	if err != nil {
		return counts, fmt.Errorf("cascade: delete team metrics: %w", err)
	}
	counts.Metrics = metrics

	replayEntries, err := d.store.DeleteReplayEntriesForTimer(ctx, id)
	if err != nil {
		return counts, fmt.Errorf("cascade: delete replay entries: %w", err)
	}
	counts.ReplayEntries = replayEntries

	return counts, nil
}
