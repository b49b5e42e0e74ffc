// Package replay manages the failed-timer replay queue: enqueueing a
// snapshot when a timer fails, draining pending entries into fresh
// timers, purging stale entries, and building a fresh timer config
// from a replay request.
package replay

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultDrainBatch bounds how many pending entries ProcessQueue
// drains in a single call when the caller doesn't specify a limit.
const DefaultDrainBatch = 50

// DefaultCleanupBatch bounds CleanupQueue similarly.
const DefaultCleanupBatch = 200

// Manager drives the replay queue.
type Manager struct {
	store     store.Store
	clock     clock.Clock
	lifecycle *lifecycle.Manager
}

// New returns a Manager.
func New(s store.Store, c clock.Clock, l *lifecycle.Manager) *Manager {
	return &Manager{store: s, clock: c, lifecycle: l}
}

// Enqueue records a failed timer snapshot for later replay. A timer
// already pending/processing replay is not re-enqueued; its existing
// entry is left untouched.
func (m *Manager) Enqueue(ctx context.Context, t models.Timer, meta models.EnqueueReplayMeta) (*models.ReplayQueueEntry, error) {
	if t.ID == uuid.Nil {
		return nil, fmt.Errorf("replay: enqueue: snapshot has no timer id")
	}

	existing, err := m.store.PendingReplayForTimer(ctx, t.ID)
	if err == nil {
		return existing, nil
	}
	if err != store.ErrNotFound {
		return nil, fmt.Errorf("replay: enqueue: check existing: %w", err)
	}

	entry := &models.ReplayQueueEntry{
		ID:           uuid.New(),
		TimerID:      t.ID,
		TeamID:       t.TeamID,
		Status:       models.ReplayQueuePending,
		Reason:       meta.Reason,
		Attempts:     meta.Attempts,
		Payload:      t.Clone(),
		EnqueuedAtMs: models.NowMs(m.clock.Now()),
		LastError:    meta.Failure,
	}
	if err := m.store.EnqueueReplay(ctx, entry); err != nil {
		return nil, fmt.Errorf("replay: enqueue: %w", err)
	}
	return entry, nil
}

// ProcessQueue drains up to limit pending entries, replaying each into
// a fresh timer. limit <= 0 selects
// DefaultDrainBatch. A single entry's failure doesn't stop the batch.
func (m *Manager) ProcessQueue(ctx context.Context, opts models.ProcessReplayQueueOptions) ([]models.ReplayProcessResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultDrainBatch
	}

	batch, err := m.store.PendingReplayBatch(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("replay: process queue: list pending: %w", err)
	}

	results := make([]models.ReplayProcessResult, 0, len(batch))
	for i := range batch {
		entry := batch[i]
		entry.Status = models.ReplayQueueProcessing
		nowMs := models.NowMs(m.clock.Now())
		entry.LastAttemptAtMs = &nowMs
		if err := m.store.SaveReplayEntry(ctx, &entry); err != nil {
			log.Error().Err(err).Str("entryId", entry.ID.String()).Msg("failed to mark replay entry processing")
			continue
		}

		replayed, err := m.Replay(ctx, entry.TimerID, models.ReplayOptions{
			Reason:       entry.Reason,
			Payload:      &entry.Payload,
			QueueEntryID: &entry.ID,
		})
		if err != nil {
			entry.Status = models.ReplayQueueError
			entry.ErrorCount++
			entry.LastError = err.Error()
			if saveErr := m.store.SaveReplayEntry(ctx, &entry); saveErr != nil {
				log.Error().Err(saveErr).Str("entryId", entry.ID.String()).Msg("failed to record replay failure")
			}
			continue
		}

		entry.Status = models.ReplayQueueProcessed
		entry.ProcessedAtMs = &nowMs
		entry.ReplayTimerID = &replayed.ID
		if err := m.store.SaveReplayEntry(ctx, &entry); err != nil {
			log.Error().Err(err).Str("entryId", entry.ID.String()).Msg("failed to record replay success")
			continue
		}
		results = append(results, models.ReplayProcessResult{QueueEntryID: entry.ID, ReplayTimerID: replayed.ID})
	}
	return results, nil
}

// CleanupQueue purges processed/error entries older than
// opts.OlderThanMs. Pending/processing entries
// are never purged regardless of age.
func (m *Manager) CleanupQueue(ctx context.Context, opts models.ReplayCleanupOptions) (int, error) {
	limit := opts.MaxBatchSize
	if limit <= 0 {
		limit = DefaultCleanupBatch
	}
	stale, err := m.store.StaleReplayBatch(ctx, opts.OlderThanMs, limit)
	if err != nil {
		return 0, fmt.Errorf("replay: cleanup queue: list stale: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, len(stale))
	for i, e := range stale {
		ids[i] = e.ID
	}
	return m.store.DeleteReplayEntries(ctx, ids)
}

// Replay creates a fresh timer derived from sourceID's last known
// config, merging any overrides in opts. The new
// timer starts its own independent lifecycle; it is not linked back
// into the original's dependency graph.
func (m *Manager) Replay(ctx context.Context, sourceID uuid.UUID, opts models.ReplayOptions) (*models.Timer, error) {
	source := opts.Payload
	if source == nil {
		loaded, err := m.store.GetTimer(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("replay: load source timer: %w", err)
		}
		source = loaded
	}

	name := source.Name
	if name == "" {
		name = fmt.Sprintf("replay_%s", sourceID)
	}

	cfg := models.CreateTimerConfig{
		Name:             name,
		OwnerAgentID:     source.OwnerAgentID,
		TeamID:           source.TeamID,
		CreatedBy:        opts.RequestedBy,
		Duration:         source.DurationMs,
		Conditions:       source.Conditions,
		Context:          mergeMaps(source.Context, opts.ContextOverrides),
		Metadata:         mergeMaps(source.Metadata, opts.MetadataOverrides),
		Events:           source.Events,
		RetryPolicy:      source.RetryPolicy,
		ChainID:          source.ChainID,
		TemplateID:       source.TemplateID,
		Scenario:         source.Scenario,
		LoadBalancingKey: source.LoadBalancingKey,
	}
	if opts.IncludeReplayMetadataDefault() {
		if cfg.Metadata == nil {
			cfg.Metadata = map[string]interface{}{}
		}
		cfg.Metadata["replayOf"] = sourceID.String()
		cfg.Metadata["replayReason"] = opts.Reason
	}

	replayed, err := m.lifecycle.Create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("replay: create replayed timer: %w", err)
	}

	if err := m.store.AppendReplayHistory(ctx, &models.ReplayHistoryEntry{
		ID:            uuid.New(),
		SourceTimerID: sourceID,
		ReplayTimerID: replayed.ID,
		Reason:        opts.Reason,
		RequestedBy:   opts.RequestedBy,
		QueueEntryID:  opts.QueueEntryID,
		TeamID:        replayed.TeamID,
		CreatedAtMs:   models.NowMs(m.clock.Now()),
	}); err != nil {
		return nil, fmt.Errorf("replay: append history: %w", err)
	}

	return replayed, nil
}

func mergeMaps(base, overrides map[string]interface{}) map[string]interface{} {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
