// Package memory is a concurrency-safe, in-process Store used by unit
// tests so engine logic can be exercised without a Postgres instance.
// It follows the same method-per-query shape as internal/store/postgres,
// just swapping a gorm.DB for guarded maps.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	timers      map[uuid.UUID]models.Timer
	expirations map[uuid.UUID]models.ExpirationRecord
	events      []models.EventLogEntry
	teamMetrics []models.TeamMetric
	delMetrics  []models.DeletionMetric
	replay      map[uuid.UUID]models.ReplayQueueEntry
	replayHist  []models.ReplayHistoryEntry
	schedules   map[uuid.UUID]models.CronSchedule
	templates   map[uuid.UUID]models.Template
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		timers:      make(map[uuid.UUID]models.Timer),
		expirations: make(map[uuid.UUID]models.ExpirationRecord),
		replay:      make(map[uuid.UUID]models.ReplayQueueEntry),
		schedules:   make(map[uuid.UUID]models.CronSchedule),
		templates:   make(map[uuid.UUID]models.Template),
	}
}

// SeedTemplate installs a template directly, bypassing the (out of
// scope) Template CRUD collaborator. Tests use this to set up schedule
// materialization fixtures.
func (s *Store) SeedTemplate(t models.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

// Events returns a snapshot of the event log, oldest first. Tests use
// it to assert on the emitted lifecycle events.
func (s *Store) Events() []models.EventLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.EventLogEntry(nil), s.events...)
}

// TeamMetrics returns a snapshot of the recorded team metrics, oldest
// first.
func (s *Store) TeamMetrics() []models.TeamMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TeamMetric(nil), s.teamMetrics...)
}

func (s *Store) CreateTimer(ctx context.Context, t *models.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[t.ID] = t.Clone()
	return nil
}

func (s *Store) SaveTimer(ctx context.Context, t *models.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[t.ID]; !ok {
		return store.ErrNotFound
	}
	s.timers[t.ID] = t.Clone()
	return nil
}

func (s *Store) GetTimer(ctx context.Context, id uuid.UUID) (*models.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (s *Store) ListTimers(ctx context.Context, filter models.TimerFilter) ([]models.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Timer
	for _, t := range s.timers {
		if filter.AgentID != "" && t.OwnerAgentID != filter.AgentID {
			continue
		}
		if filter.TeamID != "" && t.TeamID != filter.TeamID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAtMs < out[j].CreatedAtMs })
	return out, nil
}

func (s *Store) DeleteTimer(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
	return nil
}

func (s *Store) ListDependents(ctx context.Context, timerID uuid.UUID) ([]models.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := timerID.String()
	var out []models.Timer
	for _, t := range s.timers {
		if containsStr(t.Dependencies, id) || containsStr(t.PendingDependencies, id) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func containsStr(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Store) UpsertExpiration(ctx context.Context, e *models.ExpirationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirations[e.TimerID] = *e
	return nil
}

func (s *Store) DeleteExpiration(ctx context.Context, timerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expirations, timerID)
	return nil
}

func (s *Store) DueExpirations(ctx context.Context, atMs int64, limit int) ([]models.ExpirationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ExpirationRecord
	for _, e := range s.expirations {
		if e.ExpiresAtMs <= atMs {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAtMs < out[j].ExpiresAtMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *models.EventLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *Store) DeleteEventsForTimer(ctx context.Context, timerID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	n := 0
	for _, e := range s.events {
		if e.TimerID == timerID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return n, nil
}

func (s *Store) AppendTeamMetric(ctx context.Context, m *models.TeamMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamMetrics = append(s.teamMetrics, *m)
	return nil
}

func (s *Store) DeleteTeamMetricsForTimer(ctx context.Context, timerID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.teamMetrics[:0]
	n := 0
	for _, m := range s.teamMetrics {
		if m.TimerID == timerID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.teamMetrics = kept
	return n, nil
}

func (s *Store) AppendDeletionMetric(ctx context.Context, m *models.DeletionMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delMetrics = append(s.delMetrics, *m)
	return nil
}

func (s *Store) EnqueueReplay(ctx context.Context, e *models.ReplayQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay[e.ID] = *e
	return nil
}

func (s *Store) PendingReplayForTimer(ctx context.Context, timerID uuid.UUID) (*models.ReplayQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.replay {
		if e.TimerID == timerID && (e.Status == models.ReplayQueuePending || e.Status == models.ReplayQueueProcessing) {
			c := e
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetReplayEntry(ctx context.Context, id uuid.UUID) (*models.ReplayQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.replay[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *Store) SaveReplayEntry(ctx context.Context, e *models.ReplayQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.replay[e.ID]; !ok {
		return store.ErrNotFound
	}
	s.replay[e.ID] = *e
	return nil
}

func (s *Store) DeleteReplayEntriesForTimer(ctx context.Context, timerID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.replay {
		if e.TimerID == timerID {
			delete(s.replay, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) PendingReplayBatch(ctx context.Context, limit int) ([]models.ReplayQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReplayQueueEntry
	for _, e := range s.replay {
		if e.Status == models.ReplayQueuePending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAtMs < out[j].EnqueuedAtMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) StaleReplayBatch(ctx context.Context, olderThanMs int64, limit int) ([]models.ReplayQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReplayQueueEntry
	for _, e := range s.replay {
		if e.Status != models.ReplayQueueProcessed && e.Status != models.ReplayQueueError {
			continue
		}
		if replayStaleAtMs(e) <= olderThanMs {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAtMs < out[j].EnqueuedAtMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// replayStaleAtMs picks the timestamp CleanupQueue ages a replay entry
// against: processedAtMs when set, else the last attempt, else the
// time it was originally enqueued.
func replayStaleAtMs(e models.ReplayQueueEntry) int64 {
	if e.ProcessedAtMs != nil {
		return *e.ProcessedAtMs
	}
	if e.LastAttemptAtMs != nil {
		return *e.LastAttemptAtMs
	}
	return e.EnqueuedAtMs
}

func (s *Store) DeleteReplayEntries(ctx context.Context, ids []uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := s.replay[id]; ok {
			delete(s.replay, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendReplayHistory(ctx context.Context, h *models.ReplayHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replayHist = append(s.replayHist, *h)
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, id uuid.UUID) (*models.CronSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch, ok := s.schedules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sch, nil
}

func (s *Store) SaveSchedule(ctx context.Context, sch *models.CronSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sch.ID] = *sch
	return nil
}

func (s *Store) DueSchedules(ctx context.Context, atMs int64, limit int) ([]models.CronSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CronSchedule
	for _, sch := range s.schedules {
		if sch.Paused {
			continue
		}
		if sch.NextRunAtMs <= atMs {
			out = append(out, sch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunAtMs < out[j].NextRunAtMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) StaleExpiredTimers(ctx context.Context, beforeMs int64, limit int) ([]models.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Timer
	for _, t := range s.timers {
		if t.Status != models.StatusExpired || t.EndTimeMs == nil || *t.EndTimeMs >= beforeMs {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].EndTimeMs < *out[j].EndTimeMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
