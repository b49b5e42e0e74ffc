// Package postgres is the GORM-backed implementation of store.Store,
// adapted from the job/execution/history repositories this engine
// replaces: one struct wrapping *gorm.DB, one method per query,
// filters folded into a query builder.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store"
	"gorm.io/gorm"
)

// Store is the Postgres-backed store.Store implementation.
type Store struct {
	db *gorm.DB
}

// New wraps db as a store.Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates/updates the tables backing every model the
// engine persists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Timer{},
		&models.ExpirationRecord{},
		&models.EventLogEntry{},
		&models.TeamMetric{},
		&models.DeletionMetric{},
		&models.ReplayQueueEntry{},
		&models.ReplayHistoryEntry{},
		&models.CronSchedule{},
		&models.Template{},
	)
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) CreateTimer(ctx context.Context, t *models.Timer) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) SaveTimer(ctx context.Context, t *models.Timer) error {
	return s.db.WithContext(ctx).Save(t).Error
}

func (s *Store) GetTimer(ctx context.Context, id uuid.UUID) (*models.Timer, error) {
	var t models.Timer
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

func (s *Store) ListTimers(ctx context.Context, filter models.TimerFilter) ([]models.Timer, error) {
	query := s.db.WithContext(ctx).Model(&models.Timer{})
	if filter.AgentID != "" {
		query = query.Where("owner_agent_id = ?", filter.AgentID)
	}
	if filter.TeamID != "" {
		query = query.Where("team_id = ?", filter.TeamID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var out []models.Timer
	err := query.Order("created_at_ms ASC").Find(&out).Error
	return out, err
}

func (s *Store) DeleteTimer(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.Timer{}, "id = ?", id).Error
}

func (s *Store) ListDependents(ctx context.Context, timerID uuid.UUID) ([]models.Timer, error) {
	id := timerID.String()
	var out []models.Timer
	err := s.db.WithContext(ctx).
		Where("dependencies @> ? OR pending_dependencies @> ?", jsonArray(id), jsonArray(id)).
		Find(&out).Error
	return out, err
}

// jsonArray renders a single-element JSON array literal for a jsonb
// containment (@>) check.
func jsonArray(v string) string {
	return `["` + v + `"]`
}

func (s *Store) UpsertExpiration(ctx context.Context, e *models.ExpirationRecord) error {
	return s.db.WithContext(ctx).Save(e).Error
}

func (s *Store) DeleteExpiration(ctx context.Context, timerID uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.ExpirationRecord{}, "timer_id = ?", timerID).Error
}

func (s *Store) DueExpirations(ctx context.Context, atMs int64, limit int) ([]models.ExpirationRecord, error) {
	var out []models.ExpirationRecord
	query := s.db.WithContext(ctx).Where("expires_at_ms <= ?", atMs).Order("expires_at_ms ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

func (s *Store) AppendEvent(ctx context.Context, e *models.EventLogEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) DeleteEventsForTimer(ctx context.Context, timerID uuid.UUID) (int, error) {
	result := s.db.WithContext(ctx).Delete(&models.EventLogEntry{}, "timer_id = ?", timerID)
	return int(result.RowsAffected), result.Error
}

func (s *Store) AppendTeamMetric(ctx context.Context, m *models.TeamMetric) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *Store) DeleteTeamMetricsForTimer(ctx context.Context, timerID uuid.UUID) (int, error) {
	result := s.db.WithContext(ctx).Delete(&models.TeamMetric{}, "timer_id = ?", timerID)
	return int(result.RowsAffected), result.Error
}

func (s *Store) AppendDeletionMetric(ctx context.Context, m *models.DeletionMetric) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *Store) EnqueueReplay(ctx context.Context, e *models.ReplayQueueEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) PendingReplayForTimer(ctx context.Context, timerID uuid.UUID) (*models.ReplayQueueEntry, error) {
	var e models.ReplayQueueEntry
	err := s.db.WithContext(ctx).
		Where("timer_id = ?", timerID).
		Where("status IN ?", []models.ReplayQueueStatus{models.ReplayQueuePending, models.ReplayQueueProcessing}).
		First(&e).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &e, nil
}

func (s *Store) GetReplayEntry(ctx context.Context, id uuid.UUID) (*models.ReplayQueueEntry, error) {
	var e models.ReplayQueueEntry
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &e, nil
}

func (s *Store) SaveReplayEntry(ctx context.Context, e *models.ReplayQueueEntry) error {
	return s.db.WithContext(ctx).Save(e).Error
}

func (s *Store) DeleteReplayEntriesForTimer(ctx context.Context, timerID uuid.UUID) (int, error) {
	result := s.db.WithContext(ctx).Delete(&models.ReplayQueueEntry{}, "timer_id = ?", timerID)
	return int(result.RowsAffected), result.Error
}

func (s *Store) PendingReplayBatch(ctx context.Context, limit int) ([]models.ReplayQueueEntry, error) {
	var out []models.ReplayQueueEntry
	query := s.db.WithContext(ctx).
		Where("status = ?", models.ReplayQueuePending).
		Order("enqueued_at_ms ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

func (s *Store) StaleReplayBatch(ctx context.Context, olderThanMs int64, limit int) ([]models.ReplayQueueEntry, error) {
	var out []models.ReplayQueueEntry
	query := s.db.WithContext(ctx).
		Where("status IN ?", []models.ReplayQueueStatus{models.ReplayQueueProcessed, models.ReplayQueueError}).
		Where("COALESCE(processed_at_ms, last_attempt_at_ms, enqueued_at_ms) <= ?", olderThanMs).
		Order("enqueued_at_ms ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

func (s *Store) DeleteReplayEntries(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Delete(&models.ReplayQueueEntry{}, "id IN ?", ids)
	return int(result.RowsAffected), result.Error
}

func (s *Store) AppendReplayHistory(ctx context.Context, h *models.ReplayHistoryEntry) error {
	return s.db.WithContext(ctx).Create(h).Error
}

func (s *Store) GetSchedule(ctx context.Context, id uuid.UUID) (*models.CronSchedule, error) {
	var sch models.CronSchedule
	if err := s.db.WithContext(ctx).First(&sch, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &sch, nil
}

func (s *Store) SaveSchedule(ctx context.Context, sch *models.CronSchedule) error {
	return s.db.WithContext(ctx).Save(sch).Error
}

func (s *Store) DueSchedules(ctx context.Context, atMs int64, limit int) ([]models.CronSchedule, error) {
	var out []models.CronSchedule
	query := s.db.WithContext(ctx).
		Where("paused = ?", false).
		Where("next_run_at_ms <= ?", atMs).
		Order("next_run_at_ms ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var t models.Template
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

func (s *Store) StaleExpiredTimers(ctx context.Context, beforeMs int64, limit int) ([]models.Timer, error) {
	var out []models.Timer
	query := s.db.WithContext(ctx).
		Where("status = ?", models.StatusExpired).
		Where("end_time_ms < ?", beforeMs).
		Order("end_time_ms ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&out).Error
	return out, err
}

var _ store.Store = (*Store)(nil)
