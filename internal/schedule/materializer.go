// Package schedule materializes cron schedules into fresh timers on
// each due tick.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/retrypolicy"
	"github.com/minoots/engine/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize bounds how many due schedules one Run call ticks.
const DefaultBatchSize = 25

// Materializer ticks due cron schedules into new timers.
type Materializer struct {
	store     store.Store
	clock     clock.Clock
	lifecycle *lifecycle.Manager
	parser    cron.Parser
	batchSize int
}

// New returns a Materializer. batchSize <= 0 selects DefaultBatchSize.
func New(s store.Store, c clock.Clock, l *lifecycle.Manager, batchSize int) *Materializer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Materializer{
		store:     s,
		clock:     c,
		lifecycle: l,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		batchSize: batchSize,
	}
}

// Run materializes every due schedule, advancing each to its next run
// time regardless of whether materialization succeeded. A persistently
// broken schedule's error is recorded, not retried in a tight loop.
func (m *Materializer) Run(ctx context.Context) (int, error) {
	now := m.clock.Now()
	nowMs := models.NowMs(now)
	due, err := m.store.DueSchedules(ctx, nowMs, m.batchSize)
	if err != nil {
		return 0, fmt.Errorf("schedule: list due: %w", err)
	}

	materialized := 0
	for i := range due {
		sch := due[i]
		if err := m.tick(ctx, &sch); err != nil {
			log.Error().Err(err).Str("scheduleId", sch.ID.String()).Msg("schedule: materialize failed")
			sch.LastError = err.Error()
		} else {
			sch.LastError = ""
			materialized++
		}

		lastRun := sch.NextRunAtMs
		sch.LastRunAtMs = &lastRun
		next, nextErr := m.nextRun(sch.CronExpression)
		if nextErr != nil {
			log.Error().Err(nextErr).Str("scheduleId", sch.ID.String()).Msg("schedule: cron expression unparseable, pausing schedule")
			sch.Paused = true
		} else {
			sch.NextRunAtMs = next
		}
		if err := m.store.SaveSchedule(ctx, &sch); err != nil {
			log.Error().Err(err).Str("scheduleId", sch.ID.String()).Msg("schedule: save failed")
		}
	}
	return materialized, nil
}

func (m *Materializer) nextRun(expr string) (int64, error) {
	schedule, err := m.parser.Parse(expr)
	if err != nil {
		return 0, fmt.Errorf("parse cron expression: %w", err)
	}
	return models.NowMs(schedule.Next(m.clock.Now())), nil
}

// BuildConfig resolves sch into the timer config its next run would
// create: the template's config (when one is referenced) overlaid
// with the schedule's own override, team and creator injected from
// the schedule.
func (m *Materializer) BuildConfig(ctx context.Context, sch *models.CronSchedule) (models.CreateTimerConfig, error) {
	cfg := models.CreateTimerConfig{TeamID: sch.TeamID, CreatedBy: sch.CreatedBy}

	if sch.TemplateID != "" {
		tplID, err := uuid.Parse(sch.TemplateID)
		if err != nil {
			return cfg, fmt.Errorf("parse template id: %w", err)
		}
		tpl, err := m.store.GetTemplate(ctx, tplID)
		if err != nil {
			return cfg, fmt.Errorf("load template: %w", err)
		}
		applyTimerConfig(&cfg, tpl.Config)
	}
	applyTimerConfig(&cfg, sch.TimerConfigOverride)
	return cfg, nil
}

// tick materializes sch into a fresh timer through the ordinary
// create path.
func (m *Materializer) tick(ctx context.Context, sch *models.CronSchedule) error {
	cfg, err := m.BuildConfig(ctx, sch)
	if err != nil {
		return err
	}
	if _, err := m.lifecycle.Create(ctx, cfg); err != nil {
		return fmt.Errorf("create timer: %w", err)
	}
	return nil
}

// applyTimerConfig overlays the recognized keys of raw onto cfg,
// letting a schedule's per-run override win over its template's
// defaults (raw applied second overrides raw applied first).
func applyTimerConfig(cfg *models.CreateTimerConfig, raw map[string]interface{}) {
	if raw == nil {
		return
	}
	if v, ok := raw["name"].(string); ok {
		cfg.Name = v
	}
	if v, ok := raw["duration"]; ok {
		cfg.Duration = v
	}
	if v, ok := raw["ownerAgentId"].(string); ok {
		cfg.OwnerAgentID = v
	}
	if v, ok := raw["context"].(map[string]interface{}); ok {
		cfg.Context = v
	}
	if v, ok := raw["metadata"].(map[string]interface{}); ok {
		cfg.Metadata = v
	}
	if v, ok := raw["conditions"].(map[string]interface{}); ok {
		cfg.ConditionsMap = v
	}
	if v, ok := raw["dependencies"].([]interface{}); ok {
		var deps []string
		for _, d := range v {
			if s, ok := d.(string); ok {
				deps = append(deps, s)
			}
		}
		cfg.Dependencies = deps
	}
	if v, ok := raw["events"]; ok {
		var ev models.TimerEvents
		if reencode(v, &ev) {
			cfg.Events = ev
		}
	}
	if v, ok := raw["retryPolicy"]; ok {
		var p retrypolicy.Policy
		if reencode(v, &p) {
			cfg.RetryPolicy = &p
		}
	}
	if v, ok := raw["scenario"].(string); ok {
		cfg.Scenario = v
	}
	if v, ok := raw["chainId"].(string); ok {
		cfg.ChainID = v
	}
	if v, ok := raw["loadBalancingKey"].(string); ok {
		cfg.LoadBalancingKey = v
	}
}

// reencode round-trips a JSONB sub-document into its typed shape.
func reencode(v interface{}, out interface{}) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, out) == nil
}
