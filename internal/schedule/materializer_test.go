package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MaterializesDueScheduleFromTemplate(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	lm := lifecycle.New(s, vc, 2)
	mat := New(s, vc, lm, 10)
	ctx := context.Background()

	tplID := uuid.New()
	s.SeedTemplate(models.Template{
		ID:     tplID,
		TeamID: "team-a",
		Name:   "daily-standup",
		Config: map[string]interface{}{"name": "standup", "duration": "15m"},
	})

	sch := models.CronSchedule{
		ID:             uuid.New(),
		TeamID:         "team-a",
		CronExpression: "0 9 * * *",
		TemplateID:     tplID.String(),
		NextRunAtMs:    models.NowMs(vc.Now()),
	}
	require.NoError(t, s.SaveSchedule(ctx, &sch))

	n, err := mat.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	timers, err := s.ListTimers(ctx, models.TimerFilter{TeamID: "team-a"})
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.Equal(t, "standup", timers[0].Name)

	updated, err := s.GetSchedule(ctx, sch.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastRunAtMs)
	assert.Greater(t, updated.NextRunAtMs, models.NowMs(vc.Now()))
	assert.Empty(t, updated.LastError)
}

func TestBuildConfig_MergesTemplateAndOverride(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	lm := lifecycle.New(s, vc, 2)
	mat := New(s, vc, lm, 10)
	ctx := context.Background()

	tplID := uuid.New()
	s.SeedTemplate(models.Template{
		ID:     tplID,
		TeamID: "team-a",
		Config: map[string]interface{}{
			"name":     "from-template",
			"duration": "10m",
			"events": map[string]interface{}{
				"on_expire": map[string]interface{}{
					"webhookUrl": "https://hook.example/tpl",
					"message":    "fired",
				},
			},
			"retryPolicy": map[string]interface{}{
				"strategy":    "exponential",
				"backoffMs":   2000,
				"maxAttempts": 4,
			},
		},
	})

	sch := models.CronSchedule{
		ID:             uuid.New(),
		TeamID:         "team-a",
		CreatedBy:      "scheduler-admin",
		CronExpression: "0 9 * * *",
		TemplateID:     tplID.String(),
		TimerConfigOverride: map[string]interface{}{
			"name": "from-override",
		},
		NextRunAtMs: models.NowMs(vc.Now()),
	}

	cfg, err := mat.BuildConfig(ctx, &sch)
	require.NoError(t, err)
	assert.Equal(t, "from-override", cfg.Name)
	assert.Equal(t, "10m", cfg.Duration)
	assert.Equal(t, "team-a", cfg.TeamID)
	assert.Equal(t, "scheduler-admin", cfg.CreatedBy)
	require.NotNil(t, cfg.Events.OnExpire)
	assert.Equal(t, "https://hook.example/tpl", cfg.Events.OnExpire.WebhookURL)
	require.NotNil(t, cfg.RetryPolicy)
	assert.Equal(t, 4, cfg.RetryPolicy.MaxAttempts)
	assert.Equal(t, int64(2000), cfg.RetryPolicy.BackoffMs)
}

func TestRun_AdvancesLastRunToPreviousNextRun(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC))
	lm := lifecycle.New(s, vc, 2)
	mat := New(s, vc, lm, 10)
	ctx := context.Background()

	scheduledFor := models.NowMs(vc.Now()) - 30*60*1000
	sch := models.CronSchedule{
		ID:                  uuid.New(),
		TeamID:              "team-a",
		CronExpression:      "0 9 * * *",
		TimerConfigOverride: map[string]interface{}{"duration": "1m"},
		NextRunAtMs:         scheduledFor,
	}
	require.NoError(t, s.SaveSchedule(ctx, &sch))

	_, err := mat.Run(ctx)
	require.NoError(t, err)

	updated, err := s.GetSchedule(ctx, sch.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastRunAtMs)
	assert.Equal(t, scheduledFor, *updated.LastRunAtMs)
}

func TestRun_RecordsErrorWithoutHaltingBatch(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	lm := lifecycle.New(s, vc, 2)
	mat := New(s, vc, lm, 10)
	ctx := context.Background()

	broken := models.CronSchedule{
		ID:             uuid.New(),
		TeamID:         "team-a",
		CronExpression: "0 9 * * *",
		TemplateID:     uuid.New().String(), // no such template
		NextRunAtMs:    models.NowMs(vc.Now()),
	}
	require.NoError(t, s.SaveSchedule(ctx, &broken))

	working := models.CronSchedule{
		ID:                  uuid.New(),
		TeamID:              "team-b",
		CronExpression:      "0 9 * * *",
		TimerConfigOverride: map[string]interface{}{"duration": "1m"},
		NextRunAtMs:         models.NowMs(vc.Now()),
	}
	require.NoError(t, s.SaveSchedule(ctx, &working))

	n, err := mat.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updatedBroken, err := s.GetSchedule(ctx, broken.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, updatedBroken.LastError)
}
