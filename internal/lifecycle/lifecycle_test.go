package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/condition"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() (*Manager, *memory.Store, *clock.Virtual) {
	s := memory.New()
	vc := clock.NewVirtual(time.Unix(1700000000, 0))
	return New(s, vc, 3), s, vc
}

func TestCreate_NoDependenciesActivatesImmediately(t *testing.T) {
	m, s, vc := newManager()
	ctx := context.Background()

	tm, err := m.Create(ctx, models.CreateTimerConfig{
		Name:      "standup-reminder",
		TeamID:    "team-a",
		Duration:  "5m",
		CreatedBy: "agent-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, tm.Status)
	require.NotNil(t, tm.StartTimeMs)
	require.NotNil(t, tm.EndTimeMs)
	assert.Equal(t, models.NowMs(vc.Now())+300000, *tm.EndTimeMs)

	exps, err := s.DueExpirations(ctx, *tm.EndTimeMs, 10)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, tm.ID, exps[0].TimerID)
}

func TestCreate_WithDependenciesStaysPending(t *testing.T) {
	m, _, _ := newManager()
	ctx := context.Background()

	blocker := uuid.New()
	tm, err := m.Create(ctx, models.CreateTimerConfig{
		Duration:     "1m",
		Dependencies: []string{blocker.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tm.Status)
	assert.Nil(t, tm.EndTimeMs)
}

func TestCreate_DeduplicatesDependencies(t *testing.T) {
	m, _, _ := newManager()
	ctx := context.Background()

	blocker := uuid.New().String()
	other := uuid.New().String()
	tm, err := m.Create(ctx, models.CreateTimerConfig{
		Duration:     "1m",
		Dependencies: []string{blocker, other, blocker},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{blocker, other}, tm.Dependencies)
	assert.Equal(t, []string{blocker, other}, tm.PendingDependencies)
}

func TestCreate_RequiresDuration(t *testing.T) {
	m, _, _ := newManager()
	_, err := m.Create(context.Background(), models.CreateTimerConfig{})
	assert.Error(t, err)
}

func TestCreate_SkipsWhenConditionsFailAndNoDependencies(t *testing.T) {
	m, s, _ := newManager()
	ctx := context.Background()

	tm, err := m.Create(ctx, models.CreateTimerConfig{
		Duration: "1m",
		Context:  map[string]interface{}{"approved": false},
		Conditions: []condition.Condition{
			{Lhs: "context.approved", Operator: condition.Equals, Rhs: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, tm.Status)
	assert.Equal(t, "conditions_not_met", tm.SkipReason)
	assert.Nil(t, tm.EndTimeMs)

	exps, err := s.DueExpirations(ctx, models.NowMs(time.Now())+1<<40, 10)
	require.NoError(t, err)
	assert.Empty(t, exps)
}

func TestUpdate_AppliesPartialPatch(t *testing.T) {
	m, _, _ := newManager()
	ctx := context.Background()

	tm, err := m.Create(ctx, models.CreateTimerConfig{Duration: "1m"})
	require.NoError(t, err)

	newName := "renamed"
	updated, err := m.Update(ctx, tm.ID, models.UpdateTimerPatch{
		Name:     &newName,
		Metadata: map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "v", updated.Metadata["k"])
}

func TestCleanupExpired_DeletesOnlyStaleExpiredTimers(t *testing.T) {
	m, s, vc := newManager()
	ctx := context.Background()

	tm, err := m.Create(ctx, models.CreateTimerConfig{Duration: "1m"})
	require.NoError(t, err)

	tm.Status = models.StatusExpired
	completed := models.NowMs(vc.Now())
	tm.CompletedAtMs = &completed
	tm.EndTimeMs = &completed
	require.NoError(t, s.SaveTimer(ctx, tm))

	vc.Advance(48 * time.Hour)
	n, err := m.CleanupExpired(ctx, models.NowMs(vc.Now())-24*3600*1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetTimer(ctx, tm.ID)
	assert.Error(t, err)
}

func TestReleaseDependents_ActivatesWhenUnblocked(t *testing.T) {
	m, s, _ := newManager()
	ctx := context.Background()

	blocker, err := m.Create(ctx, models.CreateTimerConfig{Duration: "1m", Dependencies: nil})
	require.NoError(t, err)

	dependent, err := m.Create(ctx, models.CreateTimerConfig{
		Duration:     "2m",
		Dependencies: []string{blocker.ID.String()},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, dependent.Status)

	require.NoError(t, m.ReleaseDependents(ctx, blocker.ID))

	updated, err := s.GetTimer(ctx, dependent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, updated.Status)
	assert.Empty(t, updated.PendingDependencies)
}

func TestReleaseDependents_SkipsWhenConditionsFail(t *testing.T) {
	m, s, _ := newManager()
	ctx := context.Background()

	blocker, err := m.Create(ctx, models.CreateTimerConfig{Duration: "1m"})
	require.NoError(t, err)

	dependent, err := m.Create(ctx, models.CreateTimerConfig{
		Duration:     "2m",
		Dependencies: []string{blocker.ID.String()},
		Context:      map[string]interface{}{"approved": false},
		Conditions: []condition.Condition{
			{Lhs: "context.approved", Operator: condition.Equals, Rhs: true},
		},
	})
	require.NoError(t, err)

	require.NoError(t, m.ReleaseDependents(ctx, blocker.ID))

	updated, err := s.GetTimer(ctx, dependent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, updated.Status)
	assert.NotEmpty(t, updated.SkipReason)
}

func TestGet_ComputesDerivedFields(t *testing.T) {
	m, _, vc := newManager()
	ctx := context.Background()

	tm, err := m.Create(ctx, models.CreateTimerConfig{Duration: "10s"})
	require.NoError(t, err)

	vc.Advance(4 * time.Second)
	view, err := m.Get(ctx, tm.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, view.Progress, 0.05)
	assert.InDelta(t, 6000, view.TimeRemainingMs, 200)
}
