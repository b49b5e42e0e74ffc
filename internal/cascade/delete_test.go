package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minoots/engine/internal/clock"
	"github.com/minoots/engine/internal/lifecycle"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/store"
	"github.com/minoots/engine/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelete_UnknownTimerReturnsNotDeleted(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Unix(1700000000, 0))
	lm := lifecycle.New(s, vc, 2)
	d := New(s, vc, lm)

	res, err := d.Delete(context.Background(), uuid.New(), models.DeleteOptions{})
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, models.DeletionCounts{}, res.Counts)
}

func TestDelete_CascadeReclaimsDependentRecords(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Unix(1700000000, 0))
	lm := lifecycle.New(s, vc, 2)
	d := New(s, vc, lm)
	ctx := context.Background()

	tm, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m", TeamID: "team-a"})
	require.NoError(t, err)

	res, err := d.Delete(ctx, tm.ID, models.DeleteOptions{Reason: "manual cleanup"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, "team-a", res.TeamID)
	assert.Equal(t, 1, res.Counts.Logs) // the activation event

	_, err = s.GetTimer(ctx, tm.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_WithoutCascadeKeepsDependentRecords(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Unix(1700000000, 0))
	lm := lifecycle.New(s, vc, 2)
	d := New(s, vc, lm)
	ctx := context.Background()

	tm, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m", TeamID: "team-a"})
	require.NoError(t, err)

	noCascade := false
	res, err := d.Delete(ctx, tm.ID, models.DeleteOptions{Cascade: &noCascade})
	require.NoError(t, err)
	assert.Equal(t, models.DeletionCounts{}, res.Counts)
}

func TestDelete_ReleasesDependentsBeforeRemoval(t *testing.T) {
	s := memory.New()
	vc := clock.NewVirtual(time.Unix(1700000000, 0))
	lm := lifecycle.New(s, vc, 2)
	d := New(s, vc, lm)
	ctx := context.Background()

	blocker, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m"})
	require.NoError(t, err)
	dependent, err := lm.Create(ctx, models.CreateTimerConfig{
		Duration:     "1m",
		Dependencies: []string{blocker.ID.String()},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, dependent.Status)

	_, err = d.Delete(ctx, blocker.ID, models.DeleteOptions{})
	require.NoError(t, err)

	updated, err := s.GetTimer(ctx, dependent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, updated.Status)
}
