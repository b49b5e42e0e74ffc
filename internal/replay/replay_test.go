package replay

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

func newManager() (*Manager, *lifecycle.Manager, *memory.Store, *clock.Virtual) {
	s := memory.New()
	vc := clock.NewVirtual(time.Unix(1700000000, 0))
	lm := lifecycle.New(s, vc, 2)
	return New(s, vc, lm), lm, s, vc
}

func TestEnqueue_DeduplicatesPendingEntry(t *testing.T) {
	m, lm, s, _ := newManager()
	ctx := context.Background()

	tm, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m", TeamID: "team-a"})
	require.NoError(t, err)

	first, err := m.Enqueue(ctx, *tm, models.EnqueueReplayMeta{Reason: "webhook_failed"})
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := m.Enqueue(ctx, *tm, models.EnqueueReplayMeta{Reason: "webhook_failed"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	batch, err := s.PendingReplayBatch(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestReplay_CreatesLineageAndFreshTimer(t *testing.T) {
	m, lm, s, _ := newManager()
	ctx := context.Background()

	source, err := lm.Create(ctx, models.CreateTimerConfig{
		Duration: "1m",
		TeamID:   "team-a",
		Metadata: map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)

	replayed, err := m.Replay(ctx, source.ID, models.ReplayOptions{Reason: "manual"})
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, replayed.ID)
	assert.Equal(t, source.ID.String(), replayed.Metadata["replayOf"])
	assert.Equal(t, "manual", replayed.Metadata["replayReason"])
	assert.Equal(t, "v", replayed.Metadata["k"])
	assert.Empty(t, replayed.Dependencies)

	due, err := s.DueExpirations(ctx, models.NowMs(time.Now())+1<<40, 10)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, e := range due {
		ids = append(ids, e.TimerID)
	}
	assert.Contains(t, ids, replayed.ID)
}

func TestReplay_GeneratesNameWhenSourceHasNone(t *testing.T) {
	m, lm, _, _ := newManager()
	ctx := context.Background()

	source, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m"})
	require.NoError(t, err)

	replayed, err := m.Replay(ctx, source.ID, models.ReplayOptions{Reason: "manual"})
	require.NoError(t, err)
	assert.Contains(t, replayed.Name, source.ID.String())
}

func TestProcessQueue_DrainsPendingIntoReplayTimers(t *testing.T) {
	m, lm, s, _ := newManager()
	ctx := context.Background()

	source, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m", TeamID: "team-a"})
	require.NoError(t, err)

	_, err = m.Enqueue(ctx, *source, models.EnqueueReplayMeta{Reason: "webhook_failed"})
	require.NoError(t, err)

	results, err := m.ProcessQueue(ctx, models.ProcessReplayQueueOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	entry, err := s.GetReplayEntry(ctx, results[0].QueueEntryID)
	require.NoError(t, err)
	assert.Equal(t, models.ReplayQueueProcessed, entry.Status)
	assert.Equal(t, results[0].ReplayTimerID, *entry.ReplayTimerID)

	_, err = s.PendingReplayForTimer(ctx, source.ID)
	assert.Error(t, err)
}

func TestCleanupQueue_PurgesOnlyStaleProcessedEntries(t *testing.T) {
	m, lm, s, vc := newManager()
	ctx := context.Background()

	source, err := lm.Create(ctx, models.CreateTimerConfig{Duration: "1m"})
	require.NoError(t, err)

	_, err = m.Enqueue(ctx, *source, models.EnqueueReplayMeta{Reason: "webhook_failed"})
	require.NoError(t, err)
	_, err = m.ProcessQueue(ctx, models.ProcessReplayQueueOptions{})
	require.NoError(t, err)

	vc.Advance(8 * 24 * time.Hour)
	purged, err := m.CleanupQueue(ctx, models.ReplayCleanupOptions{
		OlderThanMs: models.NowMs(vc.Now()) - 7*24*3600*1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	batch, err := s.StaleReplayBatch(ctx, models.NowMs(vc.Now()), 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
