package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTimerView_NeverStartedReportsFullDuration(t *testing.T) {
	tm := Timer{DurationMs: 60000, Status: StatusPending}
	v := NewTimerView(tm, 1700000000000)
	assert.Equal(t, int64(60000), v.TimeRemainingMs)
	assert.Zero(t, v.Progress)
}

func TestNewTimerView_RunningComputesProgress(t *testing.T) {
	start := int64(1700000000000)
	end := start + 10000
	tm := Timer{DurationMs: 10000, Status: StatusRunning, StartTimeMs: &start, EndTimeMs: &end}

	v := NewTimerView(tm, start+4000)
	assert.Equal(t, int64(6000), v.TimeRemainingMs)
	assert.InDelta(t, 0.4, v.Progress, 0.001)
}

func TestNewTimerView_ZeroDurationRunningIsComplete(t *testing.T) {
	start := int64(1700000000000)
	end := start
	tm := Timer{DurationMs: 0, Status: StatusRunning, StartTimeMs: &start, EndTimeMs: &end}

	v := NewTimerView(tm, start)
	assert.Zero(t, v.TimeRemainingMs)
	assert.Equal(t, float64(1), v.Progress)
}

func TestNewTimerView_TerminalClampsProgress(t *testing.T) {
	start := int64(1700000000000)
	end := start + 1000
	completed := end
	tm := Timer{
		DurationMs:    1000,
		Status:        StatusExpired,
		StartTimeMs:   &start,
		EndTimeMs:     &end,
		CompletedAtMs: &completed,
	}

	v := NewTimerView(tm, end+500000)
	assert.Equal(t, float64(1), v.Progress)
	assert.Zero(t, v.TimeRemainingMs)
}
