package models

// TimerView augments a Timer with fields derived at read time rather
// than stored.
type TimerView struct {
	Timer

	// TimeRemainingMs is EndTimeMs - now, floored at 0. For timers
	// with no EndTimeMs (never started) it is the full DurationMs.
	TimeRemainingMs int64 `json:"timeRemainingMs"`

	// Progress is elapsed/duration in [0,1], 1 for terminal timers.
	Progress float64 `json:"progress"`
}

// NewTimerView computes a TimerView for t as of nowMs.
func NewTimerView(t Timer, nowMs int64) TimerView {
	v := TimerView{Timer: t}

	if t.Status.IsTerminal() {
		v.Progress = 1
	}

	if t.EndTimeMs == nil {
		// Never started: the whole duration is still ahead.
		v.TimeRemainingMs = t.DurationMs
		return v
	}

	remaining := *t.EndTimeMs - nowMs
	if remaining < 0 {
		remaining = 0
	}
	v.TimeRemainingMs = remaining

	if t.StartTimeMs != nil && !t.Status.IsTerminal() {
		if t.DurationMs <= 0 {
			v.Progress = 1
		} else {
			elapsed := nowMs - *t.StartTimeMs
			progress := float64(elapsed) / float64(t.DurationMs)
			if progress < 0 {
				progress = 0
			}
			if progress > 1 {
				progress = 1
			}
			v.Progress = progress
		}
	}

	return v
}
