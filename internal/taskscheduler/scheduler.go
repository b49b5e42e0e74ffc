// Package taskscheduler drives the engine's five periodic background
// tasks, each gated by a Redis leader lock so only one process in a
// fleet runs a given tick at a time. Adapted from the scheduler
// loop/heartbeat/cleanup-loop structure this engine replaces: one
// ticker goroutine per task instead of one scheduler loop doing
// everything.
package taskscheduler

import (
	"context"
	"sync"
	"time"

	"github.com/minoots/engine/internal/lock"
	"github.com/rs/zerolog/log"
)

// task is one periodic unit of work the scheduler drives.
type task struct {
	name     string
	interval time.Duration
	lockTTL  time.Duration
	run      func(ctx context.Context) (int, error)
}

// Config carries the tick intervals for each of the five periodic
// tasks.
type Config struct {
	ExpirationSweepInterval time.Duration
	ReplaySweepInterval     time.Duration
	ScheduleTickInterval    time.Duration
	CleanupInterval         time.Duration
	ReplayCleanupInterval   time.Duration
}

// Runners bundles the task functions the Scheduler ticks. Each
// returns the number of items processed, or an error.
type Runners struct {
	ExpirationSweep func(ctx context.Context) (int, error)
	ReplaySweep     func(ctx context.Context) (int, error)
	ScheduleTick    func(ctx context.Context) (int, error)
	Cleanup         func(ctx context.Context) (int, error)
	ReplayCleanup   func(ctx context.Context) (int, error)
}

// Scheduler runs each configured task on its own ticker, gated by a
// distributed leader lock so only one process executes a given tick.
type Scheduler struct {
	locker *lock.DistributedLocker
	tasks  []task

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New builds a Scheduler from cfg/runners. A task whose Runners field
// is nil is skipped, so callers wire only the tasks they want driven
// (useful for single-purpose worker processes).
func New(locker *lock.DistributedLocker, cfg Config, runners Runners) *Scheduler {
	s := &Scheduler{locker: locker}

	add := func(name string, interval time.Duration, run func(ctx context.Context) (int, error)) {
		if run == nil || interval <= 0 {
			return
		}
		s.tasks = append(s.tasks, task{name: name, interval: interval, lockTTL: interval, run: run})
	}

	add("expiration-sweep", cfg.ExpirationSweepInterval, runners.ExpirationSweep)
	add("replay-sweep", cfg.ReplaySweepInterval, runners.ReplaySweep)
	add("schedule-tick", cfg.ScheduleTickInterval, runners.ScheduleTick)
	add("cleanup", cfg.CleanupInterval, runners.Cleanup)
	add("replay-cleanup", cfg.ReplayCleanupInterval, runners.ReplayCleanup)

	return s
}

// Start launches one ticker goroutine per configured task.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(t)
	}
}

// Stop cancels every task loop and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(t task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(t)
		}
	}
}

// tick acquires the leader lock for t and, if acquired, runs it.
// While the lock is held no other process starts the same task. The
// lock's TTL equals the tick interval and is not refreshed while the
// tick runs, so a tick that outlasts its interval lets the lock lapse
// and another process may start the next tick alongside it. Within
// one process a task's ticks run one at a time.
func (s *Scheduler) tick(t task) {
	acquired, err := s.locker.AcquireLock(s.ctx, "taskscheduler:"+t.name, t.lockTTL)
	if err != nil {
		log.Error().Err(err).Str("task", t.name).Msg("taskscheduler: lock acquire failed")
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := s.locker.ReleaseLock(s.ctx, "taskscheduler:"+t.name); err != nil {
			log.Error().Err(err).Str("task", t.name).Msg("taskscheduler: lock release failed")
		}
	}()

	// Soft budget: a tick that overruns 5x its cadence is cut off
	// rather than left to pile up behind the lock.
	runCtx, cancel := context.WithTimeout(s.ctx, 5*t.interval)
	defer cancel()

	n, err := t.run(runCtx)
	if err != nil {
		log.Error().Err(err).Str("task", t.name).Msg("taskscheduler: tick failed")
		return
	}
	if n > 0 {
		log.Info().Str("task", t.name).Int("processed", n).Msg("taskscheduler: tick complete")
	}
}
