// Package ephemeral owns the process-local registry of pending view
// reversion timers. Exactly one timer may be pending per UI surface;
// arming a new one cancels the old (last-writer-wins). Timers are not
// persisted: a restart drops pending reversions and the next explicit
// interaction rebuilds canonical state.
package ephemeral

import (
	"fmt"
	"log"
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	gen   uint64
}

type Scheduler struct {
	mu      sync.Mutex
	pending map[string]entry
	gen     uint64
	logf    func(format string, args ...any)
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		pending: make(map[string]entry),
		logf:    log.Printf,
	}
}

// Arm schedules onFire for the surface after delay, cancelling any timer
// already pending for it. onFire runs at most once, on the timer
// goroutine; it must re-fetch current state rather than trusting captured
// snapshots. Errors and panics from onFire are logged and swallowed, and
// the registry entry is cleared either way.
func (s *Scheduler) Arm(surfaceID string, delay time.Duration, onFire func() error) {
	s.mu.Lock()
	if old, ok := s.pending[surfaceID]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	e := entry{gen: gen}
	e.timer = time.AfterFunc(delay, func() {
		s.fire(surfaceID, gen, onFire)
	})
	s.pending[surfaceID] = e
	s.mu.Unlock()
}

// Cancel removes the pending timer for the surface, reporting whether one
// existed. Used when the canonical action for a surface supersedes the
// scheduled reversion.
func (s *Scheduler) Cancel(surfaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[surfaceID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, surfaceID)
	return true
}

// Replace is Cancel followed by Arm, kept as an explicit operation so
// call sites read as intent.
func (s *Scheduler) Replace(surfaceID string, delay time.Duration, onFire func() error) {
	s.Arm(surfaceID, delay, onFire)
}

// Armed reports whether a timer is pending for the surface.
func (s *Scheduler) Armed(surfaceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[surfaceID]
	return ok
}

func (s *Scheduler) fire(surfaceID string, gen uint64, onFire func() error) {
	s.mu.Lock()
	e, ok := s.pending[surfaceID]
	if !ok || e.gen != gen {
		// cancelled or replaced between the timer firing and the lock
		s.mu.Unlock()
		return
	}
	delete(s.pending, surfaceID)
	s.mu.Unlock()

	if err := s.run(onFire); err != nil {
		s.logf("ephemeral: reversion for surface %s failed: %v", surfaceID, err)
	}
}

func (s *Scheduler) run(onFire func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return onFire()
}
