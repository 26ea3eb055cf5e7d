package dashboard

import (
	"sync"
	"time"
)

// DebounceDelay is how long the scheduler waits after a control change
// before recomputing, so rapid typing in the search box coalesces into
// one recompute.
const DebounceDelay = 350 * time.Millisecond

// Scheduler decides when the pipeline recomputes. Data changes (new
// analysis results arriving) recompute immediately and cancel any
// pending control-change timer. Control changes (search text, band,
// sort) are deferred by the debounce delay, and each new control change
// supersedes the previous pending one.
type Scheduler struct {
	mu        sync.Mutex
	recompute func()
	delay     time.Duration
	timer     *time.Timer
	pending   bool
	closed    bool
}

// NewScheduler wires recompute as the pipeline trigger.
func NewScheduler(recompute func()) *Scheduler {
	return &Scheduler{recompute: recompute, delay: DebounceDelay}
}

// SetDelay overrides the debounce delay. Used in tests.
func (s *Scheduler) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// DataChanged recomputes synchronously, cancelling any deferred
// recompute since it would now run against the same data.
func (s *Scheduler) DataChanged() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelPendingLocked()
	s.mu.Unlock()

	s.recompute()
}

// ControlsChanged schedules a deferred recompute, superseding any
// pending one.
func (s *Scheduler) ControlsChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelPendingLocked()
	s.pending = true
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.closed || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.recompute()
}

// Recomputing reports whether a deferred recompute is pending. The
// dashboard shows a "recomputing" hint while this is true.
func (s *Scheduler) Recomputing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close cancels any pending recompute. Further change notifications are
// ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.closed = true
}

func (s *Scheduler) cancelPendingLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}
