package debounce

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler driven by an explicit clock. Timers fire
// only from Advance, on the caller's goroutine, in deadline order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID uint64
	timers []*manualTimer
}

type manualTimer struct {
	s        *ManualScheduler
	id       uint64
	deadline time.Duration
	fn       func()
	stopped  bool
	fired    bool
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &manualTimer{s: s, id: s.nextID, deadline: s.now + d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// Stop implements Timer.
func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the current manual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires every due timer. Timers
// scheduled by a firing callback fire in the same Advance if they fall due.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		due := s.nextDueLocked(target)
		if due == nil {
			s.now = target
			s.compactLocked()
			s.mu.Unlock()
			return
		}
		if due.deadline > s.now {
			s.now = due.deadline
		}
		due.fired = true
		s.mu.Unlock()

		due.fn()
	}
}

func (s *ManualScheduler) nextDueLocked(target time.Duration) *manualTimer {
	var candidates []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.deadline <= target {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].deadline != candidates[j].deadline {
			return candidates[i].deadline < candidates[j].deadline
		}
		return candidates[i].id < candidates[j].id
	})
	return candidates[0]
}

func (s *ManualScheduler) compactLocked() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
}
