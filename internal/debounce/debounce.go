// Package debounce coalesces bursts of calls into a single deferred call.
//
// Timers are obtained from a Scheduler so the caller decides which goroutine
// runs the callback. The editor passes its event loop, which posts the
// callback back onto the loop; tests pass a ManualScheduler.
package debounce

import (
	"sync"
	"time"
)

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Scheduler creates timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler runs callbacks on their own goroutine via time.AfterFunc.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer groups rapid successive calls into a single call after a quiet
// period.
//
// Only the most recently scheduled callback may fire: every Call, Cancel and
// CallImmediate bumps a sequence number and a timer whose sequence is stale
// does nothing even if the scheduler already queued it.
type Debouncer struct {
	mu       sync.Mutex
	sched    Scheduler
	delay    time.Duration
	timer    Timer
	pending  bool
	seq      uint64 // sequence number to detect stale callbacks
	callback func()
}

// New creates a debouncer with the specified delay. A nil scheduler uses
// RealScheduler.
func New(sched Scheduler, delay time.Duration, callback func()) *Debouncer {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Debouncer{
		sched:    sched,
		delay:    delay,
		callback: callback,
	}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delay
}

// SetDelay changes the quiet period for subsequent calls.
func (d *Debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// Call schedules the callback to run after the debounce delay, replacing any
// previously scheduled run.
func (d *Debouncer) Call() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending && d.seq == currentSeq && d.callback != nil {
			d.pending = false
			d.timer = nil
			d.mu.Unlock()
			d.callback()
		} else {
			d.mu.Unlock()
		}
	})
}

// CallImmediate runs the callback now if a call is pending, canceling the
// scheduled run. It reports whether the callback ran.
func (d *Debouncer) CallImmediate() bool {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++

	if d.pending && d.callback != nil {
		d.pending = false
		d.mu.Unlock()
		d.callback()
		return true
	}
	d.mu.Unlock()
	return false
}

// Cancel cancels any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}

// IsPending returns true if a call is scheduled and has not fired yet.
func (d *Debouncer) IsPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
