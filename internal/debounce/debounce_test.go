package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Basic(t *testing.T) {
	var callCount atomic.Int32

	d := New(nil, 50*time.Millisecond, func() {
		callCount.Add(1)
	})

	for i := 0; i < 10; i++ {
		d.Call()
	}

	time.Sleep(150 * time.Millisecond)

	if callCount.Load() != 1 {
		t.Errorf("callCount = %d, want 1", callCount.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var callCount atomic.Int32

	d := New(nil, 50*time.Millisecond, func() {
		callCount.Add(1)
	})

	d.Call()
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if callCount.Load() != 0 {
		t.Errorf("callCount = %d, want 0 (canceled)", callCount.Load())
	}
	if d.IsPending() {
		t.Error("IsPending() = true after Cancel")
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	sched := NewManualScheduler()
	calls := 0
	d := New(sched, time.Second, func() { calls++ })

	// Five calls, each within the window of the previous one.
	for i := 0; i < 5; i++ {
		d.Call()
		sched.Advance(500 * time.Millisecond)
	}
	if calls != 0 {
		t.Fatalf("calls = %d before quiet period, want 0", calls)
	}

	sched.Advance(500 * time.Millisecond)
	if calls != 1 {
		t.Errorf("calls = %d after quiet period, want 1", calls)
	}
	if sched.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", sched.Pending())
	}
}

func TestDebouncer_SpacedCalls(t *testing.T) {
	sched := NewManualScheduler()
	calls := 0
	d := New(sched, time.Second, func() { calls++ })

	for i := 0; i < 3; i++ {
		d.Call()
		sched.Advance(2 * time.Second)
	}

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDebouncer_CallImmediate(t *testing.T) {
	sched := NewManualScheduler()
	calls := 0
	d := New(sched, time.Second, func() { calls++ })

	if d.CallImmediate() {
		t.Error("CallImmediate() ran without a pending call")
	}

	d.Call()
	if !d.CallImmediate() {
		t.Fatal("CallImmediate() did not run the pending call")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	sched.Advance(5 * time.Second)
	if calls != 1 {
		t.Errorf("stale timer fired: calls = %d, want 1", calls)
	}
}

func TestDebouncer_StaleQueuedTimer(t *testing.T) {
	// A scheduler may queue a callback that is then superseded before it
	// runs; the sequence check must drop it.
	var queued []func()
	sched := schedulerFunc(func(_ time.Duration, f func()) Timer {
		queued = append(queued, f)
		return stopNoop{}
	})

	calls := 0
	d := New(sched, time.Second, func() { calls++ })
	d.Call()
	d.Call()

	queued[0]()
	if calls != 0 {
		t.Fatalf("superseded callback ran")
	}
	queued[1]()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestManualScheduler_ChainedTimers(t *testing.T) {
	sched := NewManualScheduler()
	var order []int

	sched.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	sched.AfterFunc(time.Second, func() {
		order = append(order, 1)
		sched.AfterFunc(500*time.Millisecond, func() { order = append(order, 15) })
	})

	sched.Advance(3 * time.Second)

	want := []int{1, 15, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if sched.Now() != 3*time.Second {
		t.Errorf("Now() = %v, want 3s", sched.Now())
	}
}

type schedulerFunc func(d time.Duration, f func()) Timer

func (s schedulerFunc) AfterFunc(d time.Duration, f func()) Timer { return s(d, f) }

type stopNoop struct{}

func (stopNoop) Stop() bool { return false }
