// Package loop provides the single goroutine that owns the editor state.
//
// Input handlers, timer callbacks and file-watch notifications are all
// posted to the loop and run one at a time, in order. Code running on the
// loop may post more work without blocking.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/ecucedit/internal/debounce"
	"github.com/dshills/ecucedit/internal/logging"
)

// Errors returned by the loop.
var (
	ErrClosed         = errors.New("loop closed")
	ErrAlreadyRunning = errors.New("loop already running")
)

// Loop runs posted functions sequentially on the goroutine calling Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	closed  bool
	running atomic.Bool
	stop    sync.Once
	log     *logging.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l *logging.Logger) Option {
	return func(lp *Loop) {
		lp.log = l
	}
}

// New creates a loop. It does nothing until Run is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithComponent("loop")
	return l
}

// Post queues fn to run on the loop. It never blocks.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run executes posted functions until ctx is done or Stop is called. A
// panicking function is logged and the loop keeps going.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	for {
		l.Drain()
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
		}
	}
}

// Drain runs every queued function, including ones queued while draining,
// and returns how many ran. Run calls it; tests without a running loop
// call it directly.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			l.exec(fn)
			n++
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("recovered panic: %v", r)
		}
	}()
	fn()
}

// Stop ends Run and rejects further posts. Queued functions are dropped.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// IsRunning reports whether Run is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// AfterFunc implements debounce.Scheduler: f is posted to the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) debounce.Timer {
	return time.AfterFunc(d, func() {
		_ = l.Post(f)
	})
}

var _ debounce.Scheduler = (*Loop)(nil)
