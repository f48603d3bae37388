// Package eventloop runs every state mutation of the client on one goroutine.
// Timers fire by posting onto the loop, so a task cancelled from the loop never runs.
package eventloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a scheduled callback that can be cancelled. Cancel is idempotent.
type Task interface {
	Cancel()
}

// Scheduler is the cooperative executor the client components run on.
type Scheduler interface {
	// Post queues fn to run on the loop after the current callback finishes.
	Post(fn func())
	// After runs fn once on the loop after d.
	After(d time.Duration, fn func()) Task
	// Every runs fn on the loop every d until cancelled.
	Every(d time.Duration, fn func()) Task
	Now() time.Time
}

// Loop is the production Scheduler.
type Loop struct {
	logger  *zap.Logger
	mu      sync.Mutex
	pending []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	panics  atomic.Int64
}

// New creates a loop. Call Run to start executing callbacks.
func New(logger *zap.Logger) *Loop {
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post queues fn. Callbacks posted after the loop stopped are discarded.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return fmt.Errorf("event loop stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) After(d time.Duration, fn func()) Task {
	t := &timerTask{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.cancelled.Load() {
				return
			}
			t.cancelled.Store(true)
			fn()
		})
	})
	return t
}

func (l *Loop) Every(d time.Duration, fn func()) Task {
	t := &timerTask{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.cancelled.Load() {
				return
			}
			fn()
			if !t.cancelled.Load() {
				t.mu.Lock()
				t.timer.Reset(d)
				t.mu.Unlock()
			}
		})
	})
	return t
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// Run executes callbacks until ctx is cancelled. Pending callbacks are dropped on exit.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			batch := l.pending
			l.pending = nil
			l.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.run(fn)
			}
		}
	}
}

// PanicCount reports how many callbacks panicked and were recovered.
func (l *Loop) PanicCount() int64 {
	return l.panics.Load()
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Error("event loop callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.pending = nil
	close(l.done)
}

type timerTask struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *timerTask) Cancel() {
	t.cancelled.Store(true)
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
}
