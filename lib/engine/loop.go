package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ether/lastupdated-go/lib/host"
)

var ErrLoopStopped = errors.New("engine loop stopped")

// Loop runs every engine call and every timer callback on a single goroutine.
// It is also the host.Scheduler of an engine driven by real time.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func NewLoop(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run processes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			if task == nil {
				continue
			}
			task()
		}
	}
}

func (l *Loop) post(f func()) bool {
	select {
	case l.tasks <- f:
		return true
	case <-l.done:
		return false
	}
}

// Do runs f on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		f()
	}
	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.stopped.Store(true)
	return t.timer.Stop()
}

// AfterFunc schedules f on the loop after d. A timer stopped after it fired
// but before its callback reached the loop does not run the callback.
func (l *Loop) AfterFunc(d time.Duration, f func()) host.Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.post(func() {
			if !t.stopped.Load() {
				f()
			}
		})
	})
	return t
}
