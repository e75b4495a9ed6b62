// Package loop implements the client's single-threaded event loop.
//
// Every cache write and every view state change happens on the loop
// goroutine. Blocking work (gateway calls) runs on worker goroutines and
// posts its continuation back with Post, so continuations never race each
// other and need no locks.
package loop

import (
	"context"
	"sync"
)

// Loop is a FIFO of callbacks executed one at a time.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	inflight sync.WaitGroup
}

// New returns an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post schedules fn to run on the loop goroutine. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain runs queued callbacks, including ones they post, until the queue is
// empty. It reports whether anything ran. The caller acts as the loop goroutine.
func (l *Loop) Drain() bool {
	ran := false
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		ran = true
	}
}

// Flush waits for all worker calls and drains their continuations until the
// loop is quiescent. Must be called from the loop goroutine.
func (l *Loop) Flush() {
	for {
		l.inflight.Wait()
		if !l.Drain() {
			return
		}
	}
}

// Call runs fn on a worker goroutine and posts then(result, err) back to l.
// Call must be invoked from the loop goroutine.
func Call[T any](l *Loop, ctx context.Context, fn func(context.Context) (T, error), then func(T, error)) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		v, err := fn(ctx)
		l.Post(func() { then(v, err) })
	}()
}
