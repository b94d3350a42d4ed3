// Package endpoint provides a byte-stream I/O abstraction over a
// connection (TCP socket or serial port), modeled after an
// asyncio.Protocol: a connected flag, an internal receive buffer, and
// context-cancellable recv/send/flush operations. Unlike the asyncio
// original, goroutines give no cooperative-scheduling guarantee, so
// every suspension point here is built on a mutex-guarded waiter set
// rather than assuming a single-threaded event loop.
package endpoint

import (
	"context"
	"sync"
)

// AwaitableVar holds a value that goroutines can block on until it
// equals some target. It plays the role of the Python source's
// AwaitableVar, but since Go has no asyncio.Event to borrow, waiters
// register their own notification channel under a mutex and the
// setter closes every registered channel on change.
type AwaitableVar[T comparable] struct {
	mu      sync.Mutex
	value   T
	waiters map[chan struct{}]struct{}
}

// NewAwaitableVar creates an AwaitableVar holding initial.
func NewAwaitableVar[T comparable](initial T) *AwaitableVar[T] {
	return &AwaitableVar[T]{
		value:   initial,
		waiters: make(map[chan struct{}]struct{}),
	}
}

// Value returns the current value.
func (a *AwaitableVar[T]) Value() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Set updates the value and wakes every waiter blocked in WaitFor.
func (a *AwaitableVar[T]) Set(value T) {
	a.mu.Lock()
	a.value = value
	waiters := a.waiters
	a.waiters = make(map[chan struct{}]struct{}, len(waiters))
	a.mu.Unlock()

	for ch := range waiters {
		close(ch)
	}
}

// WaitFor blocks until the value equals target, or ctx is done.
func (a *AwaitableVar[T]) WaitFor(ctx context.Context, target T) error {
	for {
		a.mu.Lock()
		if a.value == target {
			a.mu.Unlock()
			return nil
		}
		ch := make(chan struct{})
		a.waiters[ch] = struct{}{}
		a.mu.Unlock()

		select {
		case <-ch:
			// value changed; loop to re-check (it may have moved past target)
		case <-ctx.Done():
			a.mu.Lock()
			delete(a.waiters, ch)
			a.mu.Unlock()
			return ctx.Err()
		}
	}
}
