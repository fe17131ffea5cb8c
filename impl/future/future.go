// Package future has a single-use, single-resolution result handle. A Future is
// created fresh per request and settles exactly once with a value or an error. There
// is no reset: a settled Future stays settled.
package future

import (
	"context"
	"sync"
)

type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	val       T
	err       error
	callbacks []func(T, error)
}

// New returns an unsettled Future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a Future already settled with the passed args
func Completed[T any](val T, err error) *Future[T] {
	f := New[T]()
	f.Complete(val, err)
	return f
}

// Complete settles the Future. Returns false if the Future was already settled, in
// which case the passed args are discarded. Callbacks registered with OnComplete run
// on the calling goroutine after the lock is released.
func (f *Future[T]) Complete(val T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.val = val
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(val, err)
	}
	return true
}

// Done is closed when the Future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the Future settles or the passed context is done. A context error
// does not settle the Future.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the value and error without blocking. The last return value is false
// if the Future has not settled yet.
func (f *Future[T]) Result() (T, error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		var zero T
		return zero, nil, false
	}
	return f.val, f.err, true
}

// OnComplete registers a callback that runs once when the Future settles. If it has
// already settled, the callback runs immediately on the calling goroutine.
func (f *Future[T]) OnComplete(cb func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	val, err := f.val, f.err
	f.mu.Unlock()
	cb(val, err)
}
