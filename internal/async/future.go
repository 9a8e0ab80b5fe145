// Package async provides a small future type: an operation returns a handle
// that is resolved exactly once, and callers either block on it or register a
// continuation.
package async

import (
	"context"
	"fmt"
	"sync"
)

// Future is a not-yet-resolved result
type Future[T any] struct {
	done      chan struct{}
	once      sync.Once
	mu        sync.Mutex
	callbacks []func(T, error)
	val       T
	err       error
}

// Resolve completes a future. Only the first call has an effect.
type Resolve[T any] func(T, error)

// NewPromise returns an unresolved future and the function that resolves it
func NewPromise[T any]() (*Future[T], Resolve[T]) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.complete
}

// Go runs fn on its own goroutine and resolves the future with its result.
// A panic in fn resolves the future with an error.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f, resolve := NewPromise[T]()
	go func() {
		defer Recover(resolve)
		resolve(fn(ctx))
	}()
	return f
}

// Recover turns a panic into a resolution; use it deferred
func Recover[T any](resolve Resolve[T]) {
	if r := recover(); r != nil {
		var zero T
		resolve(zero, fmt.Errorf("panic: %v", r))
	}
}

func (f *Future[T]) complete(val T, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.val, f.err = val, err
		callbacks := f.callbacks
		f.callbacks = nil
		close(f.done)
		f.mu.Unlock()

		for _, cb := range callbacks {
			cb(val, err)
		}
	})
}

// Done is closed once the future is resolved
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Then registers a continuation. It runs on the resolving goroutine, or
// immediately when the future is already resolved.
func (f *Future[T]) Then(cb func(T, error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		val, err := f.val, f.err
		f.mu.Unlock()
		cb(val, err)
	default:
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
	}
}

// Await suspends the caller until the future resolves or ctx ends
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the future resolves
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Pair holds the results of two joined futures
type Pair[A, B any] struct {
	First  A
	Second B
}

// Zip resolves once both futures are resolved. On failure it reports the
// error that happened first; onError runs as soon as either side fails so
// the caller can cancel the other side.
func Zip[A, B any](a *Future[A], b *Future[B], onError func()) *Future[Pair[A, B]] {
	out, resolve := NewPromise[Pair[A, B]]()

	var (
		mu       sync.Mutex
		pending  = 2
		firstErr error
		pair     Pair[A, B]
	)

	finish := func(err error) {
		mu.Lock()
		failedFirst := err != nil && firstErr == nil
		if failedFirst {
			firstErr = err
		}
		pending--
		last := pending == 0
		mu.Unlock()

		if failedFirst && onError != nil {
			onError()
		}
		if last {
			if firstErr != nil {
				resolve(Pair[A, B]{}, firstErr)
				return
			}
			resolve(pair, nil)
		}
	}

	a.Then(func(v A, err error) {
		mu.Lock()
		pair.First = v
		mu.Unlock()
		finish(err)
	})
	b.Then(func(v B, err error) {
		mu.Lock()
		pair.Second = v
		mu.Unlock()
		finish(err)
	})

	return out
}
