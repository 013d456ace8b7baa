// Package ready provides a one-shot value that consumers can wait on.
package ready

import (
	"context"
	"sync"
)

// Value is resolved at most once; later Resolve and Fail calls are ignored.
type Value[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// New returns an unresolved Value.
func New[T any]() *Value[T] {
	return &Value[T]{done: make(chan struct{})}
}

// Of returns a Value already resolved to v.
func Of[T any](v T) *Value[T] {
	r := New[T]()
	r.Resolve(v)
	return r
}

// Resolve publishes v to every waiter.
func (r *Value[T]) Resolve(v T) {
	r.once.Do(func() {
		r.val = v
		close(r.done)
	})
}

// Fail publishes err to every waiter.
func (r *Value[T]) Fail(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done is closed once the value is resolved or failed.
func (r *Value[T]) Done() <-chan struct{} { return r.done }

// Wait blocks until the value is available or ctx ends.
func (r *Value[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
