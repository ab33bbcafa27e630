package engine

import (
	"context"
	"errors"
)

// ErrNotFinished is returned by Task.Result before the task completes.
var ErrNotFinished = errors.New("engine: task not finished")

// Task is the pending result of submitted work.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

func (t *Task[T]) finish(v T, err error) {
	t.val, t.err = v, err
	close(t.done)
}

// Done is closed once the task has a result.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task completes or ctx ends. A ctx error does not
// cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking.
func (t *Task[T]) Result() (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	default:
		var zero T
		return zero, ErrNotFinished
	}
}

// Resolved returns a task that is already complete.
func Resolved[T any](v T, err error) *Task[T] {
	t := newTask[T]()
	t.finish(v, err)
	return t
}

// Go runs fn on its own goroutine and returns its task. It is used for work
// that must not occupy the engine, such as waiting for the engine to drain.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := newTask[T]()
	go func() {
		v, err := fn()
		t.finish(v, err)
	}()
	return t
}
