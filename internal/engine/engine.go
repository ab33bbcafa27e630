package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rzbill/logstore/pkg/log"
)

// ErrClosed is returned by tasks submitted after Shutdown began.
var ErrClosed = errors.New("engine: closed")

// State is the engine lifecycle phase. It only moves forward.
type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures an Engine.
type Options struct {
	Logger log.Logger
	// OnTaskDone, when set, is called on the worker after every task.
	OnTaskDone func(elapsed time.Duration, err error)
}

type job func(ctx context.Context) error

// Engine executes tasks serially on one worker goroutine.
type Engine struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	state   State
	pending int

	drained   chan struct{}
	drainOnce sync.Once

	logger     log.Logger
	onTaskDone func(time.Duration, error)
}

// New starts an engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	e := &Engine{
		drained:    make(chan struct{}),
		logger:     logger.WithComponent("engine"),
		onTaskDone: opts.OnTaskDone,
	}
	e.cond = sync.NewCond(&e.mu)
	go e.loop()
	return e
}

// Submit queues fn and returns its task. After Shutdown began it returns a
// task that already failed with ErrClosed.
func Submit[T any](e *Engine, fn func(ctx context.Context) (T, error)) *Task[T] {
	t := newTask[T]()
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		var zero T
		t.finish(zero, ErrClosed)
		return t
	}
	e.pending++
	e.queue = append(e.queue, func(ctx context.Context) error {
		v, err := call(ctx, e.logger, fn)
		t.finish(v, err)
		return err
	})
	e.cond.Signal()
	e.mu.Unlock()
	return t
}

func call[T any](ctx context.Context, logger log.Logger, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", log.Any("panic", r), log.Str("stack", string(debug.Stack())))
			var zero T
			v, err = zero, fmt.Errorf("engine: task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (e *Engine) loop() {
	ctx := context.Background()
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && e.state == Running {
			e.cond.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		j := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		start := time.Now()
		err := j(ctx)
		if e.onTaskDone != nil {
			e.onTaskDone(time.Since(start), err)
		}

		e.mu.Lock()
		e.pending--
		if e.pending == 0 && e.state != Running {
			e.closeDrained()
		}
		e.mu.Unlock()
	}
}

// closeDrained must be called with mu held.
func (e *Engine) closeDrained() {
	e.drainOnce.Do(func() { close(e.drained) })
}

// Shutdown stops admissions and waits up to timeout for admitted tasks. It
// reports whether they all finished. The engine is Stopped on return either
// way; tasks still queued keep running in the background.
func (e *Engine) Shutdown(timeout time.Duration) bool {
	e.mu.Lock()
	if e.state == Running {
		e.state = Draining
		e.logger.Debug("draining", log.Int("pending", e.pending))
		if e.pending == 0 {
			e.closeDrained()
		}
		e.cond.Broadcast()
	}
	e.mu.Unlock()

	drained := false
	if timeout <= 0 {
		select {
		case <-e.drained:
			drained = true
		default:
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-e.drained:
			drained = true
		case <-timer.C:
		}
	}

	e.mu.Lock()
	e.state = Stopped
	pending := e.pending
	e.mu.Unlock()
	if !drained {
		e.logger.Warn("shutdown timed out", log.Duration("timeout", timeout), log.Int("pending", pending))
	}
	return drained
}

// Drained is closed once Shutdown began and no admitted task is left.
func (e *Engine) Drained() <-chan struct{} { return e.drained }

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pending returns the number of admitted tasks that have not finished.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}
