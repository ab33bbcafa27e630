// Package engine runs submitted work one task at a time, in submission
// order, on a single goroutine.
//
// Submitting never blocks: tasks wait in an unbounded FIFO and each caller
// receives a Task handle to wait on. Shutdown stops admissions, gives
// admitted work a bounded time to finish and reports whether it did. Work
// that is already admitted is never abandoned; it keeps running after a
// timed out Shutdown returns.
//
//	e := engine.New(engine.Options{})
//	t := engine.Submit(e, func(ctx context.Context) (int, error) { return 42, nil })
//	v, err := t.Wait(ctx)
//	drained := e.Shutdown(5 * time.Second)
package engine
