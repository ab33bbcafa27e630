// Package runtime wires the configured storage backend, the log store and
// its metrics into one process. It exposes Open/Close, a health check and
// backend maintenance.
//
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
//	if err != nil { /* handle */ }
//	defer rt.Close(rt.ShutdownTimeout())
//	id, err := rt.Storage().PutLog("analytics", l).Wait(ctx)
package runtime
