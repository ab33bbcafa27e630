package logstore

import "time"

// Observer receives storage events, typically to export metrics. Methods are
// called from the engine goroutine and must not block.
type Observer interface {
	LogPut(channel string)
	LogsEvicted(channel string, n int)
	// EvictionFailed reports n logs that stay stored over capacity because
	// their eviction delete failed. The put that triggered it still succeeds.
	EvictionFailed(channel string, n int)
	LogsDeleted(channel string, n int)
	DecodeFailed(channel string)
	StorageFailed(op string)
	BatchesOutstanding(channel string, n int)
	OperationDone(op string, elapsed time.Duration, err error)
	ShutdownDone(drained bool)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) LogPut(string)                              {}
func (NoopObserver) LogsEvicted(string, int)                    {}
func (NoopObserver) EvictionFailed(string, int)                 {}
func (NoopObserver) LogsDeleted(string, int)                    {}
func (NoopObserver) DecodeFailed(string)                        {}
func (NoopObserver) StorageFailed(string)                       {}
func (NoopObserver) BatchesOutstanding(string, int)             {}
func (NoopObserver) OperationDone(string, time.Duration, error) {}
func (NoopObserver) ShutdownDone(bool)                          {}
