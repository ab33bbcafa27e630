// Package logstore is the durable queue in front of a storage.Adapter.
//
// Producers call PutLog, a sender calls GetLogs to take a batch and
// DeleteLogs with the batch id once it was delivered. Every operation is a
// task on a single serial engine, so adapter calls and queue bookkeeping
// never run concurrently and complete in submission order. Operations return
// an *engine.Task immediately and never block the caller.
//
// Channels are bounded. A put that pushes a channel over its capacity
// deletes the oldest entries that are not part of an outstanding batch in
// the same task.
//
// Outstanding batches live in memory only. After a restart every stored
// entry is pending again and may be delivered a second time.
package logstore
