// Package logqueue keeps the in-memory bookkeeping of queued log entries.
//
// Every channel holds its entry ids in insertion order together with a
// capacity. Entries handed to a sender are grouped into an outstanding batch
// identified by a UUID; outstanding entries are neither returned again nor
// evicted until the batch is acknowledged or released.
//
// # Eviction
//
// When a channel grows past its capacity the oldest entries that are not
// part of an outstanding batch are planned for eviction. If too few such
// entries exist the channel stays over capacity until batches complete.
// Planned ids remain queued until Remove is called, so the caller can delete
// them from storage first and keep the two views in agreement.
//
// State is not safe for concurrent use; callers serialize access.
package logqueue
