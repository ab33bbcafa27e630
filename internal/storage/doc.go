// Package storage defines the table-oriented adapter contract the log store
// persists through, together with the row and predicate types shared by every
// backend.
//
// Backends:
//   - pebblestore (internal/storage/pebble): default on-disk engine
//   - badgerstore (internal/storage/badger): alternate on-disk engine
//   - memstore (internal/storage/memstore): volatile in-process tables
//
// Adapters are only required to be safe for non-concurrent use; the log
// store serializes every call through its task engine.
package storage
