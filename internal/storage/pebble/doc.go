// Package pebblestore persists logstore tables in Pebble.
//
// DB wraps the Pebble instance with an fsync policy, a metrics hook and a
// logger bridge. Tables layers the row-oriented storage.Adapter contract on
// top of it: every table keeps a last-sequence meta key and stores rows
// under big-endian sequence keys so iteration yields insertion order.
//
//	db, err := pebblestore.Open(pebblestore.Options{DataDir: "./data"})
//	if err != nil { /* handle */ }
//	tables, err := pebblestore.NewTables(db)
//	if err != nil { /* handle */ }
//	defer tables.Close()
package pebblestore
