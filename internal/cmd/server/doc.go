// Package serverrun hosts a log store for the lifetime of a process.
//
// Run opens the configured backend, serves the admin HTTP endpoints and,
// on SIGINT/SIGTERM or context cancellation, shuts the store down within
// the configured timeout.
package serverrun
