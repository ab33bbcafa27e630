// Package logscmd contains the Cobra commands that operate on a local log
// store: put, count, peek, drain, purge, channels and capacity.
package logscmd
