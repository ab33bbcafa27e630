// Package httpserver serves the admin HTTP surface of a running log store:
// Prometheus metrics, a health check and a read-only channel summary.
package httpserver
