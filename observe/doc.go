// Package observe provides the logging, tracing and metrics primitives shared
// by the tag emitter and the invalidation dispatcher.
//
// Logging is a small structured interface with two backends: a JSON writer
// and a zap adapter. Tracing and metrics are OpenTelemetry based; the
// exporters subpackage builds the configured exporters. Nothing in this
// package performs purge I/O itself; callers wrap their purge function with
// Middleware.
package observe
