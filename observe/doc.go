// Package observe provides logging, tracing and metrics for health probes.
//
// It is a pure instrumentation library: it sets up OpenTelemetry providers
// and exporters, exposes a small structured Logger backed by zerolog, and
// offers a Middleware that wraps a single probe with a span, counters and a
// log line. It performs no probing itself.
package observe
