// Package otel binds authflow controller metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per controller counter
// and an Int64ObservableGauge per histogram bucket. A single callback reads
// [authflow.Controller.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate controller state.
package otel
