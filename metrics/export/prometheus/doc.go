// Package prometheus renders authflow controller metrics in the Prometheus
// text exposition format.
//
// [NewPrometheusExporter] reads [authflow.Controller.MetricsSnapshot] on every
// scrape. Counter names are authflow_*_total; the single histogram is
// authflow_gateway_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate controller state.
package prometheus
