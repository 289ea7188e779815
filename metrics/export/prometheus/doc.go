// Package prometheus renders authflow controller metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] takes an [authflow.Controller] and exposes an
// [http.Handler]. Counter names are prefixed authflow_*_total; the single
// histogram is authflow_transition_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate controller state.
package prometheus
