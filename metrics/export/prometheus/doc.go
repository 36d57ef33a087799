// Package prometheus provides Prometheus collectors for quorumgate metrics.
//
// [NewPrometheusExporter] accepts a [quorumgate.Engine] and exposes an [http.Handler]
// that renders all quorumgate counters and histograms in Prometheus text exposition
// format. Counter names are prefixed quorumgate_*_total; the single histogram is
// quorumgate_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
