// Package metrics collects request and upstream metrics for the proxy.
//
// The request path never touches metric storage directly. It emits events
// through Collector.Emit, which is non-blocking and drops events when the
// buffer is full. A dedicated goroutine applies them to:
//   - an in-memory per-route snapshot (request counts, status code
//     distribution, P50/P95/P99 upstream latency) served as JSON
//   - Prometheus counters, histograms and gauges on the collector's own
//     registry, served in exposition format
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Route:      "coles-price-changes",
//		Upstream:   "coles",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
// Remaining events are drained when the context is cancelled.
package metrics
