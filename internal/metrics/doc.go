// Package metrics collects in-process counters for the voting service.
//
// Handlers emit events on a buffered channel without blocking; a dedicated
// goroutine folds them into a Metrics value:
//   - requests served and their status codes
//   - response latency (average, P50, P95, P99 over the last 1000 responses)
//   - votes cast per option and resets
//   - the last known store health
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:   metrics.EventVoteCast,
//		Option: "Cats",
//	})
//
//	snapshot := collector.Snapshot()
//
// On context cancellation the collector drains queued events before exiting.
package metrics
