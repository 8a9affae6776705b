// Package metrics provides Prometheus instrumentation for taskflow components.
//
// The metrics package provides automatic instrumentation for:
//   - Channels (sends, receives, closes, suspended operations, buffer depth)
//   - Nurseries (spawned/completed/failed/aborted tasks, suppressed failures,
//     task and join durations, active task gauge)
//   - Select (polling rounds, default-branch resolutions)
//   - Worker streams (frames and payload bytes written)
//
// Enable metrics by using the metrics-enabled constructors:
//
//	tx, rx := channel.NewWithMetrics[int](8, "events")
//	err := nursery.Run(ctx, body, nursery.WithMetrics(metrics.DefaultRegistry, "main"))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	reg := metrics.NewRegistry(registry)
//	tx, rx := channel.NewWithRegistry[int](8, "events", reg)
//
// # Available Metrics
//
//   - taskflow_channel_sends_total / receives_total / closes_total
//   - taskflow_channel_blocked_total: operations that had to suspend
//   - taskflow_channel_depth: current buffered values
//   - taskflow_nursery_tasks_spawned_total / completed_total / failed_total / aborted_total
//   - taskflow_nursery_failures_suppressed_total: failures discarded after the first
//   - taskflow_nursery_task_duration_seconds / join_duration_seconds
//   - taskflow_nursery_active_tasks
//   - taskflow_select_rounds_total / defaults_total
//   - taskflow_worker_frames_written_total / frame_bytes_total
//
// # Performance
//
// Metrics collection is designed for minimal overhead:
//   - Metrics are updated only when operations occur
//   - No background goroutines or timers
//   - Conditional metrics updates based on enabled state
package metrics
