// Package metrics provides Prometheus instrumentation for taskflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for taskflow components.
type Registry struct {
	// Channel Metrics
	ChannelSends    *prometheus.CounterVec
	ChannelReceives *prometheus.CounterVec
	ChannelCloses   *prometheus.CounterVec
	ChannelBlocked  *prometheus.CounterVec
	ChannelDepth    *prometheus.GaugeVec

	// Nursery Metrics
	TasksSpawned        *prometheus.CounterVec
	TasksCompleted      *prometheus.CounterVec
	TasksFailed         *prometheus.CounterVec
	TasksAborted        *prometheus.CounterVec
	FailuresSuppressed  *prometheus.CounterVec
	TaskDuration        *prometheus.HistogramVec
	NurseryActiveTasks  *prometheus.GaugeVec
	NurseryJoinDuration *prometheus.HistogramVec

	// Select Metrics
	SelectRounds   *prometheus.CounterVec
	SelectDefaults *prometheus.CounterVec

	// Worker Stream Metrics
	FramesWritten *prometheus.CounterVec
	FrameBytes    *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by taskflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, "taskflow")
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Channel Metrics
		ChannelSends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "sends_total",
				Help:      "Total number of values sent on channels",
			},
			[]string{"channel_name"},
		),

		ChannelReceives: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "receives_total",
				Help:      "Total number of values received from channels",
			},
			[]string{"channel_name"},
		),

		ChannelCloses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "closes_total",
				Help:      "Total number of channel close operations",
			},
			[]string{"channel_name"},
		),

		ChannelBlocked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "blocked_total",
				Help:      "Total number of operations that had to suspend",
			},
			[]string{"channel_name", "operation"},
		),

		ChannelDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "depth",
				Help:      "Current number of buffered values",
			},
			[]string{"channel_name"},
		),

		// Nursery Metrics
		TasksSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "tasks_spawned_total",
				Help:      "Total number of tasks spawned",
			},
			[]string{"nursery_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"nursery_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that failed",
			},
			[]string{"nursery_name"},
		),

		TasksAborted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "tasks_aborted_total",
				Help:      "Total number of tasks cancelled through their abort handle",
			},
			[]string{"nursery_name"},
		),

		FailuresSuppressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "failures_suppressed_total",
				Help:      "Total number of task failures discarded after the first",
			},
			[]string{"nursery_name"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"nursery_name"},
		),

		NurseryActiveTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "active_tasks",
				Help:      "Number of tasks currently executing",
			},
			[]string{"nursery_name"},
		),

		NurseryJoinDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "nursery",
				Name:      "join_duration_seconds",
				Help:      "Time from body completion to full task join",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"nursery_name"},
		),

		// Select Metrics
		SelectRounds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "select",
				Name:      "rounds_total",
				Help:      "Total number of readiness polling rounds",
			},
			[]string{"outcome"},
		),

		SelectDefaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "select",
				Name:      "defaults_total",
				Help:      "Total number of selects resolved by the default branch",
			},
			[]string{"outcome"},
		),

		// Worker Stream Metrics
		FramesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "frames_written_total",
				Help:      "Total number of frames written to worker streams",
			},
			[]string{"stream_name"},
		),

		FrameBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "frame_bytes_total",
				Help:      "Total payload bytes written to worker streams",
			},
			[]string{"stream_name"},
		),
	}
}
