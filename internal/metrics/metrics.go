// Package metrics exposes Prometheus instrumentation for the execution
// core and scheduler, grounded in the teacher's promauto-based
// internal/metrics/metrics.go, re-pointed at task runs instead of packet
// capture pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TaskRunsStarted counts accepted submissions, by task name.
	TaskRunsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskctl_task_runs_started_total",
		Help: "Number of task runs accepted for execution, by task name.",
	}, []string{"task"})

	// GateRefusalsTotal counts refused submissions, by task name and
	// refusal kind ("singleton" or "conflict").
	GateRefusalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskctl_gate_refusals_total",
		Help: "Number of submissions refused by singleton or conflict gating.",
	}, []string{"task", "reason"})

	// TaskRunDuration observes the wall-clock duration of completed
	// runs, by task name.
	TaskRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskctl_task_run_duration_seconds",
		Help:    "Task run duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	// SchedulerTicks counts scheduler loop iterations.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskctl_scheduler_ticks_total",
		Help: "Number of periodic scheduler tick iterations.",
	})

	// RunningTasks reports the current running-count total, by task
	// name (0 entries are not emitted, matching the running-count
	// map's own zero-entry-removal invariant).
	RunningTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskctl_running_tasks",
		Help: "Current number of in-flight runs, by task name.",
	}, []string{"task"})
)
