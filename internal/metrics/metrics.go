package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// WorkflowTransitionsTotal counts committed state transitions
	WorkflowTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_workflow_transitions_total",
			Help: "Total number of committed workflow state transitions",
		},
		[]string{"workflow", "event"},
	)

	// WorkflowFailuresTotal counts rejected workflow operations by failure code
	WorkflowFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_workflow_failures_total",
			Help: "Total number of workflow operations rejected with a failure code",
		},
		[]string{"workflow", "code"},
	)

	// NotificationsTotal counts notification deliveries by outcome
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_notifications_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"template", "outcome"},
	)

	// NotificationQueueDepth reports jobs waiting in the dispatcher queue
	NotificationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hireflow_notification_queue_depth",
			Help: "Number of notifications waiting for a worker",
		},
	)

	// JobRunsTotal counts scheduled job runs
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job_name", "outcome"},
	)

	// JobRunDurationSeconds measures scheduled job duration
	JobRunDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hireflow_job_run_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"job_name"},
	)

	registerOnce sync.Once
)

// NewRegistry returns a registry with the Go and process collectors and every
// hireflow metric registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Register(registry)
	return registry
}

// Register registers the hireflow metrics. Only the first call has an effect.
func Register(registry prometheus.Registerer) {
	registerOnce.Do(func() {
		registry.MustRegister(
			WorkflowTransitionsTotal,
			WorkflowFailuresTotal,
			NotificationsTotal,
			NotificationQueueDepth,
			JobRunsTotal,
			JobRunDurationSeconds,
		)
	})
}

func RecordTransition(workflow, event string) {
	WorkflowTransitionsTotal.WithLabelValues(workflow, event).Inc()
}

func RecordFailure(workflow, code string) {
	WorkflowFailuresTotal.WithLabelValues(workflow, code).Inc()
}

func RecordNotification(template, outcome string) {
	NotificationsTotal.WithLabelValues(template, outcome).Inc()
}

// RecordJobRun records a scheduled job run
func RecordJobRun(jobName string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	JobRunsTotal.WithLabelValues(jobName, outcome).Inc()
	JobRunDurationSeconds.WithLabelValues(jobName).Observe(duration.Seconds())
}
