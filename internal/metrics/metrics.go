// Package metrics defines the prometheus collectors exported by insertdb.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for insertdb metrics.
const (
	Fail = "fail"
	Ok   = "ok"

	// ModeAwait labels submissions whose caller waits for the result.
	ModeAwait = "await"
	// ModeAsync labels fire-and-forget submissions.
	ModeAsync = "async"
)

// Collectors for the engine's single-writer queue.
var (
	JobsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insertdb_jobs_submitted_total",
		Help: "Cumulative number of units of work submitted to the engine.",
	}, []string{"mode"})
	JobsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insertdb_jobs_rejected_total",
		Help: "Cumulative number of submissions refused because the engine was stopped.",
	})
	JobsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insertdb_jobs_completed_total",
		Help: "Cumulative number of units of work executed, by job and outcome.",
	}, []string{"job", "outcome"})
	JobDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insertdb_job_duration_seconds",
		Help:    "Time spent executing a unit of work inside its transaction.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 9),
	}, []string{"job"})
	QueueWaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "insertdb_queue_wait_seconds",
		Help:    "Time a unit of work spent queued before the worker dequeued it.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 9),
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "insertdb_queue_depth",
		Help: "Number of units of work currently queued.",
	})
)

// Collectors returns all insertdb collectors, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		JobsSubmittedTotal,
		JobsRejectedTotal,
		JobsCompletedTotal,
		JobDurationSeconds,
		QueueWaitSeconds,
		QueueDepth,
	}
}

// Register registers all collectors with reg, ignoring collectors that are
// already registered.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
