// Package metrics exposes the application's prometheus collectors. Queue
// transition counters are labeled by queue name; cache counters by outcome.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsEnqueued counts jobs durably recorded per queue.
	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewboard_jobs_enqueued_total",
		Help: "Number of jobs enqueued.",
	}, []string{"queue"})

	// JobsCompleted counts successful terminal transitions per queue.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewboard_jobs_completed_total",
		Help: "Number of jobs completed successfully.",
	}, []string{"queue"})

	// JobsFailed counts handler failures per queue, including those that
	// will be retried.
	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewboard_jobs_failed_total",
		Help: "Number of job executions that failed.",
	}, []string{"queue"})

	// JobsRetried counts retry schedules per queue.
	JobsRetried = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewboard_jobs_retried_total",
		Help: "Number of jobs scheduled for retry.",
	}, []string{"queue"})

	// JobsDead counts jobs that exhausted their retry budget per queue.
	JobsDead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewboard_jobs_dead_total",
		Help: "Number of jobs moved to the dead history.",
	}, []string{"queue"})

	// JobsReclaimed counts stalled jobs returned to waiting per queue.
	JobsReclaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewboard_jobs_reclaimed_total",
		Help: "Number of stalled jobs reclaimed to waiting.",
	}, []string{"queue"})

	// JobDuration observes handler execution time per queue.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crewboard_job_duration_seconds",
		Help:    "Handler execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})

	// QueueWaiting gauges the current waiting depth per queue. Depth is
	// unbounded, so this gauge is the backpressure signal.
	QueueWaiting = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crewboard_queue_waiting",
		Help: "Jobs currently waiting (including delay-scheduled).",
	}, []string{"queue"})

	// CacheHits counts cache reads that returned a value.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewboard_cache_hits_total",
		Help: "Cache reads that hit.",
	})

	// CacheMisses counts cache reads that missed, including degraded reads
	// against an unreachable cache.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewboard_cache_misses_total",
		Help: "Cache reads that missed.",
	})
)
