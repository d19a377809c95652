package queue

import "time"

// Queue names, one per side-effect category. The set is static: queues are
// declared at process start and never created or destroyed at runtime.
const (
	QueueEmails         = "emails"
	QueueNotifications  = "notifications"
	QueueFileProcessing = "file-processing"
	QueueAnalytics      = "analytics"
	QueueCleanup        = "cleanup"
)

// Queue declares a named job channel with its concurrency ceiling and retry
// policy. Ordering within a queue is best-effort FIFO: delayed and retried
// jobs re-enter behind their schedule, not their original enqueue position.
type Queue struct {
	Name        string
	Concurrency int
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Declared returns the full static queue set with production policies.
func Declared() []Queue {
	return []Queue{
		{Name: QueueEmails, Concurrency: 4, MaxAttempts: 5, BackoffBase: 2 * time.Second, BackoffMax: 5 * time.Minute},
		{Name: QueueNotifications, Concurrency: 8, MaxAttempts: 3, BackoffBase: time.Second, BackoffMax: time.Minute},
		{Name: QueueFileProcessing, Concurrency: 2, MaxAttempts: 4, BackoffBase: 5 * time.Second, BackoffMax: 10 * time.Minute},
		{Name: QueueAnalytics, Concurrency: 4, MaxAttempts: 3, BackoffBase: time.Second, BackoffMax: time.Minute},
		{Name: QueueCleanup, Concurrency: 2, MaxAttempts: 5, BackoffBase: 2 * time.Second, BackoffMax: 5 * time.Minute},
	}
}

// NextDelay computes the retry backoff before the given attempt count's
// next run: base doubled per prior attempt, capped at max. attempts is the
// number of executions so far, so the first retry waits base.
func NextDelay(q Queue, attempts int) time.Duration {
	delay := q.BackoffBase
	for i := 1; i < attempts; i++ {
		if delay >= q.BackoffMax/2 {
			return q.BackoffMax
		}
		delay *= 2
	}
	if delay > q.BackoffMax {
		return q.BackoffMax
	}
	return delay
}
