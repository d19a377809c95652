package queue

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	// ErrNoJob is returned by Claim when the queue has no waiting job.
	ErrNoJob = errors.New("no waiting job")

	// ErrJobNotFound is returned when a job id has no backing record,
	// typically because its terminal-state retention window expired.
	ErrJobNotFound = errors.New("job not found")
)

// Counts is the per-queue state breakdown reported by the monitor.
// Waiting includes delay-scheduled jobs; Completed and Failed count the
// bounded trailing histories, not all-time totals.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Store is the durable bookkeeping behind the queues. The dispatcher is the
// only component that moves jobs between states; enqueueing is open to any
// caller through the Client.
//
// Claim must be atomic across concurrent workers: two claimers can never
// receive the same job.
type Store interface {
	// Enqueue durably records job in state waiting (or schedules it when
	// job.ScheduledAt is in the future) and returns without waiting for
	// execution.
	Enqueue(ctx context.Context, job *Job) error

	// Claim atomically moves one waiting job of the queue to active, bumps
	// its attempt count and returns it. Returns ErrNoJob when nothing is
	// waiting.
	Claim(ctx context.Context, queue string) (*Job, error)

	// Complete records a successful terminal transition with its result and
	// moves the job into the bounded completed history.
	Complete(ctx context.Context, job *Job, result string) error

	// Fail records a handler error. When retryAt is non-zero the job is
	// scheduled back to waiting at that time; otherwise it moves to the
	// bounded dead history.
	Fail(ctx context.Context, job *Job, jobErr error, retryAt time.Time) error

	// PromoteDelayed moves jobs whose schedule has come due from the delayed
	// set to the waiting list and reports how many were promoted.
	PromoteDelayed(ctx context.Context, queue string, now time.Time) (int, error)

	// ReclaimStalled returns active jobs claimed longer than olderThan ago
	// to the waiting list and reports how many were reclaimed. Reclaimed
	// jobs may still be finished by their original worker; the resulting
	// duplicate execution is accepted.
	ReclaimStalled(ctx context.Context, queue string, olderThan time.Duration) (int, error)

	// GetJob loads a job record by id.
	GetJob(ctx context.Context, id string) (*Job, error)

	// Counts reports the queue's per-state totals. Read-only.
	Counts(ctx context.Context, queue string) (Counts, error)
}
