package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/platform/metrics"
)

// EnqueueOption adjusts a single enqueue call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	delay time.Duration
}

// WithDelay schedules the job to activate after d instead of immediately.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// Client is the enqueue surface handed to services and handlers. It is an
// explicitly constructed dependency, not a process-wide singleton, so tests
// can swap the store underneath it.
type Client struct {
	registry *Registry
	store    Store
	logger   *slog.Logger
}

// NewClient creates a Client over the given registry and store.
func NewClient(registry *Registry, store Store, logger *slog.Logger) *Client {
	return &Client{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Enqueue validates the payload against the registered shape for jobType,
// durably records the job as waiting and returns its id. It never blocks on
// job execution. Unknown job types and invalid payloads fail here, at the
// call site.
func (c *Client) Enqueue(
	ctx context.Context,
	jobType string,
	payload any,
	opts ...EnqueueOption,
) (uuid.UUID, error) {
	var options enqueueOptions
	for _, opt := range opts {
		opt(&options)
	}

	raw, err := c.registry.EncodePayload(jobType, payload)
	if err != nil {
		return uuid.Nil, err
	}

	q, err := c.registry.QueueFor(jobType)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.New(),
		Queue:       q.Name,
		Type:        jobType,
		Payload:     raw,
		State:       StateWaiting,
		MaxAttempts: q.MaxAttempts,
		EnqueuedAt:  now,
	}
	if options.delay > 0 {
		job.ScheduledAt = now.Add(options.delay)
	}

	if err := c.store.Enqueue(ctx, job); err != nil {
		return uuid.Nil, err
	}

	metrics.JobsEnqueued.WithLabelValues(q.Name).Inc()
	c.logger.Debug("job enqueued",
		"job_id", job.ID,
		"job_type", jobType,
		"queue", q.Name,
		"delay", options.delay)

	return job.ID, nil
}
