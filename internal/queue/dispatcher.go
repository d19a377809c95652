package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crewboard/crewboard-api/internal/platform/logger"
	"github.com/crewboard/crewboard-api/internal/platform/metrics"
)

// DispatcherConfig holds the shared timing knobs of the dispatcher.
type DispatcherConfig struct {
	// PollInterval is how long an idle worker sleeps before re-checking its
	// queue for waiting jobs.
	PollInterval time.Duration

	// PromoteInterval is how often delay-scheduled jobs are checked for
	// promotion to waiting.
	PromoteInterval time.Duration

	// StalledAfter defines how long a job may stay claimed without a
	// terminal report before it is considered stalled and reclaimed.
	StalledAfter time.Duration

	// StalledCheckInterval is how often to sweep for stalled jobs.
	StalledCheckInterval time.Duration
}

// DefaultDispatcherConfig returns production defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval:         250 * time.Millisecond,
		PromoteInterval:      time.Second,
		StalledAfter:         5 * time.Minute,
		StalledCheckInterval: time.Minute,
	}
}

// Dispatcher runs the declared queues: per queue it keeps up to
// Concurrency workers claiming and executing jobs, plus one promoter for
// delayed jobs and one sweeper for stalled jobs across all queues.
//
// The dispatcher is explicitly constructed and carries its own lifecycle;
// Stop ceases claiming and waits for in-flight handlers to finish. Jobs
// still active at process death are recovered later by the stalled sweep.
type Dispatcher struct {
	registry   *Registry
	store      Store
	config     DispatcherConfig
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Zero config fields fall back to
// DefaultDispatcherConfig values.
func NewDispatcher(registry *Registry, store Store, config DispatcherConfig, log *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.PromoteInterval <= 0 {
		config.PromoteInterval = defaults.PromoteInterval
	}
	if config.StalledAfter <= 0 {
		config.StalledAfter = defaults.StalledAfter
	}
	if config.StalledCheckInterval <= 0 {
		config.StalledCheckInterval = defaults.StalledCheckInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		registry:   registry,
		store:      store,
		config:     config,
		logger:     log,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker pools and background loops.
func (d *Dispatcher) Start() {
	for _, q := range d.registry.Queues() {
		for i := 0; i < q.Concurrency; i++ {
			d.wg.Add(1)
			go d.worker(q, i)
		}
	}

	d.wg.Add(1)
	go d.promoter()

	d.wg.Add(1)
	go d.stalledSweeper()

	d.logger.Info("dispatcher started",
		"queues", len(d.registry.Queues()),
		"poll_interval", d.config.PollInterval)
}

// Stop ceases claiming new jobs and waits for in-flight handlers.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// worker claims and executes jobs for a single queue slot.
func (d *Dispatcher) worker(q Queue, id int) {
	defer d.wg.Done()

	log := d.logger.With("queue", q.Name, "worker_id", id)
	log.Debug("starting worker")

	for {
		select {
		case <-d.ctx.Done():
			log.Debug("stopping worker")
			return
		default:
		}

		job, err := d.store.Claim(d.ctx, q.Name)
		if err != nil {
			if err != ErrNoJob && d.ctx.Err() == nil {
				log.Error("claim failed", "error", err)
			}
			d.sleep(d.config.PollInterval)
			continue
		}

		d.processJob(q, job, id)
	}
}

// processJob executes one claimed job and records its terminal transition.
// Execution uses a fresh context so shutdown does not cancel an in-flight
// handler mid-write.
func (d *Dispatcher) processJob(q Queue, job *Job, workerID int) {
	log := d.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"queue", q.Name,
		"worker_id", workerID,
		"attempt", job.Attempts)
	ctx := logger.WithLogger(context.Background(), log)

	log.Info("processing job")

	start := time.Now()
	result, err := d.execute(ctx, job)
	metrics.JobDuration.WithLabelValues(q.Name).Observe(time.Since(start).Seconds())

	if err == nil {
		if storeErr := d.store.Complete(ctx, job, result); storeErr != nil {
			log.Error("failed to record job completion", "error", storeErr)
			return
		}
		metrics.JobsCompleted.WithLabelValues(q.Name).Inc()
		log.Info("job completed", "result", result)
		return
	}

	metrics.JobsFailed.WithLabelValues(q.Name).Inc()

	if job.Attempts < job.MaxAttempts {
		retryAt := time.Now().UTC().Add(NextDelay(q, job.Attempts))
		if storeErr := d.store.Fail(ctx, job, err, retryAt); storeErr != nil {
			log.Error("failed to record job retry", "error", storeErr)
			return
		}
		metrics.JobsRetried.WithLabelValues(q.Name).Inc()
		log.Warn("job failed, retry scheduled",
			"error", err,
			"retry_at", retryAt)
		return
	}

	if storeErr := d.store.Fail(ctx, job, err, time.Time{}); storeErr != nil {
		log.Error("failed to record dead job", "error", storeErr)
		return
	}
	metrics.JobsDead.WithLabelValues(q.Name).Inc()
	log.Error("job dead, retries exhausted",
		"error", err,
		"attempts", job.Attempts)
}

// execute decodes the payload and runs the handler, converting panics into
// ordinary failures so a broken handler never takes the process down.
func (d *Dispatcher) execute(ctx context.Context, job *Job) (result string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()

	h, err := d.registry.Handler(job.Type)
	if err != nil {
		return "", err
	}

	payload, err := d.registry.DecodePayload(job.Type, job.Payload)
	if err != nil {
		return "", err
	}

	return h.Handle(ctx, payload)
}

// promoter periodically moves due delayed jobs back to waiting.
func (d *Dispatcher) promoter() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PromoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			for _, q := range d.registry.Queues() {
				n, err := d.store.PromoteDelayed(d.ctx, q.Name, time.Now().UTC())
				if err != nil {
					if d.ctx.Err() == nil {
						d.logger.Error("delayed promotion failed", "queue", q.Name, "error", err)
					}
					continue
				}
				if n > 0 {
					d.logger.Debug("promoted delayed jobs", "queue", q.Name, "count", n)
				}

				// Keep the depth gauge current between admin reads so a
				// metrics scrape alone reflects the live backlog.
				counts, err := d.store.Counts(d.ctx, q.Name)
				if err != nil {
					continue
				}
				metrics.QueueWaiting.WithLabelValues(q.Name).Set(float64(counts.Waiting))
			}
		}
	}
}

// stalledSweeper periodically returns jobs claimed past the liveness window
// to waiting. Duplicate execution after a reclaim is expected and tolerated
// by idempotent handlers.
func (d *Dispatcher) stalledSweeper() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.StalledCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			for _, q := range d.registry.Queues() {
				n, err := d.store.ReclaimStalled(d.ctx, q.Name, d.config.StalledAfter)
				if err != nil {
					if d.ctx.Err() == nil {
						d.logger.Error("stalled sweep failed", "queue", q.Name, "error", err)
					}
					continue
				}
				if n > 0 {
					metrics.JobsReclaimed.WithLabelValues(q.Name).Add(float64(n))
					d.logger.Info("reclaimed stalled jobs", "queue", q.Name, "count", n)
				}
			}
		}
	}
}

func (d *Dispatcher) sleep(dur time.Duration) {
	select {
	case <-d.ctx.Done():
	case <-time.After(dur):
	}
}
