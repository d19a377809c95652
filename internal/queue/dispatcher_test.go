package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewboard/crewboard-api/internal/platform/metrics"
	"github.com/crewboard/crewboard-api/internal/platform/redisstore"
	"github.com/crewboard/crewboard-api/internal/queue"
)

type noopPayload struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

// scriptedHandler runs a per-call function so each test can script failure
// sequences.
type scriptedHandler struct {
	jobType string
	queue   string
	handle  func(ctx context.Context, payload any) (string, error)
}

func (h *scriptedHandler) Type() string    { return h.jobType }
func (h *scriptedHandler) Queue() string   { return h.queue }
func (h *scriptedHandler) NewPayload() any { return &noopPayload{} }
func (h *scriptedHandler) Handle(ctx context.Context, payload any) (string, error) {
	return h.handle(ctx, payload)
}

func newTestStore(t *testing.T) *redisstore.JobStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewJobStore(client)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() queue.DispatcherConfig {
	return queue.DispatcherConfig{
		PollInterval:         5 * time.Millisecond,
		PromoteInterval:      5 * time.Millisecond,
		StalledAfter:         time.Minute,
		StalledCheckInterval: time.Minute,
	}
}

// waitForJob polls until the job satisfies cond or the deadline passes.
func waitForJob(t *testing.T, store queue.Store, id uuid.UUID, cond func(*queue.Job) bool) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id.String())
		if err == nil && cond(job) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached the expected state", id)
	return nil
}

func TestDispatcherCompletesJob(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 2, MaxAttempts: 3, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	var executions int32
	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "noop",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			atomic.AddInt32(&executions, 1)
			return "done", nil
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	id, err := client.Enqueue(context.Background(), "noop", &noopPayload{ID: uuid.New()})
	require.NoError(t, err)

	job := waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateCompleted })
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, "done", job.Result)
	assert.Empty(t, job.LastError)
	assert.EqualValues(t, 1, atomic.LoadInt32(&executions))

	counts, err := store.Counts(context.Background(), "test")
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts.Waiting)
	assert.EqualValues(t, 0, counts.Active)
	assert.EqualValues(t, 1, counts.Completed)
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 1, MaxAttempts: 5, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	var executions int32
	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "flaky",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			if atomic.AddInt32(&executions, 1) <= 2 {
				return "", errors.New("transient failure")
			}
			return "finally", nil
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	id, err := client.Enqueue(context.Background(), "flaky", &noopPayload{ID: uuid.New()})
	require.NoError(t, err)

	job := waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateCompleted })
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, "finally", job.Result)
	assert.EqualValues(t, 3, atomic.LoadInt32(&executions))
}

func TestDispatcherDeadLettersAfterMaxAttempts(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 1, MaxAttempts: 3, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	var executions int32
	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "doomed",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			atomic.AddInt32(&executions, 1)
			return "", errors.New("permanent failure")
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	id, err := client.Enqueue(context.Background(), "doomed", &noopPayload{ID: uuid.New()})
	require.NoError(t, err)

	job := waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateDead })
	assert.Equal(t, 3, job.Attempts, "executed exactly MaxAttempts times")
	assert.Contains(t, job.LastError, "permanent failure")
	assert.EqualValues(t, 3, atomic.LoadInt32(&executions))

	counts, err := store.Counts(context.Background(), "test")
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Failed)
	assert.EqualValues(t, 0, counts.Waiting)
}

func TestDispatcherRecoversFromHandlerPanic(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 1, MaxAttempts: 2, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "panics",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			panic("boom")
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	id, err := client.Enqueue(context.Background(), "panics", &noopPayload{ID: uuid.New()})
	require.NoError(t, err)

	job := waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateDead })
	assert.Contains(t, job.LastError, "handler panic")
}

func TestDispatcherRespectsConcurrencyCeiling(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 2, MaxAttempts: 3, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	var inFlight, peak int32
	var mu sync.Mutex
	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "slow",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			n := atomic.AddInt32(&inFlight, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return "ok", nil
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	var ids []uuid.UUID
	for i := 0; i < 6; i++ {
		id, err := client.Enqueue(context.Background(), "slow", &noopPayload{ID: uuid.New()})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, id := range ids {
		waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateCompleted })
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(2), "no more than Concurrency handlers at once")
	assert.Greater(t, peak, int32(0))
}

func TestDispatcherPromotesDelayedJobs(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 1, MaxAttempts: 3, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	var executedAt atomic.Value
	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "delayed",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			executedAt.Store(time.Now())
			return "ok", nil
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	enqueuedAt := time.Now()
	id, err := client.Enqueue(context.Background(), "delayed", &noopPayload{ID: uuid.New()},
		queue.WithDelay(50*time.Millisecond))
	require.NoError(t, err)

	waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateCompleted })

	ran := executedAt.Load().(time.Time)
	assert.GreaterOrEqual(t, ran.Sub(enqueuedAt), 50*time.Millisecond,
		"delayed job must not run before its schedule")
}

func TestDispatcherRefreshesDepthGauge(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "gauge", Concurrency: 1, MaxAttempts: 3, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "deferred",
		queue:   "gauge",
		handle: func(ctx context.Context, payload any) (string, error) {
			return "ok", nil
		},
	}))

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, fastConfig(), discardLogger())
	dispatcher.Start()
	defer dispatcher.Stop()

	// Far enough out that workers cannot drain it while we look at the gauge.
	_, err := client.Enqueue(context.Background(), "deferred", &noopPayload{ID: uuid.New()},
		queue.WithDelay(time.Hour))
	require.NoError(t, err)

	gauge := metrics.QueueWaiting.WithLabelValues("gauge")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(gauge) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("gauge never reflected the backlog, got %v", testutil.ToFloat64(gauge))
}

func TestDispatcherReclaimsStalledJobs(t *testing.T) {
	store := newTestStore(t)
	queues := []queue.Queue{{Name: "test", Concurrency: 2, MaxAttempts: 5, BackoffBase: 5 * time.Millisecond, BackoffMax: 20 * time.Millisecond}}
	registry := queue.NewRegistry(queues)

	release := make(chan struct{})
	var executions int32
	require.NoError(t, registry.Register(&scriptedHandler{
		jobType: "stuck",
		queue:   "test",
		handle: func(ctx context.Context, payload any) (string, error) {
			if atomic.AddInt32(&executions, 1) == 1 {
				// First delivery hangs, simulating a stuck worker.
				<-release
				return "", errors.New("gave up")
			}
			return "recovered", nil
		},
	}))

	cfg := fastConfig()
	cfg.StalledAfter = 30 * time.Millisecond
	cfg.StalledCheckInterval = 10 * time.Millisecond

	client := queue.NewClient(registry, store, discardLogger())
	dispatcher := queue.NewDispatcher(registry, store, cfg, discardLogger())
	dispatcher.Start()
	defer func() {
		close(release)
		dispatcher.Stop()
	}()

	id, err := client.Enqueue(context.Background(), "stuck", &noopPayload{ID: uuid.New()})
	require.NoError(t, err)

	job := waitForJob(t, store, id, func(j *queue.Job) bool { return j.State == queue.StateCompleted })
	assert.Equal(t, "recovered", job.Result)
	assert.GreaterOrEqual(t, job.Attempts, 2, "reclaim produced a second delivery")
}
