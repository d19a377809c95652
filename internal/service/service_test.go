package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/notify"
	"github.com/crewboard/crewboard-api/internal/platform/redisstore"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/queue/handlers"
	"github.com/crewboard/crewboard-api/internal/store/memstore"
)

// fixture wires the services the way the composition root does, with
// in-memory stores and a miniredis-backed cache and job store.
type fixture struct {
	users         *memstore.UserStore
	projects      *memstore.ProjectStore
	tasks         *memstore.TaskStore
	comments      *memstore.CommentStore
	stats         *memstore.StatsStore
	notifications *memstore.NotificationStore

	cache       *redisstore.Cache
	invalidator *cache.Invalidator
	jobs        *queue.Client
	jobStore    *redisstore.JobStore
	logger      *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		users:         memstore.NewUserStore(),
		projects:      memstore.NewProjectStore(),
		stats:         memstore.NewStatsStore(),
		notifications: memstore.NewNotificationStore(),
		cache:         redisstore.NewCache(client, logger),
		jobStore:      redisstore.NewJobStore(client),
		logger:        logger,
	}
	f.tasks = memstore.NewTaskStore()
	f.comments = memstore.NewCommentStore(f.tasks)
	f.invalidator = cache.NewInvalidator(f.cache)

	registry := queue.NewRegistry(queue.Declared())
	err := handlers.RegisterAll(registry, handlers.Deps{
		Users:         f.users,
		Tasks:         f.tasks,
		Comments:      f.comments,
		Stats:         f.stats,
		Notifications: f.notifications,
		Cache:         f.cache,
		Email:         notify.NewLogSender(logger),
	})
	require.NoError(t, err)

	f.jobs = queue.NewClient(registry, f.jobStore, logger)
	return f
}

func (f *fixture) userService() *UserService {
	return NewUserService(f.users, f.projects, f.invalidator, f.jobs, f.logger)
}

func (f *fixture) projectService() *ProjectService {
	return NewProjectService(f.projects, f.stats, f.cache, f.invalidator, f.jobs, f.logger)
}

func (f *fixture) taskService() *TaskService {
	return NewTaskService(f.tasks, f.comments, f.cache, f.invalidator, f.jobs, f.logger)
}

// drain claims and completes every waiting job on the queue, returning the
// claimed jobs so tests can inspect what a mutation enqueued.
func (f *fixture) drain(t *testing.T, queueName string) []*queue.Job {
	t.Helper()

	ctx := context.Background()
	var claimed []*queue.Job
	for {
		job, err := f.jobStore.Claim(ctx, queueName)
		if errors.Is(err, queue.ErrNoJob) {
			return claimed
		}
		require.NoError(t, err)
		require.NoError(t, f.jobStore.Complete(ctx, job, "drained"))
		claimed = append(claimed, job)
	}
}
