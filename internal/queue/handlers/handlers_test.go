package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/platform/redisstore"
	"github.com/crewboard/crewboard-api/internal/store/memstore"
)

func newHandlerCache(t *testing.T) *redisstore.Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return redisstore.NewCache(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeSender records deliveries and can be told to fail the next send.
type fakeSender struct {
	mu       sync.Mutex
	sent     []string
	failNext bool
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("relay unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeSender) deliveries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestWelcomeEmailSendsOnce(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUserStore()
	sender := &fakeSender{}
	handler := NewWelcomeEmailHandler(users, sender, newHandlerCache(t))

	user, err := domain.NewUser("ada@example.com", "Ada", "correct-horse-battery")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user))

	result, err := handler.Handle(ctx, &WelcomeEmailPayload{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "sent to ada@example.com", result)

	// A redelivered job finds the marker and skips the send.
	result, err = handler.Handle(ctx, &WelcomeEmailPayload{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "already sent", result)
	assert.Equal(t, []string{"ada@example.com"}, sender.deliveries())
}

func TestWelcomeEmailReleasesMarkerOnSendFailure(t *testing.T) {
	ctx := context.Background()
	users := memstore.NewUserStore()
	sender := &fakeSender{failNext: true}
	handler := NewWelcomeEmailHandler(users, sender, newHandlerCache(t))

	user, err := domain.NewUser("ada@example.com", "Ada", "correct-horse-battery")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user))

	_, err = handler.Handle(ctx, &WelcomeEmailPayload{UserID: user.ID})
	require.Error(t, err)
	assert.Empty(t, sender.deliveries())

	// The failed attempt must not leave the marker behind; the retry sends.
	result, err := handler.Handle(ctx, &WelcomeEmailPayload{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "sent to ada@example.com", result)
	assert.Equal(t, []string{"ada@example.com"}, sender.deliveries())
}

func TestWelcomeEmailForDeletedUser(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	handler := NewWelcomeEmailHandler(memstore.NewUserStore(), sender, newHandlerCache(t))

	result, err := handler.Handle(ctx, &WelcomeEmailPayload{UserID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "user no longer exists", result)
	assert.Empty(t, sender.deliveries())
}

func TestNotificationDeliveryDedupes(t *testing.T) {
	ctx := context.Background()
	notifications := memstore.NewNotificationStore()
	handler := NewNotificationHandler(notifications)

	userID := uuid.New()
	payload := &CreateNotificationPayload{
		UserID:    userID,
		Kind:      "task_assigned",
		Message:   "You were assigned a task",
		DedupeKey: "task-assigned:t1:u1",
	}

	_, err := handler.Handle(ctx, payload)
	require.NoError(t, err)

	// Redelivery with the same dedupe key is a set operation, not an append.
	payload.Message = "You were assigned a task (redelivered)"
	_, err = handler.Handle(ctx, payload)
	require.NoError(t, err)

	stored, err := notifications.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "task_assigned", stored[0].Type)
	assert.Equal(t, "You were assigned a task (redelivered)", stored[0].Message)
}

func TestAttachmentProcessing(t *testing.T) {
	ctx := context.Background()
	tasks := memstore.NewTaskStore()
	handler := NewAttachmentHandler(tasks)

	task, err := domain.NewTask(uuid.New(), "Ship the report", "")
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	attachment, err := domain.NewAttachment(task.ID, "report.pdf", "uploads/report.pdf")
	require.NoError(t, err)
	require.NoError(t, tasks.CreateAttachment(ctx, attachment))

	result, err := handler.Handle(ctx, &ProcessAttachmentPayload{AttachmentID: attachment.ID})
	require.NoError(t, err)
	assert.Equal(t, "processed report.pdf", result)

	stored, err := tasks.GetAttachment(ctx, attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", stored.ContentType)
	assert.True(t, stored.Processed)
}

func TestAttachmentProcessingUnknownExtension(t *testing.T) {
	ctx := context.Background()
	tasks := memstore.NewTaskStore()
	handler := NewAttachmentHandler(tasks)

	task, err := domain.NewTask(uuid.New(), "Ship it", "")
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	attachment, err := domain.NewAttachment(task.ID, "LICENSE", "uploads/license")
	require.NoError(t, err)
	require.NoError(t, tasks.CreateAttachment(ctx, attachment))

	_, err = handler.Handle(ctx, &ProcessAttachmentPayload{AttachmentID: attachment.ID})
	require.NoError(t, err)

	stored, err := tasks.GetAttachment(ctx, attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", stored.ContentType)
}

func TestAttachmentProcessingAfterDeletion(t *testing.T) {
	handler := NewAttachmentHandler(memstore.NewTaskStore())

	result, err := handler.Handle(context.Background(), &ProcessAttachmentPayload{AttachmentID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "attachment no longer exists", result)
}

func TestStatsRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tasks := memstore.NewTaskStore()
	comments := memstore.NewCommentStore(tasks)
	stats := memstore.NewStatsStore()
	handler := NewStatsHandler(tasks, comments, stats, newHandlerCache(t))

	projectID := uuid.New()
	var first *domain.Task
	for i := 0; i < 10; i++ {
		task, err := domain.NewTask(projectID, "task", "")
		require.NoError(t, err)
		if i < 4 {
			task.Status = domain.TaskStatusDone
		}
		require.NoError(t, tasks.Create(ctx, task))
		if first == nil {
			first = task
		}
	}
	for i := 0; i < 5; i++ {
		comment, err := domain.NewComment(first.ID, uuid.New(), "nice")
		require.NoError(t, err)
		require.NoError(t, comments.Create(ctx, comment))
	}

	payload := &UpdateProjectStatsPayload{ProjectID: projectID}

	result, err := handler.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "total=10 completed=4 comments=5", result)

	// Everything is derived from authoritative rows; a re-run converges on
	// the same values instead of doubling them.
	result, err = handler.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "total=10 completed=4 comments=5", result)

	stored, err := stats.Get(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.TotalTasks)
	assert.Equal(t, 4, stored.CompletedTasks)
	assert.Equal(t, 5, stored.CommentCount)
}

func TestStatsFlushesViewCounters(t *testing.T) {
	ctx := context.Background()
	tasks := memstore.NewTaskStore()
	comments := memstore.NewCommentStore(tasks)
	c := newHandlerCache(t)
	handler := NewStatsHandler(tasks, comments, memstore.NewStatsStore(), c)

	projectID := uuid.New()
	task, err := domain.NewTask(projectID, "task", "")
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	require.NoError(t, c.Set(ctx, cache.TaskViewsKey(task.ID), []byte("7"), time.Minute))

	_, err = handler.Handle(ctx, &UpdateProjectStatsPayload{ProjectID: projectID})
	require.NoError(t, err)

	stored, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.ViewCount)

	_, ok, err := c.Get(ctx, cache.TaskViewsKey(task.ID))
	require.NoError(t, err)
	assert.False(t, ok, "flushed counter should be dropped")

	// With no pending counter the stored count stays put.
	_, err = handler.Handle(ctx, &UpdateProjectStatsPayload{ProjectID: projectID})
	require.NoError(t, err)

	stored, err = tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.ViewCount)
}

func TestCleanupRemovesOrphans(t *testing.T) {
	ctx := context.Background()
	tasks := memstore.NewTaskStore()
	comments := memstore.NewCommentStore(tasks)
	c := newHandlerCache(t)
	handler := NewCleanupHandler(comments, tasks, c)

	task, err := domain.NewTask(uuid.New(), "doomed", "")
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	for i := 0; i < 2; i++ {
		comment, err := domain.NewComment(task.ID, uuid.New(), "bye")
		require.NoError(t, err)
		require.NoError(t, comments.Create(ctx, comment))
	}
	attachment, err := domain.NewAttachment(task.ID, "notes.txt", "uploads/notes.txt")
	require.NoError(t, err)
	require.NoError(t, tasks.CreateAttachment(ctx, attachment))

	require.NoError(t, c.Set(ctx, cache.TaskCommentsKey(task.ID), []byte("[]"), time.Minute))

	// The task row itself goes synchronously; the job mops up dependents.
	require.NoError(t, tasks.Delete(ctx, task.ID))

	payload := &CleanupTaskPayload{TaskID: task.ID, ProjectID: task.ProjectID}

	result, err := handler.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "removed 2 comments, 1 attachments", result)

	remaining, err := tasks.ListAttachmentsByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, ok, err := c.Get(ctx, cache.TaskCommentsKey(task.ID))
	require.NoError(t, err)
	assert.False(t, ok, "cached comment list should not outlive the rows")

	// Re-running removes nothing and reports the same clean state.
	result, err = handler.Handle(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "removed 0 comments, 0 attachments", result)
}
