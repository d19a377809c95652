package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/store"
)

// TypeCleanupTask is the job type tag for deleted-task cleanup.
const TypeCleanupTask = "cleanup_task"

// CleanupTaskPayload identifies a deleted task whose dependents must go.
type CleanupTaskPayload struct {
	TaskID    uuid.UUID `json:"task_id"    validate:"required"`
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
}

// CleanupHandler removes comments and attachments orphaned by a task
// deletion.
type CleanupHandler struct {
	comments store.CommentStore
	tasks    store.TaskStore
	cache    cache.Cache
}

var _ queue.Handler = (*CleanupHandler)(nil)

// NewCleanupHandler creates the handler.
func NewCleanupHandler(comments store.CommentStore, tasks store.TaskStore, c cache.Cache) *CleanupHandler {
	return &CleanupHandler{
		comments: comments,
		tasks:    tasks,
		cache:    c,
	}
}

func (h *CleanupHandler) Type() string { return TypeCleanupTask }

func (h *CleanupHandler) Queue() string { return queue.QueueCleanup }

func (h *CleanupHandler) NewPayload() any { return &CleanupTaskPayload{} }

// Handle deletes the orphaned rows. Deletion is naturally idempotent: a
// re-run removes zero rows and reports the same clean end state.
func (h *CleanupHandler) Handle(ctx context.Context, payload any) (string, error) {
	p := payload.(*CleanupTaskPayload)

	removedComments, err := h.comments.DeleteByTask(ctx, p.TaskID)
	if err != nil {
		return "", fmt.Errorf("delete comments of task %s: %w", p.TaskID, err)
	}

	attachments, err := h.tasks.ListAttachmentsByTask(ctx, p.TaskID)
	if err != nil {
		return "", fmt.Errorf("list attachments of task %s: %w", p.TaskID, err)
	}
	for _, a := range attachments {
		if err := h.tasks.DeleteAttachment(ctx, a.ID); err != nil {
			return "", fmt.Errorf("delete attachment %s: %w", a.ID, err)
		}
	}

	// The task's cached views are gone for good; its comment list must not
	// outlive the rows it mirrored.
	_ = h.cache.Delete(ctx,
		cache.TaskCommentsKey(p.TaskID),
		cache.TaskViewsKey(p.TaskID),
	)

	return fmt.Sprintf("removed %d comments, %d attachments", removedComments, len(attachments)), nil
}
