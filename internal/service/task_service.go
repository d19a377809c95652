package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/queue/handlers"
	"github.com/crewboard/crewboard-api/internal/store"
)

// viewFlushDelay is how long view counters accumulate in the cache before a
// stats job folds them into the task row. The coalescing lock below shares
// this lifetime so at most one flush job is in flight per task.
const viewFlushDelay = 30 * time.Second

// TaskService handles task, comment and attachment operations.
type TaskService struct {
	tasks       store.TaskStore
	comments    store.CommentStore
	cache       cache.Cache
	invalidator *cache.Invalidator
	jobs        *queue.Client
	logger      *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(
	tasks store.TaskStore,
	comments store.CommentStore,
	c cache.Cache,
	invalidator *cache.Invalidator,
	jobs *queue.Client,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		tasks:       tasks,
		comments:    comments,
		cache:       c,
		invalidator: invalidator,
		jobs:        jobs,
		logger:      logger.With("component", "task_service"),
	}
}

// Create saves a new task and schedules a stats rollup for its project.
func (s *TaskService) Create(ctx context.Context, projectID uuid.UUID, title, body string) (*domain.Task, error) {
	task, err := domain.NewTask(projectID, title, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.invalidator.Task(ctx, task.ID, projectID)
	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeUpdateProjectStats,
		&handlers.UpdateProjectStatsPayload{ProjectID: projectID})

	return task, nil
}

// Get returns a task, served from cache when warm.
func (s *TaskService) Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	raw, err := cache.GetOrCompute(ctx, s.cache, cache.TaskKey(taskID), cache.EntityTTL,
		func(ctx context.Context) ([]byte, error) {
			task, err := s.tasks.GetByID(ctx, taskID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(task)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("malformed cached task %s: %w", taskID, err)
	}
	return &task, nil
}

// TaskUpdate carries the mutable task fields. Nil pointers leave the field
// unchanged.
type TaskUpdate struct {
	Title      *string
	Body       *string
	Status     *domain.TaskStatus
	AssigneeID *uuid.UUID
	DueAt      *time.Time
}

// Update applies a partial update to a task. Status changes schedule a stats
// rollup; assignment changes notify the new assignee.
func (s *TaskService) Update(ctx context.Context, taskID uuid.UUID, update TaskUpdate) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}

	statusChanged := false
	assigneeChanged := false
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Body != nil {
		task.Body = *update.Body
	}
	if update.Status != nil && *update.Status != task.Status {
		task.Status = *update.Status
		statusChanged = true
	}
	if update.AssigneeID != nil && *update.AssigneeID != task.AssigneeID {
		task.AssigneeID = *update.AssigneeID
		assigneeChanged = true
	}
	if update.DueAt != nil {
		task.DueAt = update.DueAt
	}

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.invalidator.Task(ctx, taskID, task.ProjectID)
	if statusChanged {
		enqueueJob(ctx, s.jobs, s.logger, handlers.TypeUpdateProjectStats,
			&handlers.UpdateProjectStatsPayload{ProjectID: task.ProjectID})
	}
	if assigneeChanged && task.AssigneeID != uuid.Nil {
		enqueueJob(ctx, s.jobs, s.logger, handlers.TypeCreateNotification,
			&handlers.CreateNotificationPayload{
				UserID:    task.AssigneeID,
				Kind:      "task_assigned",
				Message:   fmt.Sprintf("You were assigned: %s", task.Title),
				DedupeKey: fmt.Sprintf("task-assigned:%s:%s", taskID, task.AssigneeID),
				Metadata:  map[string]string{"task_id": taskID.String()},
			})
	}

	return task, nil
}

// Complete marks a task done.
func (s *TaskService) Complete(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	done := domain.TaskStatusDone
	return s.Update(ctx, taskID, TaskUpdate{Status: &done})
}

// Delete removes a task and hands its comments and attachments to the
// cleanup queue.
func (s *TaskService) Delete(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to retrieve task: %w", err)
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.invalidator.Task(ctx, taskID, task.ProjectID)
	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeCleanupTask,
		&handlers.CleanupTaskPayload{TaskID: taskID, ProjectID: task.ProjectID})
	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeUpdateProjectStats,
		&handlers.UpdateProjectStatsPayload{ProjectID: task.ProjectID})

	s.logger.Info("task deleted", "task_id", taskID, "project_id", task.ProjectID)
	return nil
}

// AddComment records a comment on a task and notifies the task's assignee
// when somebody else wrote it.
func (s *TaskService) AddComment(ctx context.Context, taskID, authorID uuid.UUID, body string) (*domain.Comment, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}

	comment, err := domain.NewComment(taskID, authorID, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.invalidator.Comment(ctx, taskID, task.ProjectID)
	if task.AssigneeID != uuid.Nil && task.AssigneeID != authorID {
		enqueueJob(ctx, s.jobs, s.logger, handlers.TypeCreateNotification,
			&handlers.CreateNotificationPayload{
				UserID:    task.AssigneeID,
				Kind:      "task_commented",
				Message:   fmt.Sprintf("New comment on: %s", task.Title),
				DedupeKey: fmt.Sprintf("task-commented:%s:%s", taskID, comment.ID),
				Metadata:  map[string]string{"task_id": taskID.String()},
			})
	}

	return comment, nil
}

// Comments returns a task's comments oldest first, served from cache when
// warm.
func (s *TaskService) Comments(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	raw, err := cache.GetOrCompute(ctx, s.cache, cache.TaskCommentsKey(taskID), cache.EntityTTL,
		func(ctx context.Context) ([]byte, error) {
			comments, err := s.comments.ListByTask(ctx, taskID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(comments)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	var comments []*domain.Comment
	if err := json.Unmarshal(raw, &comments); err != nil {
		return nil, fmt.Errorf("malformed cached comment list for %s: %w", taskID, err)
	}
	return comments, nil
}

// RecordView bumps the task's view counter in the cache and schedules a
// delayed stats job to fold it into the task row. The SetIfAbsent lock
// coalesces bursts of views into a single pending flush per task; if the
// cache is down the view is dropped, which is acceptable for an approximate
// counter.
func (s *TaskService) RecordView(ctx context.Context, taskID uuid.UUID) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}

	if _, err := s.cache.Increment(ctx, cache.TaskViewsKey(taskID), 1); err != nil {
		s.logger.Debug("view counter unavailable, dropping view", "task_id", taskID, "error", err)
		return nil
	}

	lockKey := cache.TaskViewsKey(taskID) + ":flush"
	acquired, err := s.cache.SetIfAbsent(ctx, lockKey, []byte("1"), viewFlushDelay)
	if err != nil || !acquired {
		return nil
	}

	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeUpdateProjectStats,
		&handlers.UpdateProjectStatsPayload{ProjectID: task.ProjectID},
		queue.WithDelay(viewFlushDelay))
	return nil
}

// AddAttachment records an uploaded file against a task and queues metadata
// extraction.
func (s *TaskService) AddAttachment(ctx context.Context, taskID uuid.UUID, fileName, storageKey string, sizeBytes int64) (*domain.Attachment, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}

	attachment, err := domain.NewAttachment(taskID, fileName, storageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	attachment.SizeBytes = sizeBytes

	if err := s.tasks.CreateAttachment(ctx, attachment); err != nil {
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeProcessAttachment,
		&handlers.ProcessAttachmentPayload{AttachmentID: attachment.ID})

	return attachment, nil
}

// ListByProject returns all tasks of a project straight from the store.
func (s *TaskService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
