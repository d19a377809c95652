package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/platform/logger"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/store"
)

// TypeUpdateProjectStats is the job type tag for project statistics
// recomputation.
const TypeUpdateProjectStats = "update_project_stats"

// UpdateProjectStatsPayload identifies the project to roll up.
type UpdateProjectStatsPayload struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
}

// StatsHandler recomputes a project's rollup from authoritative rows and
// flushes pending task-view counters.
type StatsHandler struct {
	tasks    store.TaskStore
	comments store.CommentStore
	stats    store.StatsStore
	cache    cache.Cache
}

var _ queue.Handler = (*StatsHandler)(nil)

// NewStatsHandler creates the handler.
func NewStatsHandler(
	tasks store.TaskStore,
	comments store.CommentStore,
	stats store.StatsStore,
	c cache.Cache,
) *StatsHandler {
	return &StatsHandler{
		tasks:    tasks,
		comments: comments,
		stats:    stats,
		cache:    c,
	}
}

func (h *StatsHandler) Type() string { return TypeUpdateProjectStats }

func (h *StatsHandler) Queue() string { return queue.QueueAnalytics }

func (h *StatsHandler) NewPayload() any { return &UpdateProjectStatsPayload{} }

// Handle recomputes and overwrites the stored rollup. Everything is derived
// from authoritative rows, so running twice converges on identical stats
// rather than doubling them.
func (h *StatsHandler) Handle(ctx context.Context, payload any) (string, error) {
	p := payload.(*UpdateProjectStatsPayload)

	tasks, err := h.tasks.ListByProject(ctx, p.ProjectID)
	if err != nil {
		return "", fmt.Errorf("list tasks of project %s: %w", p.ProjectID, err)
	}

	stats := &domain.ProjectStats{
		ProjectID:  p.ProjectID,
		TotalTasks: len(tasks),
		ComputedAt: time.Now().UTC(),
	}
	for _, t := range tasks {
		if t.Status == domain.TaskStatusDone {
			stats.CompletedTasks++
		}
		h.flushViews(ctx, t)
	}

	commentCount, err := h.comments.CountByProject(ctx, p.ProjectID)
	if err != nil {
		return "", fmt.Errorf("count comments of project %s: %w", p.ProjectID, err)
	}
	stats.CommentCount = commentCount

	if err := h.stats.Upsert(ctx, stats); err != nil {
		return "", fmt.Errorf("store stats of project %s: %w", p.ProjectID, err)
	}

	return fmt.Sprintf("total=%d completed=%d comments=%d",
		stats.TotalTasks, stats.CompletedTasks, stats.CommentCount), nil
}

// flushViews folds the cached view counter into the stored count and drops
// the counter. A re-run sees no counter and leaves the stored count alone;
// view tracking is approximate by contract, so a counter lost to a crash
// between read and delete costs accuracy, not correctness.
func (h *StatsHandler) flushViews(ctx context.Context, task *domain.Task) {
	raw, ok, err := h.cache.Get(ctx, cache.TaskViewsKey(task.ID))
	if err != nil || !ok {
		return
	}

	pending, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || pending <= 0 {
		return
	}

	if err := h.tasks.SetViewCount(ctx, task.ID, task.ViewCount+pending); err != nil {
		logger.FromContext(ctx).Warn("view counter flush failed",
			"task_id", task.ID,
			"error", err)
		return
	}
	_ = h.cache.Delete(ctx, cache.TaskViewsKey(task.ID))
}
