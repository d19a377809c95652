package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStats is a derived rollup of a project's tasks and comments.
// It is always recomputed from authoritative rows and overwritten as a
// whole, never incremented in place.
type ProjectStats struct {
	ProjectID      uuid.UUID `json:"project_id"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
	CommentCount   int       `json:"comment_count"`
	ComputedAt     time.Time `json:"computed_at"`
}
