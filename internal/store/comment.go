package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
)

// CommentStore defines the interface for comment persistence.
type CommentStore interface {
	// Create saves a new comment.
	Create(ctx context.Context, comment *domain.Comment) error

	// GetByID retrieves a comment by ID.
	// Returns ErrCommentNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)

	// ListByTask returns all comments on a task, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error)

	// DeleteByTask removes every comment on a task and reports how many rows
	// went away. Re-running against an already-cleaned task removes zero.
	DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error)

	// CountByProject counts comments across all tasks of a project.
	CountByProject(ctx context.Context, projectID uuid.UUID) (int, error)

	// WithTx returns a CommentStore bound to the provided transaction.
	WithTx(tx *sql.Tx) CommentStore
}
