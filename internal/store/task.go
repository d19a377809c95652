package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
)

// TaskStore defines the interface for task and attachment persistence.
type TaskStore interface {
	// Create saves a new task.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update modifies an existing task.
	// Returns ErrTaskNotFound if it does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task. Comments and attachments are left for the
	// cleanup job; only the task row goes away here.
	// Returns ErrTaskNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByProject returns all tasks belonging to a project.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error)

	// SetViewCount overwrites the stored view counter for a task.
	SetViewCount(ctx context.Context, taskID uuid.UUID, views int64) error

	// CreateAttachment saves a new attachment record.
	CreateAttachment(ctx context.Context, a *domain.Attachment) error

	// GetAttachment retrieves an attachment by ID.
	// Returns ErrAttachmentNotFound if it does not exist.
	GetAttachment(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)

	// UpdateAttachment overwrites an attachment record.
	UpdateAttachment(ctx context.Context, a *domain.Attachment) error

	// ListAttachmentsByTask returns all attachments on a task.
	ListAttachmentsByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Attachment, error)

	// DeleteAttachment removes an attachment record. Deleting a missing
	// attachment is a no-op so cleanup can safely re-run.
	DeleteAttachment(ctx context.Context, id uuid.UUID) error

	// WithTx returns a TaskStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
