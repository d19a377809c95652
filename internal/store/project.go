package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
)

// ProjectStore defines the interface for project and membership persistence.
type ProjectStore interface {
	// Create saves a new project. The owner is recorded as a membership with
	// role owner in the same operation.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by ID.
	// Returns ErrProjectNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// Update modifies an existing project.
	// Returns ErrProjectNotFound if it does not exist.
	Update(ctx context.Context, project *domain.Project) error

	// Delete removes a project and its memberships.
	// Returns ErrProjectNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByMember returns the projects the given user belongs to.
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error)

	// AddMember records a membership; adding an existing member updates the role.
	AddMember(ctx context.Context, m *domain.Membership) error

	// RemoveMember deletes a membership.
	// Returns ErrMembershipNotFound if it does not exist.
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error

	// ListMembers returns all memberships of a project.
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]*domain.Membership, error)

	// WithTx returns a ProjectStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ProjectStore
}
