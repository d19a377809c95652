package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/platform/logger"
	"github.com/crewboard/crewboard-api/internal/store"
)

// ProjectStore implements store.ProjectStore using PostgreSQL. Projects and
// memberships live in separate tables; Create writes both so the owner is
// always a member.
type ProjectStore struct {
	db store.DBTX
}

// NewProjectStore creates a new PostgreSQL implementation of store.ProjectStore.
func NewProjectStore(db store.DBTX) *ProjectStore {
	return &ProjectStore{db: db}
}

var _ store.ProjectStore = (*ProjectStore)(nil)

// Create implements store.ProjectStore.Create. The project row and the
// owner membership commit together when the store is backed by a plain
// connection; when already inside a transaction the caller owns atomicity.
func (s *ProjectStore) Create(ctx context.Context, project *domain.Project) error {
	if db, ok := s.db.(*sql.DB); ok {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return (&ProjectStore{db: tx}).create(ctx, project)
		})
	}
	return s.create(ctx, project)
}

func (s *ProjectStore) create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (id, owner_id, name, description, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Description,
		project.Archived,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to insert project",
			"project_id", project.ID,
			"error", err)
		return fmt.Errorf("failed to insert project: %w", err)
	}

	memberQuery := `
		INSERT INTO memberships (project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.ExecContext(ctx, memberQuery,
		project.ID,
		project.OwnerID,
		domain.RoleOwner,
		project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	return nil
}

// GetByID implements store.ProjectStore.GetByID.
func (s *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `
		SELECT id, owner_id, name, description, archived, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project := &domain.Project{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Name,
		&project.Description,
		&project.Archived,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	return project, nil
}

// Update implements store.ProjectStore.Update.
func (s *ProjectStore) Update(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $1, description = $2, archived = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		project.Name,
		project.Description,
		project.Archived,
		time.Now().UTC(),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrProjectNotFound
	}

	return nil
}

// Delete implements store.ProjectStore.Delete. Memberships go away with the
// project via ON DELETE CASCADE.
func (s *ProjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrProjectNotFound
	}

	return nil
}

// ListByMember implements store.ProjectStore.ListByMember.
func (s *ProjectStore) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	query := `
		SELECT p.id, p.owner_id, p.name, p.description, p.archived, p.created_at, p.updated_at
		FROM projects p
		JOIN memberships m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects by member: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*domain.Project
	for rows.Next() {
		project := &domain.Project{}
		if err := rows.Scan(
			&project.ID,
			&project.OwnerID,
			&project.Name,
			&project.Description,
			&project.Archived,
			&project.CreatedAt,
			&project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project rows: %w", err)
	}

	return projects, nil
}

// AddMember implements store.ProjectStore.AddMember. Re-adding an existing
// member updates the role in place.
func (s *ProjectStore) AddMember(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO memberships (project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`

	_, err := s.db.ExecContext(ctx, query, m.ProjectID, m.UserID, m.Role, m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrProjectNotFound
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}

	return nil
}

// RemoveMember implements store.ProjectStore.RemoveMember.
func (s *ProjectStore) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

// ListMembers implements store.ProjectStore.ListMembers.
func (s *ProjectStore) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*domain.Membership, error) {
	query := `
		SELECT project_id, user_id, role, created_at
		FROM memberships
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []*domain.Membership
	for rows.Next() {
		m := &domain.Membership{}
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate membership rows: %w", err)
	}

	return members, nil
}

// WithTx implements store.ProjectStore.WithTx.
func (s *ProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return &ProjectStore{db: tx}
}
