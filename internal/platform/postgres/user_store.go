package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/platform/logger"
	"github.com/crewboard/crewboard-api/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db store.DBTX
}

// NewUserStore creates a new PostgreSQL implementation of store.UserStore.
// It accepts a database connection that should be initialized and managed
// by the caller.
func NewUserStore(db store.DBTX) *UserStore {
	return &UserStore{db: db}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, display_name, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailExists
		}
		logger.FromContext(ctx).Error("failed to insert user",
			"user_id", user.ID,
			"error", err)
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, display_name, hashed_password, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}

	return user, nil
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, display_name, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	user := &domain.User{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}

	return user, nil
}

// Update implements store.UserStore.Update.
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, display_name = $2, hashed_password = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.DisplayName,
		user.HashedPassword,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// Delete implements store.UserStore.Delete.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// WithTx implements store.UserStore.WithTx.
func (s *UserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &UserStore{db: tx}
}
