package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/store"
)

// CommentStore implements store.CommentStore using PostgreSQL.
type CommentStore struct {
	db store.DBTX
}

// NewCommentStore creates a new PostgreSQL implementation of store.CommentStore.
func NewCommentStore(db store.DBTX) *CommentStore {
	return &CommentStore{db: db}
}

var _ store.CommentStore = (*CommentStore)(nil)

// Create implements store.CommentStore.Create.
func (s *CommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (id, task_id, author_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		comment.ID,
		comment.TaskID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	return nil
}

// GetByID implements store.CommentStore.GetByID.
func (s *CommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	query := `
		SELECT id, task_id, author_id, body, created_at, updated_at
		FROM comments
		WHERE id = $1
	`

	comment := &domain.Comment{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to query comment: %w", err)
	}

	return comment, nil
}

// ListByTask implements store.CommentStore.ListByTask.
func (s *CommentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	query := `
		SELECT id, task_id, author_id, body, created_at, updated_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*domain.Comment
	for rows.Next() {
		comment := &domain.Comment{}
		if err := rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment rows: %w", err)
	}

	return comments, nil
}

// DeleteByTask implements store.CommentStore.DeleteByTask.
func (s *CommentStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE task_id = $1`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments by task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// CountByProject implements store.CommentStore.CountByProject.
func (s *CommentStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM comments c
		JOIN tasks t ON t.id = c.task_id
		WHERE t.project_id = $1
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, projectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count comments by project: %w", err)
	}

	return count, nil
}

// WithTx implements store.CommentStore.WithTx.
func (s *CommentStore) WithTx(tx *sql.Tx) store.CommentStore {
	return &CommentStore{db: tx}
}
