package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/store"
)

// TaskStore implements store.TaskStore using PostgreSQL. The nullable
// assignee and due date columns map to uuid.Nil and nil on the domain side.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a new PostgreSQL implementation of store.TaskStore.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, project_id, title, body, status, assignee_id, view_count, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		task.Body,
		task.Status,
		nullableUUID(task.AssigneeID),
		task.ViewCount,
		task.DueAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrProjectNotFound
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, project_id, title, body, status, assignee_id, view_count, due_at, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	return task, nil
}

// Update implements store.TaskStore.Update.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, body = $2, status = $3, assignee_id = $4, due_at = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Body,
		task.Status,
		nullableUUID(task.AssigneeID),
		task.DueAt,
		time.Now().UTC(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// ListByProject implements store.TaskStore.ListByProject.
func (s *TaskStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT id, project_id, title, body, status, assignee_id, view_count, due_at, created_at, updated_at
		FROM tasks
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by project: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}

	return tasks, nil
}

// SetViewCount implements store.TaskStore.SetViewCount.
func (s *TaskStore) SetViewCount(ctx context.Context, taskID uuid.UUID, views int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET view_count = $1 WHERE id = $2`,
		views, taskID)
	if err != nil {
		return fmt.Errorf("failed to set view count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// CreateAttachment implements store.TaskStore.CreateAttachment.
func (s *TaskStore) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	query := `
		INSERT INTO attachments (id, task_id, file_name, storage_key, content_type, size_bytes, processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.TaskID,
		a.FileName,
		a.StorageKey,
		a.ContentType,
		a.SizeBytes,
		a.Processed,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}

	return nil
}

// GetAttachment implements store.TaskStore.GetAttachment.
func (s *TaskStore) GetAttachment(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	query := `
		SELECT id, task_id, file_name, storage_key, content_type, size_bytes, processed, created_at, updated_at
		FROM attachments
		WHERE id = $1
	`

	a := &domain.Attachment{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.TaskID,
		&a.FileName,
		&a.StorageKey,
		&a.ContentType,
		&a.SizeBytes,
		&a.Processed,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to query attachment: %w", err)
	}

	return a, nil
}

// UpdateAttachment implements store.TaskStore.UpdateAttachment.
func (s *TaskStore) UpdateAttachment(ctx context.Context, a *domain.Attachment) error {
	query := `
		UPDATE attachments
		SET file_name = $1, content_type = $2, size_bytes = $3, processed = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		a.FileName,
		a.ContentType,
		a.SizeBytes,
		a.Processed,
		time.Now().UTC(),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attachment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrAttachmentNotFound
	}

	return nil
}

// ListAttachmentsByTask implements store.TaskStore.ListAttachmentsByTask.
func (s *TaskStore) ListAttachmentsByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Attachment, error) {
	query := `
		SELECT id, task_id, file_name, storage_key, content_type, size_bytes, processed, created_at, updated_at
		FROM attachments
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var attachments []*domain.Attachment
	for rows.Next() {
		a := &domain.Attachment{}
		if err := rows.Scan(
			&a.ID,
			&a.TaskID,
			&a.FileName,
			&a.StorageKey,
			&a.ContentType,
			&a.SizeBytes,
			&a.Processed,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachment rows: %w", err)
	}

	return attachments, nil
}

// DeleteAttachment implements store.TaskStore.DeleteAttachment. Missing rows
// are ignored so cleanup can safely re-run.
func (s *TaskStore) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

// WithTx implements store.TaskStore.WithTx.
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{db: tx}
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	task := &domain.Task{}
	var assignee uuid.NullUUID
	var dueAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Body,
		&task.Status,
		&assignee,
		&task.ViewCount,
		&dueAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignee.Valid {
		task.AssigneeID = assignee.UUID
	}
	if dueAt.Valid {
		t := dueAt.Time
		task.DueAt = &t
	}

	return task, nil
}

// nullableUUID maps uuid.Nil to SQL NULL.
func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
