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

// StatsStore implements store.StatsStore using PostgreSQL. One row per
// project, overwritten whole on every recomputation.
type StatsStore struct {
	db store.DBTX
}

// NewStatsStore creates a new PostgreSQL implementation of store.StatsStore.
func NewStatsStore(db store.DBTX) *StatsStore {
	return &StatsStore{db: db}
}

var _ store.StatsStore = (*StatsStore)(nil)

// Get implements store.StatsStore.Get.
func (s *StatsStore) Get(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStats, error) {
	query := `
		SELECT project_id, total_tasks, completed_tasks, comment_count, computed_at
		FROM project_stats
		WHERE project_id = $1
	`

	stats := &domain.ProjectStats{}
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(
		&stats.ProjectID,
		&stats.TotalTasks,
		&stats.CompletedTasks,
		&stats.CommentCount,
		&stats.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to query project stats: %w", err)
	}

	return stats, nil
}

// Upsert implements store.StatsStore.Upsert.
func (s *StatsStore) Upsert(ctx context.Context, stats *domain.ProjectStats) error {
	query := `
		INSERT INTO project_stats (project_id, total_tasks, completed_tasks, comment_count, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id) DO UPDATE SET
			total_tasks = EXCLUDED.total_tasks,
			completed_tasks = EXCLUDED.completed_tasks,
			comment_count = EXCLUDED.comment_count,
			computed_at = EXCLUDED.computed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		stats.ProjectID,
		stats.TotalTasks,
		stats.CompletedTasks,
		stats.CommentCount,
		stats.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project stats: %w", err)
	}

	return nil
}

// Delete implements store.StatsStore.Delete. Deleting absent stats is a
// no-op.
func (s *StatsStore) Delete(ctx context.Context, projectID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM project_stats WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to delete project stats: %w", err)
	}
	return nil
}

// WithTx implements store.StatsStore.WithTx.
func (s *StatsStore) WithTx(tx *sql.Tx) store.StatsStore {
	return &StatsStore{db: tx}
}
