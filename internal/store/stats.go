package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
)

// StatsStore defines the interface for derived project statistics.
type StatsStore interface {
	// Get retrieves the stored stats for a project.
	// Returns ErrStatsNotFound if no rollup has been computed yet.
	Get(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStats, error)

	// Upsert overwrites the stored stats for a project. Rollups are always
	// written whole so recomputation is idempotent.
	Upsert(ctx context.Context, stats *domain.ProjectStats) error

	// Delete removes the stored stats for a project.
	Delete(ctx context.Context, projectID uuid.UUID) error

	// WithTx returns a StatsStore bound to the provided transaction.
	WithTx(tx *sql.Tx) StatsStore
}
