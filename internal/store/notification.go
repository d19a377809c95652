package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
)

// NotificationStore defines the interface for in-app notification persistence.
type NotificationStore interface {
	// Upsert stores a notification keyed by its DedupeKey: writing the same
	// key twice leaves a single row, so redelivered jobs cannot duplicate a
	// notification.
	Upsert(ctx context.Context, n *domain.Notification) error

	// ListByUser returns the notifications for a user, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// MarkRead marks a notification as read.
	// Returns ErrNotificationNotFound if it does not exist.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// WithTx returns a NotificationStore bound to the provided transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
