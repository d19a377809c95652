package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/store"
)

// NotificationStore implements store.NotificationStore using PostgreSQL.
// The dedupe_key column carries a unique index; Upsert leans on it so a
// redelivered job can never produce a second row.
type NotificationStore struct {
	db store.DBTX
}

// NewNotificationStore creates a new PostgreSQL implementation of
// store.NotificationStore.
func NewNotificationStore(db store.DBTX) *NotificationStore {
	return &NotificationStore{db: db}
}

var _ store.NotificationStore = (*NotificationStore)(nil)

// Upsert implements store.NotificationStore.Upsert. A conflicting dedupe
// key refreshes the message but keeps the original row and read state.
func (s *NotificationStore) Upsert(ctx context.Context, n *domain.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, message, metadata, dedupe_key, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			message = EXCLUDED.message,
			metadata = EXCLUDED.metadata
	`

	_, err = s.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Type,
		n.Message,
		metadata,
		n.DedupeKey,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification: %w", err)
	}

	return nil
}

// ListByUser implements store.NotificationStore.ListByUser.
func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, type, message, metadata, dedupe_key, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var metadata []byte
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Message,
			&metadata,
			&n.DedupeKey,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode notification metadata: %w", err)
			}
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}

	return notifications, nil
}

// MarkRead implements store.NotificationStore.MarkRead.
func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotificationNotFound
	}

	return nil
}

// WithTx implements store.NotificationStore.WithTx.
func (s *NotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &NotificationStore{db: tx}
}
