package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification validation errors
var (
	ErrEmptyNotificationID   = errors.New("notification ID cannot be empty")
	ErrEmptyNotificationType = errors.New("notification type cannot be empty")
)

// Notification is an in-app message delivered to a user. DedupeKey makes
// delivery a set operation: writing the same key twice stores one row.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	DedupeKey string            `json:"dedupe_key"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewNotification creates an unread notification for userID.
func NewNotification(userID uuid.UUID, kind, message, dedupeKey string) (*Notification, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if kind == "" {
		return nil, ErrEmptyNotificationType
	}

	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Message:   message,
		DedupeKey: dedupeKey,
		CreatedAt: time.Now().UTC(),
	}, nil
}
