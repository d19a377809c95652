package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/store"
)

// TypeCreateNotification is the job type tag for in-app notification
// creation.
const TypeCreateNotification = "create_notification"

// CreateNotificationPayload describes one in-app notification. DedupeKey
// must be deterministic for the triggering event (e.g. built from the
// entity ids involved) so redelivery collapses into a single row.
type CreateNotificationPayload struct {
	UserID    uuid.UUID         `json:"user_id"    validate:"required"`
	Kind      string            `json:"kind"       validate:"required"`
	Message   string            `json:"message"    validate:"required"`
	DedupeKey string            `json:"dedupe_key" validate:"required"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NotificationHandler writes in-app notifications.
type NotificationHandler struct {
	notifications store.NotificationStore
}

var _ queue.Handler = (*NotificationHandler)(nil)

// NewNotificationHandler creates the handler.
func NewNotificationHandler(notifications store.NotificationStore) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) Type() string { return TypeCreateNotification }

func (h *NotificationHandler) Queue() string { return queue.QueueNotifications }

func (h *NotificationHandler) NewPayload() any { return &CreateNotificationPayload{} }

// Handle upserts the notification keyed by DedupeKey; running twice stores
// one row.
func (h *NotificationHandler) Handle(ctx context.Context, payload any) (string, error) {
	p := payload.(*CreateNotificationPayload)

	n, err := domain.NewNotification(p.UserID, p.Kind, p.Message, p.DedupeKey)
	if err != nil {
		return "", fmt.Errorf("build notification: %w", err)
	}
	n.Metadata = p.Metadata

	if err := h.notifications.Upsert(ctx, n); err != nil {
		return "", fmt.Errorf("store notification: %w", err)
	}

	return "notification stored for " + p.UserID.String(), nil
}
