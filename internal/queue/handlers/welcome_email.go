package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/notify"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/store"
)

// TypeWelcomeEmail is the job type tag for welcome email delivery.
const TypeWelcomeEmail = "send_welcome_email"

// welcomeEmailSentTTL bounds the dedup marker that makes delivery a set
// operation rather than an append.
const welcomeEmailSentTTL = 7 * 24 * time.Hour

// WelcomeEmailPayload identifies the recipient.
type WelcomeEmailPayload struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// WelcomeEmailHandler sends the post-registration email.
type WelcomeEmailHandler struct {
	users  store.UserStore
	sender notify.EmailSender
	cache  cache.Cache
}

var _ queue.Handler = (*WelcomeEmailHandler)(nil)

// NewWelcomeEmailHandler creates the handler.
func NewWelcomeEmailHandler(users store.UserStore, sender notify.EmailSender, c cache.Cache) *WelcomeEmailHandler {
	return &WelcomeEmailHandler{
		users:  users,
		sender: sender,
		cache:  c,
	}
}

func (h *WelcomeEmailHandler) Type() string { return TypeWelcomeEmail }

func (h *WelcomeEmailHandler) Queue() string { return queue.QueueEmails }

func (h *WelcomeEmailHandler) NewPayload() any { return &WelcomeEmailPayload{} }

// Handle sends the welcome email once per user. A SetIfAbsent marker claims
// delivery before sending, so a redelivered job skips instead of mailing
// twice; a failed send releases the marker for the retry.
func (h *WelcomeEmailHandler) Handle(ctx context.Context, payload any) (string, error) {
	p := payload.(*WelcomeEmailPayload)

	user, err := h.users.GetByID(ctx, p.UserID)
	if err != nil {
		if store.IsNotFound(err) {
			// The account is gone; nothing left to welcome.
			return "user no longer exists", nil
		}
		return "", fmt.Errorf("load user %s: %w", p.UserID, err)
	}

	marker := "sent:welcome-email:" + p.UserID.String()
	claimed, err := h.cache.SetIfAbsent(ctx, marker, []byte("1"), welcomeEmailSentTTL)
	if err == nil && !claimed {
		return "already sent", nil
	}

	subject := "Welcome to Crewboard"
	body := fmt.Sprintf("Hi %s,\n\nYour account is ready. Create a project and invite your crew.\n", user.DisplayName)
	if err := h.sender.Send(ctx, user.Email, subject, body); err != nil {
		// Release the marker so the retry is allowed to send.
		_ = h.cache.Delete(ctx, marker)
		return "", fmt.Errorf("send welcome email: %w", err)
	}

	return "sent to " + user.Email, nil
}
