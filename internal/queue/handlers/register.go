package handlers

import (
	"fmt"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/notify"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/store"
)

// Deps bundles everything the handler set needs.
type Deps struct {
	Users         store.UserStore
	Tasks         store.TaskStore
	Comments      store.CommentStore
	Stats         store.StatsStore
	Notifications store.NotificationStore
	Cache         cache.Cache
	Email         notify.EmailSender
}

// RegisterAll wires the five application handlers into the registry.
func RegisterAll(registry *queue.Registry, deps Deps) error {
	all := []queue.Handler{
		NewWelcomeEmailHandler(deps.Users, deps.Email, deps.Cache),
		NewNotificationHandler(deps.Notifications),
		NewAttachmentHandler(deps.Tasks),
		NewStatsHandler(deps.Tasks, deps.Comments, deps.Stats, deps.Cache),
		NewCleanupHandler(deps.Comments, deps.Tasks, deps.Cache),
	}
	for _, h := range all {
		if err := registry.Register(h); err != nil {
			return fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	return nil
}
