package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/platform/logger"
)

// Invalidation is coarse and conservative: each mutation deletes every key
// that could now be stale, preferring a slightly larger delete set over a
// stale read. The mapping from entity kind to dependent keys is static and
// lives entirely in this file; services call these methods synchronously,
// after the store write commits and before returning to the caller.
//
// Cache errors during invalidation are logged and swallowed: the entry TTL
// bounds how long a stale value can survive an unreachable cache.

// Invalidator deletes the cache keys dependent on a mutated entity.
type Invalidator struct {
	cache Cache
}

// NewInvalidator creates an Invalidator over c.
func NewInvalidator(c Cache) *Invalidator {
	return &Invalidator{cache: c}
}

// User drops the keys derived from a user row, plus the member-list caches
// of every project the user belongs to (display name changes surface there).
func (i *Invalidator) User(ctx context.Context, userID uuid.UUID, projectIDs ...uuid.UUID) {
	keys := []string{UserKey(userID)}
	for _, pid := range projectIDs {
		keys = append(keys, ProjectMembersKey(pid))
	}
	i.delete(ctx, keys...)
}

// Project drops the project entry itself along with its member-list and
// stats caches. Membership changes route through here too.
func (i *Invalidator) Project(ctx context.Context, projectID uuid.UUID) {
	i.delete(ctx,
		ProjectKey(projectID),
		ProjectMembersKey(projectID),
		ProjectStatsKey(projectID),
	)
}

// Task drops the task entry, its comment list, and the parent project's
// entry and stats (task counts and rollups hang off the project).
func (i *Invalidator) Task(ctx context.Context, taskID, projectID uuid.UUID) {
	i.delete(ctx,
		TaskKey(taskID),
		TaskCommentsKey(taskID),
		ProjectKey(projectID),
		ProjectStatsKey(projectID),
	)
}

// Comment drops the owning task's comment list and the project stats that
// count comments.
func (i *Invalidator) Comment(ctx context.Context, taskID, projectID uuid.UUID) {
	i.delete(ctx,
		TaskCommentsKey(taskID),
		ProjectStatsKey(projectID),
	)
}

// Session drops a user's session entry. Invoked on logout and password
// change only; entity mutations never touch sessions.
func (i *Invalidator) Session(ctx context.Context, userID uuid.UUID) {
	i.delete(ctx, SessionKey(userID))
}

func (i *Invalidator) delete(ctx context.Context, keys ...string) {
	if err := i.cache.Delete(ctx, keys...); err != nil {
		logger.FromContext(ctx).Warn("cache invalidation failed",
			"keys", keys,
			"error", err)
	}
}
