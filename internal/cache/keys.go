package cache

import (
	"time"

	"github.com/google/uuid"
)

// Entry lifetimes. Session entries live independently of entity entries:
// a session survives entity churn and is only dropped on logout or
// password change.
const (
	EntityTTL  = 30 * time.Minute
	StatsTTL   = 10 * time.Minute
	SessionTTL = 24 * time.Hour
)

// Key builders. Every cached value is addressed by one of these namespaced
// keys; the invalidation table below is written in terms of them.

func UserKey(id uuid.UUID) string { return "user:" + id.String() }

func SessionKey(userID uuid.UUID) string { return "session:" + userID.String() }

func ProjectKey(id uuid.UUID) string { return "project:" + id.String() }

func ProjectMembersKey(id uuid.UUID) string { return "project:" + id.String() + ":members" }

func ProjectStatsKey(id uuid.UUID) string { return "project:" + id.String() + ":stats" }

func TaskKey(id uuid.UUID) string { return "task:" + id.String() }

func TaskCommentsKey(id uuid.UUID) string { return "task:" + id.String() + ":comments" }

func TaskViewsKey(id uuid.UUID) string { return "task:" + id.String() + ":views" }
