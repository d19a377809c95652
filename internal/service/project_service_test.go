package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/queue/handlers"
	"github.com/crewboard/crewboard-api/internal/store"
)

func TestProjectCreateRecordsOwnerAndQueuesStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()
	ownerID := uuid.New()

	project, err := svc.Create(ctx, ownerID, "Engine", "rebuild the engine")
	require.NoError(t, err)

	members, err := f.projects.ListMembers(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, ownerID, members[0].UserID)
	assert.Equal(t, domain.RoleOwner, members[0].Role)

	jobs := f.drain(t, queue.QueueAnalytics)
	require.Len(t, jobs, 1)
	assert.Equal(t, handlers.TypeUpdateProjectStats, jobs[0].Type)

	var payload handlers.UpdateProjectStatsPayload
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, project.ID, payload.ProjectID)
}

func TestProjectCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	svc := f.projectService()

	_, err := svc.Create(context.Background(), uuid.New(), "", "")
	require.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestProjectGetServesFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()

	project, err := svc.Create(ctx, uuid.New(), "Engine", "")
	require.NoError(t, err)

	warmed, err := svc.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, warmed.Name)

	// With the row gone the next read can only come from the cache.
	require.NoError(t, f.projects.Delete(ctx, project.ID))

	cached, err := svc.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, cached.ID)
	assert.Equal(t, project.Name, cached.Name)
}

func TestAddMemberNotifiesTheNewMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()

	project, err := svc.Create(ctx, uuid.New(), "Engine", "")
	require.NoError(t, err)
	f.drain(t, queue.QueueAnalytics)

	memberID := uuid.New()
	require.NoError(t, svc.AddMember(ctx, project.ID, memberID, domain.RoleMember))

	jobs := f.drain(t, queue.QueueNotifications)
	require.Len(t, jobs, 1)
	assert.Equal(t, handlers.TypeCreateNotification, jobs[0].Type)

	var payload handlers.CreateNotificationPayload
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, memberID, payload.UserID)
	assert.Equal(t, "member_added", payload.Kind)
	assert.Equal(t, fmt.Sprintf("member-added:%s:%s", project.ID, memberID), payload.DedupeKey)
}

func TestAddMemberRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()

	project, err := svc.Create(ctx, uuid.New(), "Engine", "")
	require.NoError(t, err)

	err = svc.AddMember(ctx, project.ID, uuid.New(), domain.Role("emperor"))
	require.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestProjectArchive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()

	project, err := svc.Create(ctx, uuid.New(), "Engine", "")
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, project.ID))

	stored, err := f.projects.GetByID(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, stored.Archived)
}

func TestProjectDeleteDropsCacheAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()

	project, err := svc.Create(ctx, uuid.New(), "Engine", "")
	require.NoError(t, err)

	require.NoError(t, f.stats.Upsert(ctx, &domain.ProjectStats{ProjectID: project.ID, TotalTasks: 3}))

	// Warm the entry, then make sure deletion drops it.
	_, err = svc.Get(ctx, project.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, project.ID))

	_, ok, err := f.cache.Get(ctx, cache.ProjectKey(project.ID))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Get(ctx, project.ID)
	require.Error(t, err)

	_, err = f.stats.Get(ctx, project.ID)
	require.ErrorIs(t, err, store.ErrStatsNotFound)
}

func TestProjectStatsServedFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.projectService()

	project, err := svc.Create(ctx, uuid.New(), "Engine", "")
	require.NoError(t, err)

	require.NoError(t, f.stats.Upsert(ctx, &domain.ProjectStats{
		ProjectID:      project.ID,
		TotalTasks:     10,
		CompletedTasks: 4,
		CommentCount:   5,
		ComputedAt:     time.Now().UTC(),
	}))

	stats, err := svc.Stats(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalTasks)
	assert.Equal(t, 4, stats.CompletedTasks)
	assert.Equal(t, 5, stats.CommentCount)

	// Rollup row gone, cached copy still serves.
	require.NoError(t, f.stats.Delete(ctx, project.ID))

	cached, err := svc.Stats(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, cached.TotalTasks)
}
