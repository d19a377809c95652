package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInvalidateUser(t *testing.T) {
	c := newFakeCache()
	inv := NewInvalidator(c)
	userID := uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	inv.User(context.Background(), userID, p1, p2)

	assert.ElementsMatch(t, []string{
		UserKey(userID),
		ProjectMembersKey(p1),
		ProjectMembersKey(p2),
	}, c.deleted)
}

func TestInvalidateProject(t *testing.T) {
	c := newFakeCache()
	inv := NewInvalidator(c)
	projectID := uuid.New()

	inv.Project(context.Background(), projectID)

	assert.ElementsMatch(t, []string{
		ProjectKey(projectID),
		ProjectMembersKey(projectID),
		ProjectStatsKey(projectID),
	}, c.deleted)
}

func TestInvalidateTask(t *testing.T) {
	c := newFakeCache()
	inv := NewInvalidator(c)
	taskID, projectID := uuid.New(), uuid.New()

	inv.Task(context.Background(), taskID, projectID)

	assert.ElementsMatch(t, []string{
		TaskKey(taskID),
		TaskCommentsKey(taskID),
		ProjectKey(projectID),
		ProjectStatsKey(projectID),
	}, c.deleted)
}

func TestInvalidateComment(t *testing.T) {
	c := newFakeCache()
	inv := NewInvalidator(c)
	taskID, projectID := uuid.New(), uuid.New()

	inv.Comment(context.Background(), taskID, projectID)

	assert.ElementsMatch(t, []string{
		TaskCommentsKey(taskID),
		ProjectStatsKey(projectID),
	}, c.deleted)
}

func TestInvalidateSessionLeavesEntitiesAlone(t *testing.T) {
	c := newFakeCache()
	inv := NewInvalidator(c)
	userID := uuid.New()

	inv.Session(context.Background(), userID)

	assert.Equal(t, []string{SessionKey(userID)}, c.deleted)
}

func TestInvalidationCausesMissThenRepopulation(t *testing.T) {
	c := newFakeCache()
	inv := NewInvalidator(c)
	projectID := uuid.New()
	ctx := context.Background()

	c.entries[ProjectKey(projectID)] = []byte("stale")

	inv.Project(ctx, projectID)

	value, err := GetOrCompute(ctx, c, ProjectKey(projectID), EntityTTL,
		func(ctx context.Context) ([]byte, error) {
			return []byte("fresh"), nil
		})
	assert.NoError(t, err)
	assert.Equal(t, []byte("fresh"), value, "read after invalidation sees the fresh value")
	assert.Equal(t, []byte("fresh"), c.entries[ProjectKey(projectID)])
}
