package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/queue/handlers"
	"github.com/crewboard/crewboard-api/internal/store"
)

// ProjectService handles project and membership mutations and cached reads.
type ProjectService struct {
	projects    store.ProjectStore
	stats       store.StatsStore
	cache       cache.Cache
	invalidator *cache.Invalidator
	jobs        *queue.Client
	logger      *slog.Logger
}

// NewProjectService creates a ProjectService.
func NewProjectService(
	projects store.ProjectStore,
	stats store.StatsStore,
	c cache.Cache,
	invalidator *cache.Invalidator,
	jobs *queue.Client,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects:    projects,
		stats:       stats,
		cache:       c,
		invalidator: invalidator,
		jobs:        jobs,
		logger:      logger.With("component", "project_service"),
	}
}

// Create saves a new project (recording the owner membership) and kicks off
// the first stats rollup.
func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, name, description string) (*domain.Project, error) {
	project, err := domain.NewProject(ownerID, name, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.invalidator.Project(ctx, project.ID)
	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeUpdateProjectStats,
		&handlers.UpdateProjectStatsPayload{ProjectID: project.ID})

	s.logger.Info("project created", "project_id", project.ID, "owner_id", ownerID)
	return project, nil
}

// Get returns a project, served from cache when warm.
func (s *ProjectService) Get(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	raw, err := cache.GetOrCompute(ctx, s.cache, cache.ProjectKey(projectID), cache.EntityTTL,
		func(ctx context.Context) ([]byte, error) {
			project, err := s.projects.GetByID(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(project)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project: %w", err)
	}

	var project domain.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, fmt.Errorf("malformed cached project %s: %w", projectID, err)
	}
	return &project, nil
}

// Update renames or re-describes a project.
func (s *ProjectService) Update(ctx context.Context, projectID uuid.UUID, name, description string) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to retrieve project: %w", err)
	}

	project.Name = name
	project.Description = description
	if err := project.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if err := s.projects.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	s.invalidator.Project(ctx, projectID)
	return nil
}

// Archive marks a project read-only.
func (s *ProjectService) Archive(ctx context.Context, projectID uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to retrieve project: %w", err)
	}

	project.Archived = true
	if err := s.projects.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}

	s.invalidator.Project(ctx, projectID)
	return nil
}

// Delete removes a project, its memberships and its stored stats.
func (s *ProjectService) Delete(ctx context.Context, projectID uuid.UUID) error {
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if err := s.stats.Delete(ctx, projectID); err != nil {
		s.logger.Warn("failed to delete project stats row", "project_id", projectID, "error", err)
	}

	s.invalidator.Project(ctx, projectID)
	s.logger.Info("project deleted", "project_id", projectID)
	return nil
}

// AddMember grants a user a role on the project and notifies them.
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID uuid.UUID, role domain.Role) error {
	membership, err := domain.NewMembership(projectID, userID, role)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if err := s.projects.AddMember(ctx, membership); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	s.invalidator.Project(ctx, projectID)
	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeCreateNotification,
		&handlers.CreateNotificationPayload{
			UserID:    userID,
			Kind:      "member_added",
			Message:   "You were added to a project",
			DedupeKey: fmt.Sprintf("member-added:%s:%s", projectID, userID),
			Metadata:  map[string]string{"project_id": projectID.String()},
		})

	return nil
}

// RemoveMember revokes a user's membership.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.invalidator.Project(ctx, projectID)
	return nil
}

// Members returns a project's member list, served from cache when warm.
func (s *ProjectService) Members(ctx context.Context, projectID uuid.UUID) ([]*domain.Membership, error) {
	raw, err := cache.GetOrCompute(ctx, s.cache, cache.ProjectMembersKey(projectID), cache.EntityTTL,
		func(ctx context.Context) ([]byte, error) {
			members, err := s.projects.ListMembers(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(members)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	var members []*domain.Membership
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("malformed cached member list for %s: %w", projectID, err)
	}
	return members, nil
}

// Stats returns the stored rollup for a project, served from cache when
// warm. A project with no rollup yet surfaces store.ErrStatsNotFound.
func (s *ProjectService) Stats(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStats, error) {
	raw, err := cache.GetOrCompute(ctx, s.cache, cache.ProjectStatsKey(projectID), cache.StatsTTL,
		func(ctx context.Context) ([]byte, error) {
			stats, err := s.stats.Get(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(stats)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project stats: %w", err)
	}

	var stats domain.ProjectStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("malformed cached stats for %s: %w", projectID, err)
	}
	return &stats, nil
}
