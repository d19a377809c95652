package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/queue/handlers"
	"github.com/crewboard/crewboard-api/internal/store"
)

// bcryptCost balances hashing strength against login latency.
const bcryptCost = 12

// UserService handles account registration and profile mutations.
type UserService struct {
	users       store.UserStore
	projects    store.ProjectStore
	invalidator *cache.Invalidator
	jobs        *queue.Client
	logger      *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	users store.UserStore,
	projects store.ProjectStore,
	invalidator *cache.Invalidator,
	jobs *queue.Client,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:       users,
		projects:    projects,
		invalidator: invalidator,
		jobs:        jobs,
		logger:      logger.With("component", "user_service"),
	}
}

// Register creates an account and enqueues the welcome email.
func (s *UserService) Register(ctx context.Context, email, displayName, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, displayName, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = string(hashed)
	user.Password = ""

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	enqueueJob(ctx, s.jobs, s.logger, handlers.TypeWelcomeEmail,
		&handlers.WelcomeEmailPayload{UserID: user.ID})

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes a user's display name and invalidates every cache
// entry that could show the old one, including the member lists of the
// projects the user belongs to.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, displayName string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve user: %w", err)
	}

	user.DisplayName = displayName
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	projects, err := s.projects.ListByMember(ctx, userID)
	if err != nil {
		s.logger.Warn("could not list member projects for invalidation; dropping user key only",
			"user_id", userID,
			"error", err)
	}
	projectIDs := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}
	s.invalidator.User(ctx, userID, projectIDs...)

	return nil
}

// ChangePassword rotates the password and drops the user's session so old
// credentials stop working everywhere at once.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if len(newPassword) < 12 {
		return domain.ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.HashedPassword = string(hashed)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.invalidator.Session(ctx, userID)
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// enqueueJob records a side-effect job; enqueue failures are logged and do
// not fail the mutation that already committed. The next mutation of the
// same entity re-enqueues the recomputation, so the loss is bounded.
func enqueueJob(
	ctx context.Context,
	jobs *queue.Client,
	logger *slog.Logger,
	jobType string,
	payload any,
	opts ...queue.EnqueueOption,
) {
	if _, err := jobs.Enqueue(ctx, jobType, payload, opts...); err != nil {
		logger.Error("failed to enqueue job",
			"job_type", jobType,
			"error", err)
	}
}
