package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Project validation errors
var (
	ErrEmptyProjectID    = errors.New("project ID cannot be empty")
	ErrEmptyProjectName  = errors.New("project name cannot be empty")
	ErrProjectNameTooLong = errors.New("project name must be at most 120 characters long")
	ErrEmptyProjectOwner = errors.New("project owner cannot be empty")
	ErrInvalidRole       = errors.New("invalid membership role")
)

// Role describes what a member may do inside a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ValidRole reports whether r is one of the defined membership roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Project groups tasks and members under a single owner.
type Project struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject creates a new Project owned by ownerID.
func NewProject(ownerID uuid.UUID, name, description string) (*Project, error) {
	project := &Project{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := project.Validate(); err != nil {
		return nil, err
	}

	return project, nil
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProjectID
	}
	if p.OwnerID == uuid.Nil {
		return ErrEmptyProjectOwner
	}
	if p.Name == "" {
		return ErrEmptyProjectName
	}
	if len(p.Name) > 120 {
		return ErrProjectNameTooLong
	}
	return nil
}

// Membership links a user to a project with a role.
type Membership struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMembership creates a membership after validating the role.
func NewMembership(projectID, userID uuid.UUID, role Role) (*Membership, error) {
	if projectID == uuid.Nil {
		return nil, ErrEmptyProjectID
	}
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}

	return &Membership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}, nil
}
