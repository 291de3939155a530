package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/google/uuid"
)

// ProjectStore persists projects and memberships
type ProjectStore interface {
	MembershipLookup
	Create(ctx context.Context, project *models.Project, ownerID string) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Project, error)
	Rename(ctx context.Context, id, name string) (*models.Project, error)
	Delete(ctx context.Context, id string) error
	ListMembers(ctx context.Context, projectID string) ([]*models.ProjectMember, error)
	UpsertMember(ctx context.Context, projectID, userID string, role models.Role) error
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// UserLookup resolves users by name
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AddMemberRequest is the body of POST /projects/:id/members
type AddMemberRequest struct {
	Username string      `json:"username" validate:"required"`
	Role     models.Role `json:"role" validate:"required"`
}

// ProjectService manages projects and their members
type ProjectService struct {
	store ProjectStore
	users UserLookup
	authz *Authorizer
	audit *AuditService
	log   *logger.Logger
}

// NewProjectService creates a project service
func NewProjectService(store ProjectStore, users UserLookup, authz *Authorizer, audit *AuditService, log *logger.Logger) *ProjectService {
	return &ProjectService{store: store, users: users, authz: authz, audit: audit, log: log}
}

// Create makes a project with the caller as its Admin
func (s *ProjectService) Create(ctx context.Context, subject *models.User, name string) (*models.Project, error) {
	if err := s.authz.Authorize(ctx, subject, Global, CapEdit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, Unprocessable("name is required")
	}

	project := &models.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, project, subject.ID); err != nil {
		return nil, err
	}

	s.log.WithProjectID(project.ID).Info("created project", "name", name, "owner", subject.ID)
	s.audit.LogEvent(ctx, &subject.ID, "project_create", "project", &project.ID, map[string]interface{}{"name": name})
	return project, nil
}

// List returns all projects for a global Admin and the caller's memberships otherwise
func (s *ProjectService) List(ctx context.Context, subject *models.User) ([]*models.Project, error) {
	if subject.Role == models.RoleAdmin {
		return s.store.List(ctx)
	}
	return s.store.ListForUser(ctx, subject.ID)
}

// Get returns a project the caller can view
func (s *ProjectService) Get(ctx context.Context, subject *models.User, id string) (*models.Project, error) {
	project, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Project")
	}
	if err := s.authz.Authorize(ctx, subject, Project(id), CapView); err != nil {
		return nil, err
	}
	return project, nil
}

// Rename changes a project's name
func (s *ProjectService) Rename(ctx context.Context, subject *models.User, id, name string) (*models.Project, error) {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, subject, Project(id), CapAdminister); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, Unprocessable("name is required")
	}

	project, err := s.store.Rename(ctx, id, name)
	if err != nil {
		return nil, notFoundOr(err, "Project")
	}

	s.audit.LogEvent(ctx, &subject.ID, "project_update", "project", &id, map[string]interface{}{"name": name})
	return project, nil
}

// Delete removes a project and everything scoped to it
func (s *ProjectService) Delete(ctx context.Context, subject *models.User, id string) error {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, subject, Project(id), CapAdminister); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Project")
	}

	s.log.WithProjectID(id).Info("deleted project")
	s.audit.LogEvent(ctx, &subject.ID, "project_delete", "project", &id, nil)
	return nil
}

// Members lists a project's members
func (s *ProjectService) Members(ctx context.Context, subject *models.User, id string) ([]*models.ProjectMember, error) {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, id)
}

// AddMember adds a user to a project or changes their role
func (s *ProjectService) AddMember(ctx context.Context, subject *models.User, id string, req *AddMemberRequest) error {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, subject, Project(id), CapAdminister); err != nil {
		return err
	}
	if !req.Role.Valid() {
		return Unprocessable("role must be Admin, Editor or Viewer")
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, commonrepo.ErrNotFound) {
			return NotFound("User")
		}
		return err
	}

	if err := s.store.UpsertMember(ctx, id, user.ID, req.Role); err != nil {
		return err
	}

	s.audit.LogEvent(ctx, &subject.ID, "member_upsert", "project", &id, map[string]interface{}{
		"user_id": user.ID,
		"role":    string(req.Role),
	})
	return nil
}

// RemoveMember removes a user from a project
func (s *ProjectService) RemoveMember(ctx context.Context, subject *models.User, id, userID string) error {
	if _, err := s.Get(ctx, subject, id); err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, subject, Project(id), CapAdminister); err != nil {
		return err
	}

	if err := s.store.RemoveMember(ctx, id, userID); err != nil {
		return err
	}

	s.audit.LogEvent(ctx, &subject.ID, "member_remove", "project", &id, map[string]interface{}{"user_id": userID})
	return nil
}
