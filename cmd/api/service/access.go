package service

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
)

// Capability is what a subject wants to do to a resource
type Capability int

const (
	CapView Capability = iota + 1
	CapEdit
	CapAdminister
)

func (c Capability) String() string {
	switch c {
	case CapView:
		return "view"
	case CapEdit:
		return "edit"
	case CapAdminister:
		return "administer"
	default:
		return "unknown"
	}
}

// globalRank is the global role rank a capability requires on global resources
func (c Capability) globalRank() int {
	switch c {
	case CapView:
		return models.RoleViewer.Rank()
	case CapEdit:
		return models.RoleEditor.Rank()
	default:
		return models.RoleAdmin.Rank()
	}
}

// allowsMember reports whether a project member role grants c
func (c Capability) allowsMember(role models.Role) bool {
	switch c {
	case CapView:
		return role.Valid()
	case CapEdit:
		return role == models.RoleAdmin || role == models.RoleEditor
	case CapAdminister:
		return role == models.RoleAdmin
	default:
		return false
	}
}

// Resource is either global (zero value) or one project
type Resource struct {
	ProjectID string
}

// Global is the resource of global registries: workflows, references, audit
var Global = Resource{}

// Project scopes a check to one project
func Project(id string) Resource {
	return Resource{ProjectID: id}
}

// MembershipLookup resolves a user's role inside a project
type MembershipLookup interface {
	MemberRole(ctx context.Context, projectID, userID string) (models.Role, bool, error)
}

// Authorizer is the single capability check every service boundary consults
type Authorizer struct {
	members MembershipLookup
}

// NewAuthorizer creates an authorizer
func NewAuthorizer(members MembershipLookup) *Authorizer {
	return &Authorizer{members: members}
}

// Authorize returns nil if subject holds capability on resource, else a Forbidden error.
// A global Admin passes every check.
func (a *Authorizer) Authorize(ctx context.Context, subject *models.User, res Resource, capability Capability) error {
	if subject == nil {
		return Unauthorized("Not authenticated")
	}
	if subject.Role == models.RoleAdmin {
		return nil
	}

	if res.ProjectID == "" {
		if subject.Role.Rank() >= capability.globalRank() {
			return nil
		}
		return Forbidden("Insufficient role")
	}

	role, ok, err := a.members.MemberRole(ctx, res.ProjectID, subject.ID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return Forbidden("Not a project member")
	}
	if !capability.allowsMember(role) {
		return Forbidden(fmt.Sprintf("Project role %s cannot %s", role, capability))
	}
	return nil
}
