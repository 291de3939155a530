package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/genomeai/platform/common/validation"
	"github.com/google/uuid"
)

// ReferenceStore persists reference sets
type ReferenceStore interface {
	Create(ctx context.Context, ref *models.ReferenceSet) error
	GetByID(ctx context.Context, id string) (*models.ReferenceSet, error)
	List(ctx context.Context) ([]*models.ReferenceSet, error)
	Update(ctx context.Context, ref *models.ReferenceSet) error
	Delete(ctx context.Context, id string) error
}

// CreateReferenceRequest is the body of POST /references
type CreateReferenceRequest struct {
	Name        string                          `json:"name" validate:"required"`
	GenomeBuild models.GenomeBuild              `json:"genome_build" validate:"required"`
	Components  []validation.ReferenceComponent `json:"components" validate:"dive"`
}

// UpdateReferenceRequest is the body of PATCH /references/:id
type UpdateReferenceRequest struct {
	Name       *string                          `json:"name"`
	Components *[]validation.ReferenceComponent `json:"components"`
}

// ReferenceService manages reference sets and their completeness
type ReferenceService struct {
	store ReferenceStore
	authz *Authorizer
	audit *AuditService
	log   *logger.Logger
}

// NewReferenceService creates a reference service
func NewReferenceService(store ReferenceStore, authz *Authorizer, audit *AuditService, log *logger.Logger) *ReferenceService {
	return &ReferenceService{store: store, authz: authz, audit: audit, log: log}
}

func checkComponents(components []validation.ReferenceComponent) error {
	for _, c := range components {
		if !c.Role.Valid() {
			return Unprocessable(fmt.Sprintf("Unknown component role %q", c.Role))
		}
		if strings.TrimSpace(c.URI) == "" {
			return Unprocessable("Component uri is required")
		}
		if c.MD5 != nil && *c.MD5 != "" && !validation.IsValidMD5(*c.MD5) {
			return Unprocessable("Component md5 must be 32 hex characters")
		}
	}
	return nil
}

// Create stores a new reference set with its derived completeness
func (s *ReferenceService) Create(ctx context.Context, subject *models.User, req *CreateReferenceRequest) (*models.ReferenceSet, error) {
	if err := s.authz.Authorize(ctx, subject, Global, CapEdit); err != nil {
		return nil, err
	}
	if !req.GenomeBuild.Valid() {
		return nil, Unprocessable(fmt.Sprintf("Unsupported genome build %q", req.GenomeBuild))
	}
	if err := checkComponents(req.Components); err != nil {
		return nil, err
	}

	components := req.Components
	if components == nil {
		components = []validation.ReferenceComponent{}
	}

	ref := &models.ReferenceSet{
		ID:          uuid.NewString(),
		Name:        req.Name,
		GenomeBuild: req.GenomeBuild,
		Components:  components,
		IsComplete:  validation.EvaluateComplete(components),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.Create(ctx, ref); err != nil {
		return nil, err
	}

	s.log.Info("created reference set", "reference_set_id", ref.ID, "is_complete", ref.IsComplete)
	s.audit.LogEvent(ctx, &subject.ID, "reference_create", "reference_set", &ref.ID, map[string]interface{}{
		"name":        ref.Name,
		"is_complete": ref.IsComplete,
	})

	return ref, nil
}

// Get returns one reference set
func (s *ReferenceService) Get(ctx context.Context, id string) (*models.ReferenceSet, error) {
	ref, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Reference set")
	}
	return ref, nil
}

// List returns all reference sets, newest first
func (s *ReferenceService) List(ctx context.Context) ([]*models.ReferenceSet, error) {
	return s.store.List(ctx)
}

// Update changes name and/or components and recomputes completeness
func (s *ReferenceService) Update(ctx context.Context, subject *models.User, id string, req *UpdateReferenceRequest) (*models.ReferenceSet, error) {
	if err := s.authz.Authorize(ctx, subject, Global, CapEdit); err != nil {
		return nil, err
	}

	ref, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		ref.Name = *req.Name
	}
	if req.Components != nil {
		if err := checkComponents(*req.Components); err != nil {
			return nil, err
		}
		ref.Components = *req.Components
	}
	ref.IsComplete = validation.EvaluateComplete(ref.Components)

	if err := s.store.Update(ctx, ref); err != nil {
		return nil, notFoundOr(err, "Reference set")
	}

	s.audit.LogEvent(ctx, &subject.ID, "reference_update", "reference_set", &ref.ID, map[string]interface{}{
		"is_complete": ref.IsComplete,
	})
	return ref, nil
}

// Delete removes a reference set not referenced by any run
func (s *ReferenceService) Delete(ctx context.Context, subject *models.User, id string) error {
	if err := s.authz.Authorize(ctx, subject, Global, CapEdit); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, commonrepo.ErrConflict) {
			return Conflict("Reference set is used by runs")
		}
		return notFoundOr(err, "Reference set")
	}

	s.audit.LogEvent(ctx, &subject.ID, "reference_delete", "reference_set", &id, nil)
	return nil
}
