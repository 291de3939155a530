package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/google/uuid"
)

// SampleStore persists samples
type SampleStore interface {
	Create(ctx context.Context, s *models.Sample) error
	GetByIDs(ctx context.Context, ids []string) ([]*models.Sample, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Sample, error)
}

// CreateSampleRequest is the body of POST /samples
type CreateSampleRequest struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	R1DatasetID string `json:"r1_dataset_id" validate:"required"`
	R2DatasetID string `json:"r2_dataset_id" validate:"required"`
}

// SampleService manages read-pair samples
type SampleService struct {
	store    SampleStore
	datasets DatasetStore
	authz    *Authorizer
	audit    *AuditService
	log      *logger.Logger
}

// NewSampleService creates a sample service
func NewSampleService(store SampleStore, datasets DatasetStore, authz *Authorizer, audit *AuditService, log *logger.Logger) *SampleService {
	return &SampleService{store: store, datasets: datasets, authz: authz, audit: audit, log: log}
}

// Create pairs two FASTQ datasets of the same project
func (s *SampleService) Create(ctx context.Context, subject *models.User, req *CreateSampleRequest) (*models.Sample, error) {
	if err := s.authz.Authorize(ctx, subject, Project(req.ProjectID), CapEdit); err != nil {
		return nil, err
	}

	for _, id := range []string{req.R1DatasetID, req.R2DatasetID} {
		d, err := s.datasets.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, commonrepo.ErrNotFound) {
				return nil, Unprocessable("Datasets must exist in the same project")
			}
			return nil, err
		}
		if d.ProjectID != req.ProjectID {
			return nil, Unprocessable("Datasets must exist in the same project")
		}
		if !d.Type.IsFASTQ() {
			return nil, Unprocessable("Sample reads must be FASTQ or FASTQ.GZ datasets")
		}
	}

	sample := &models.Sample{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		R1DatasetID: req.R1DatasetID,
		R2DatasetID: req.R2DatasetID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, sample); err != nil {
		return nil, err
	}

	s.log.WithProjectID(req.ProjectID).Info("created sample", "sample_id", sample.ID, "name", sample.Name)
	s.audit.LogEvent(ctx, &subject.ID, "sample_create", "sample", &sample.ID, map[string]interface{}{
		"project_id": req.ProjectID,
		"name":       req.Name,
	})
	return sample, nil
}

// List returns a project's samples with their read URIs
func (s *SampleService) List(ctx context.Context, subject *models.User, projectID string) ([]*models.Sample, error) {
	if err := s.authz.Authorize(ctx, subject, Project(projectID), CapView); err != nil {
		return nil, err
	}
	return s.store.ListByProject(ctx, projectID)
}

// ExportCSV writes a sample,r1_uri,r2_uri sheet for a project
func (s *SampleService) ExportCSV(ctx context.Context, subject *models.User, projectID string, w io.Writer) error {
	samples, err := s.List(ctx, subject, projectID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sample", "r1_uri", "r2_uri"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, sm := range samples {
		if err := cw.Write([]string{sm.Name, sm.R1URI, sm.R2URI}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SamplesByIDs resolves the distinct ids in ids, in first-seen order.
// missing lists the ids that did not resolve.
func (s *SampleService) SamplesByIDs(ctx context.Context, ids []string) (found []*models.Sample, missing []string, err error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	rows, err := s.store.GetByIDs(ctx, unique)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]*models.Sample, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	for _, id := range unique {
		if sm, ok := byID[id]; ok {
			found = append(found, sm)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}
