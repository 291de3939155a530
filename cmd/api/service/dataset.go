package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/genomeai/platform/common/storage"
	"github.com/genomeai/platform/common/validation"
	"github.com/google/uuid"
)

// DatasetStore persists datasets
type DatasetStore interface {
	Create(ctx context.Context, d *models.Dataset) error
	GetByID(ctx context.Context, id string) (*models.Dataset, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Dataset, error)
}

// RegisterDatasetRequest is the body of POST /datasets/register
type RegisterDatasetRequest struct {
	ProjectID string             `json:"project_id" validate:"required"`
	URI       string             `json:"uri" validate:"required"`
	Type      models.DatasetType `json:"type" validate:"required"`
	MD5       *string            `json:"md5"`
	SizeBytes *int64             `json:"size_bytes" validate:"omitempty,gte=0"`
}

// Upload is one streamed file
type Upload struct {
	ProjectID string
	Filename  string
	Size      int64
	Body      io.Reader
}

// DatasetService registers and uploads datasets
type DatasetService struct {
	store  DatasetStore
	blobs  storage.ObjectStore
	bucket string
	authz  *Authorizer
	audit  *AuditService
	log    *logger.Logger
}

// NewDatasetService creates a dataset service. blobs may be nil when uploads are disabled.
func NewDatasetService(store DatasetStore, blobs storage.ObjectStore, bucket string, authz *Authorizer, audit *AuditService, log *logger.Logger) *DatasetService {
	return &DatasetService{store: store, blobs: blobs, bucket: bucket, authz: authz, audit: audit, log: log}
}

// Register records a dataset that already lives in storage
func (s *DatasetService) Register(ctx context.Context, subject *models.User, req *RegisterDatasetRequest) (*models.Dataset, error) {
	if err := s.authz.Authorize(ctx, subject, Project(req.ProjectID), CapEdit); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, Unprocessable(fmt.Sprintf("Unknown dataset type %q", req.Type))
	}
	if req.MD5 != nil && *req.MD5 != "" && !validation.IsValidMD5(*req.MD5) {
		return nil, Unprocessable("md5 must be 32 hex characters")
	}

	d := &models.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		URI:         req.URI,
		Type:        req.Type,
		SizeBytes:   req.SizeBytes,
		MD5:         req.MD5,
		OwnerUserID: &subject.ID,
		CreatedAt:   time.Now().UTC(),
	}
	return d, s.create(ctx, subject, d, "dataset_register")
}

// Upload streams a FASTQ file to the datasets bucket, computing md5 and size on the way
func (s *DatasetService) Upload(ctx context.Context, subject *models.User, up *Upload) (*models.Dataset, error) {
	if err := s.authz.Authorize(ctx, subject, Project(up.ProjectID), CapEdit); err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, Unprocessable("Object storage is not configured")
	}

	name := path.Base(up.Filename)
	kind := models.DetectDatasetType(name)
	if !kind.IsFASTQ() {
		return nil, Unprocessable("Only FASTQ or FASTQ.GZ uploads are accepted")
	}

	key := up.ProjectID + "/" + name
	hasher := md5.New()
	counter := &countingReader{r: io.TeeReader(up.Body, hasher)}

	if err := s.blobs.Put(ctx, s.bucket, key, counter, up.Size, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("failed to upload dataset: %w", err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	size := counter.n

	d := &models.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   up.ProjectID,
		URI:         storage.URI(s.bucket, key),
		Type:        kind,
		SizeBytes:   &size,
		MD5:         &sum,
		OwnerUserID: &subject.ID,
		CreatedAt:   time.Now().UTC(),
	}
	return d, s.create(ctx, subject, d, "dataset_upload")
}

func (s *DatasetService) create(ctx context.Context, subject *models.User, d *models.Dataset, action string) error {
	if err := s.store.Create(ctx, d); err != nil {
		if errors.Is(err, commonrepo.ErrConflict) {
			return NotFound("Project")
		}
		return err
	}

	s.log.WithProjectID(d.ProjectID).Info("registered dataset", "dataset_id", d.ID, "uri", d.URI, "type", d.Type)
	s.audit.LogEvent(ctx, &subject.ID, action, "dataset", &d.ID, map[string]interface{}{
		"project_id": d.ProjectID,
		"uri":        d.URI,
		"type":       string(d.Type),
	})
	return nil
}

// List returns a project's datasets
func (s *DatasetService) List(ctx context.Context, subject *models.User, projectID string) ([]*models.Dataset, error) {
	if err := s.authz.Authorize(ctx, subject, Project(projectID), CapView); err != nil {
		return nil, err
	}
	return s.store.ListByProject(ctx, projectID)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
