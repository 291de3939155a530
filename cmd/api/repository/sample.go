package repository

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/db"
	commonrepo "github.com/genomeai/platform/common/repository"
)

// SampleRepository handles database operations for samples
type SampleRepository struct {
	db *db.DB
}

// NewSampleRepository creates a new sample repository
func NewSampleRepository(database *db.DB) *SampleRepository {
	return &SampleRepository{db: database}
}

// Create inserts a sample
func (r *SampleRepository) Create(ctx context.Context, s *models.Sample) error {
	query := `
		INSERT INTO samples (id, project_id, name, r1_dataset_id, r2_dataset_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.ProjectID,
		s.Name,
		s.R1DatasetID,
		s.R2DatasetID,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sample: %w", commonrepo.Translate(err))
	}

	return nil
}

// GetByIDs resolves sample ids. Missing ids are simply absent from the result.
func (r *SampleRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Sample, error) {
	query := `
		SELECT id, project_id, name, r1_dataset_id, r2_dataset_id, created_at
		FROM samples
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Sample, 0, len(ids))
	for rows.Next() {
		s := &models.Sample{}
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.R1DatasetID, &s.R2DatasetID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByProject returns a project's samples with read URIs, newest first
func (r *SampleRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Sample, error) {
	query := `
		SELECT s.id, s.project_id, s.name, s.r1_dataset_id, s.r2_dataset_id, s.created_at,
			d1.uri, d2.uri
		FROM samples s
		JOIN datasets d1 ON d1.id = s.r1_dataset_id
		JOIN datasets d2 ON d2.id = s.r2_dataset_id
		WHERE s.project_id = $1
		ORDER BY s.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Sample, 0)
	for rows.Next() {
		s := &models.Sample{}
		err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.R1DatasetID, &s.R2DatasetID, &s.CreatedAt,
			&s.R1URI, &s.R2URI)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
