package repository

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/db"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/jackc/pgx/v5"
)

const datasetColumns = `id, project_id, uri, type, size_bytes, md5, owner_user_id, created_at`

// DatasetRepository handles database operations for datasets
type DatasetRepository struct {
	db *db.DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(database *db.DB) *DatasetRepository {
	return &DatasetRepository{db: database}
}

// Create inserts a dataset
func (r *DatasetRepository) Create(ctx context.Context, d *models.Dataset) error {
	query := `
		INSERT INTO datasets (` + datasetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		d.ID,
		d.ProjectID,
		d.URI,
		d.Type,
		d.SizeBytes,
		d.MD5,
		d.OwnerUserID,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", commonrepo.Translate(err))
	}

	return nil
}

// GetByID retrieves a dataset by id
func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*models.Dataset, error) {
	d, err := scanDataset(r.db.QueryRow(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", commonrepo.Translate(err))
	}
	return d, nil
}

// ListByProject returns a project's datasets, newest first
func (r *DatasetRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE project_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDataset(row pgx.Row) (*models.Dataset, error) {
	d := &models.Dataset{}
	err := row.Scan(
		&d.ID,
		&d.ProjectID,
		&d.URI,
		&d.Type,
		&d.SizeBytes,
		&d.MD5,
		&d.OwnerUserID,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
