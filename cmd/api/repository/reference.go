package repository

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/db"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/jackc/pgx/v5"
)

const referenceColumns = `id, name, genome_build, components, is_complete, created_at`

// ReferenceRepository handles database operations for reference sets
type ReferenceRepository struct {
	db *db.DB
}

// NewReferenceRepository creates a new reference set repository
func NewReferenceRepository(database *db.DB) *ReferenceRepository {
	return &ReferenceRepository{db: database}
}

// Create inserts a reference set
func (r *ReferenceRepository) Create(ctx context.Context, ref *models.ReferenceSet) error {
	query := `
		INSERT INTO reference_sets (` + referenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		ref.ID,
		ref.Name,
		ref.GenomeBuild,
		ref.Components,
		ref.IsComplete,
		ref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reference set: %w", commonrepo.Translate(err))
	}

	return nil
}

// GetByID retrieves a reference set by id
func (r *ReferenceRepository) GetByID(ctx context.Context, id string) (*models.ReferenceSet, error) {
	ref, err := scanReference(r.db.QueryRow(ctx, `SELECT `+referenceColumns+` FROM reference_sets WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get reference set: %w", commonrepo.Translate(err))
	}
	return ref, nil
}

// List returns every reference set, newest first
func (r *ReferenceRepository) List(ctx context.Context) ([]*models.ReferenceSet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+referenceColumns+` FROM reference_sets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference sets: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ReferenceSet, 0)
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference set: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Update writes name, components and the recomputed completeness flag
func (r *ReferenceRepository) Update(ctx context.Context, ref *models.ReferenceSet) error {
	query := `
		UPDATE reference_sets
		SET name = $2, components = $3, is_complete = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, ref.ID, ref.Name, ref.Components, ref.IsComplete)
	if err != nil {
		return fmt.Errorf("failed to update reference set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return commonrepo.ErrNotFound
	}
	return nil
}

// Delete removes a reference set
func (r *ReferenceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reference_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reference set: %w", commonrepo.Translate(err))
	}
	if tag.RowsAffected() == 0 {
		return commonrepo.ErrNotFound
	}
	return nil
}

func scanReference(row pgx.Row) (*models.ReferenceSet, error) {
	ref := &models.ReferenceSet{}
	err := row.Scan(
		&ref.ID,
		&ref.Name,
		&ref.GenomeBuild,
		&ref.Components,
		&ref.IsComplete,
		&ref.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ref, nil
}
