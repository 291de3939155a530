package repository

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/db"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/jackc/pgx/v5"
)

const workflowColumns = `id, name, version, engine, repo, revision, git_sha, lock,
	dispatch_target, dispatch_payload, created_at`

// WorkflowRepository handles database operations for imported workflows
type WorkflowRepository struct {
	db *db.DB
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(database *db.DB) *WorkflowRepository {
	return &WorkflowRepository{db: database}
}

// Create inserts a workflow. Workflows are never updated.
func (r *WorkflowRepository) Create(ctx context.Context, wf *models.Workflow) error {
	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if wf.DispatchPayload == nil {
		wf.DispatchPayload = map[string]interface{}{}
	}

	_, err := r.db.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.Version,
		wf.Engine,
		wf.Repo,
		wf.Revision,
		wf.GitSHA,
		wf.Lock,
		wf.DispatchTarget,
		wf.DispatchPayload,
		wf.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", commonrepo.Translate(err))
	}

	return nil
}

// GetByID retrieves a workflow by id
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := scanWorkflow(r.db.QueryRow(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", commonrepo.Translate(err))
	}
	return wf, nil
}

// List returns every workflow, newest first
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Workflow, 0)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	wf := &models.Workflow{}
	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Version,
		&wf.Engine,
		&wf.Repo,
		&wf.Revision,
		&wf.GitSHA,
		&wf.Lock,
		&wf.DispatchTarget,
		&wf.DispatchPayload,
		&wf.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return wf, nil
}
