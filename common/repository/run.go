package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/genomeai/platform/common/db"
	"github.com/genomeai/platform/common/models"
	"github.com/jackc/pgx/v5"
)

const runColumns = `id, project_id, workflow_id, reference_set_id, sample_ids, params, compute_profile,
	runner_job_id, status, artifacts, created_by, created_at, finished_at`

// Transitions out of a non-terminal state are guarded on the current status,
// so the run id doubles as the idempotency key.
const openStatuses = `status IN ('Queued', 'Running')`

// RunRepository handles database operations for analysis runs
type RunRepository struct {
	db *db.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(database *db.DB) *RunRepository {
	return &RunRepository{db: database}
}

// Create inserts a run in Queued status
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO runs (id, project_id, workflow_id, reference_set_id, sample_ids, params,
			compute_profile, status, artifacts, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if run.SampleIDs == nil {
		run.SampleIDs = []string{}
	}
	if run.Params == nil {
		run.Params = map[string]interface{}{}
	}
	if run.Artifacts == nil {
		run.Artifacts = []string{}
	}
	run.Status = models.StatusQueued

	_, err := r.db.Exec(
		ctx,
		query,
		run.ID,
		run.ProjectID,
		run.WorkflowID,
		run.ReferenceSetID,
		run.SampleIDs,
		run.Params,
		run.ComputeProfile,
		run.Status,
		run.Artifacts,
		run.CreatedBy,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", Translate(err))
	}

	return nil
}

// GetByID retrieves a run by its ID
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", Translate(err))
	}

	return run, nil
}

// ListByProject retrieves a project's runs, newest first
func (r *RunRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE project_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// MarkRunning moves a Queued run to Running. Returns false if the run was not Queued.
func (r *RunRepository) MarkRunning(ctx context.Context, runID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE runs SET status = 'Running' WHERE id = $1 AND status = 'Queued'`,
		runID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark run running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Apply records the runner's terminal outcome in one statement.
// A run that is already terminal is returned unchanged with applied=false.
func (r *RunRepository) Apply(ctx context.Context, runID string, resp *models.RunnerResponse) (*models.Run, bool, error) {
	status := models.StatusFailed
	if resp.Succeeded() {
		status = models.StatusSucceeded
	}

	artifacts := resp.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}

	var jobID *string
	if resp.RunID != "" {
		jobID = &resp.RunID
	}

	query := `
		UPDATE runs
		SET runner_job_id = $2, status = $3, artifacts = $4, finished_at = now()
		WHERE id = $1 AND ` + openStatuses + `
		RETURNING ` + runColumns

	return r.transition(ctx, runID, query, runID, jobID, status, artifacts)
}

// Fail marks a non-terminal run Failed without a runner job id
func (r *RunRepository) Fail(ctx context.Context, runID string) (*models.Run, bool, error) {
	query := `
		UPDATE runs
		SET status = 'Failed', finished_at = now()
		WHERE id = $1 AND ` + openStatuses + `
		RETURNING ` + runColumns

	return r.transition(ctx, runID, query, runID)
}

func (r *RunRepository) transition(ctx context.Context, runID, query string, args ...interface{}) (*models.Run, bool, error) {
	run, err := scanRun(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return run, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to update run: %w", err)
	}

	// Either missing or already terminal
	current, err := r.GetByID(ctx, runID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// FailStale fails every non-terminal run created before cutoff and returns them
func (r *RunRepository) FailStale(ctx context.Context, cutoff time.Time) ([]*models.Run, error) {
	query := `
		UPDATE runs
		SET status = 'Failed', finished_at = now()
		WHERE ` + openStatuses + ` AND created_at < $1
		RETURNING ` + runColumns

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fail stale runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]*models.Run, error) {
	runs := make([]*models.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*models.Run, error) {
	run := &models.Run{}
	err := row.Scan(
		&run.ID,
		&run.ProjectID,
		&run.WorkflowID,
		&run.ReferenceSetID,
		&run.SampleIDs,
		&run.Params,
		&run.ComputeProfile,
		&run.RunnerJobID,
		&run.Status,
		&run.Artifacts,
		&run.CreatedBy,
		&run.CreatedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
