package service

import (
	"context"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonmodels "github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/ratelimit"
	"github.com/genomeai/platform/common/telemetry"
	"github.com/google/uuid"
)

const defaultComputeProfile = "local-docker"

// RunStore persists runs
type RunStore interface {
	RunTransitions
	Create(ctx context.Context, run *commonmodels.Run) error
	GetByID(ctx context.Context, runID string) (*commonmodels.Run, error)
	ListByProject(ctx context.Context, projectID string) ([]*commonmodels.Run, error)
}

// Dispatcher calls the runner; clients.RunnerClient satisfies it
type Dispatcher interface {
	Dispatch(ctx context.Context, path string, body []byte) (*commonmodels.RunnerResponse, error)
}

// TierLimiter checks per-user submission windows; ratelimit.RateLimiter satisfies it
type TierLimiter interface {
	CheckTieredLimit(ctx context.Context, userID string, tier ratelimit.Tier) (*ratelimit.RateLimitResult, error)
}

// WorkflowGetter resolves workflows
type WorkflowGetter interface {
	Get(ctx context.Context, id string) (*models.Workflow, error)
}

// ReferenceGetter resolves reference sets
type ReferenceGetter interface {
	Get(ctx context.Context, id string) (*models.ReferenceSet, error)
}

// SampleResolver resolves sample ids
type SampleResolver interface {
	SamplesByIDs(ctx context.Context, ids []string) ([]*models.Sample, []string, error)
}

// CreateRunRequest is the body of POST /runs
type CreateRunRequest struct {
	ProjectID      string                 `json:"project_id" validate:"required"`
	WorkflowID     string                 `json:"workflow_id" validate:"required"`
	ReferenceSetID string                 `json:"reference_set_id" validate:"required"`
	SampleIDs      []string               `json:"sample_ids" validate:"required,min=1,dive,required"`
	Params         map[string]interface{} `json:"params"`
	ComputeProfile string                 `json:"compute_profile"`
}

// RunServiceOpts contains the collaborators of a RunService
type RunServiceOpts struct {
	Runs       RunStore
	Workflows  WorkflowGetter
	References ReferenceGetter
	Samples    SampleResolver
	Authz      *Authorizer
	Limiter    TierLimiter // nil disables rate limiting
	Runner     Dispatcher
	Reconciler *Reconciler
	Audit      *AuditService
	Logger     *logger.Logger
}

// RunService validates, persists, dispatches and reconciles runs
type RunService struct {
	runs       RunStore
	workflows  WorkflowGetter
	references ReferenceGetter
	samples    SampleResolver
	authz      *Authorizer
	limiter    TierLimiter
	runner     Dispatcher
	reconciler *Reconciler
	audit      *AuditService
	log        *logger.Logger
}

// NewRunService creates a new run service with options pattern
func NewRunService(opts *RunServiceOpts) *RunService {
	return &RunService{
		runs:       opts.Runs,
		workflows:  opts.Workflows,
		references: opts.References,
		samples:    opts.Samples,
		authz:      opts.Authz,
		limiter:    opts.Limiter,
		runner:     opts.Runner,
		reconciler: opts.Reconciler,
		audit:      opts.Audit,
		log:        opts.Logger,
	}
}

// validate resolves every entity a run references. Nothing is written here.
func (s *RunService) validate(ctx context.Context, subject *models.User, req *CreateRunRequest) (*models.Workflow, error) {
	if err := s.authz.Authorize(ctx, subject, Project(req.ProjectID), CapEdit); err != nil {
		return nil, err
	}

	wf, err := s.workflows.Get(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	ref, err := s.references.Get(ctx, req.ReferenceSetID)
	if err != nil {
		return nil, err
	}
	if !ref.IsComplete {
		return nil, Unprocessable("Reference set incomplete")
	}

	samples, missing, err := s.samples.SamplesByIDs(ctx, req.SampleIDs)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, Unprocessable("Some sample_ids not found")
	}
	for _, sm := range samples {
		if sm.ProjectID != req.ProjectID {
			return nil, Forbidden("Sample from another project")
		}
	}

	return wf, nil
}

func (s *RunService) checkRate(ctx context.Context, userID string, target models.DispatchTarget) error {
	if s.limiter == nil {
		return nil
	}

	tier := ratelimit.TierForTarget(string(target))
	result, err := s.limiter.CheckTieredLimit(ctx, userID, tier)
	if err != nil {
		// Fail open
		s.log.Warn("rate limit check failed, allowing run", "user_id", userID, "tier", tier, "error", err)
		return nil
	}
	if !result.Allowed {
		return &RateLimitError{
			Tier:              tier,
			Limit:             result.Limit,
			CurrentCount:      result.CurrentCount,
			RetryAfterSeconds: result.RetryAfterSeconds,
		}
	}
	return nil
}

// Create validates the request, persists a Queued run, dispatches it to the
// runner and returns the reconciled run. When the runner call fails the run
// is failed before a *DispatchError is returned.
func (s *RunService) Create(ctx context.Context, subject *models.User, req *CreateRunRequest) (*commonmodels.Run, error) {
	wf, err := s.validate(ctx, subject, req)
	if err != nil {
		return nil, err
	}

	target, err := Route(wf)
	if err != nil {
		return nil, err
	}

	if err := s.checkRate(ctx, subject.ID, target.Kind); err != nil {
		return nil, err
	}

	params := req.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	profile := req.ComputeProfile
	if profile == "" {
		profile = defaultComputeProfile
	}

	run := &commonmodels.Run{
		ID:             uuid.NewString(),
		ProjectID:      req.ProjectID,
		WorkflowID:     wf.ID,
		ReferenceSetID: req.ReferenceSetID,
		SampleIDs:      req.SampleIDs,
		Params:         params,
		ComputeProfile: profile,
		CreatedBy:      &subject.ID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	log := s.log.WithRunID(run.ID).WithProjectID(run.ProjectID)
	log.Info("run queued", "workflow_id", wf.ID, "dispatch_target", target.Kind, "samples", len(run.SampleIDs))

	telemetry.RunsCreated.WithLabelValues(string(target.Kind)).Inc()
	s.reconciler.Publish(ctx, run, "created")
	s.audit.LogEvent(ctx, &subject.ID, "run_create", "run", &run.ID, map[string]interface{}{
		"project_id":      run.ProjectID,
		"workflow_id":     run.WorkflowID,
		"dispatch_target": string(target.Kind),
	})

	// The outcome is persisted even if the caller goes away mid-dispatch
	persistCtx := context.WithoutCancel(ctx)

	if err := s.reconciler.Start(persistCtx, run); err != nil {
		return nil, err
	}

	resp, dispatchErr := s.runner.Dispatch(ctx, target.Path, target.Body)
	if dispatchErr != nil {
		log.Error("dispatch failed", "path", target.Path, "error", dispatchErr)
		if _, err := s.reconciler.Fail(persistCtx, run, dispatchErr.Error()); err != nil {
			log.Error("failed to fail run after dispatch error", "error", err)
		}
		return nil, &DispatchError{RunID: run.ID, Err: dispatchErr}
	}

	return s.reconciler.Apply(persistCtx, run, resp)
}

// Get returns a run the caller can view
func (s *RunService) Get(ctx context.Context, subject *models.User, id string) (*commonmodels.Run, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Run")
	}
	if err := s.authz.Authorize(ctx, subject, Project(run.ProjectID), CapView); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns a project's runs, newest first
func (s *RunService) List(ctx context.Context, subject *models.User, projectID string) ([]*commonmodels.Run, error) {
	if err := s.authz.Authorize(ctx, subject, Project(projectID), CapView); err != nil {
		return nil, err
	}
	return s.runs.ListByProject(ctx, projectID)
}
