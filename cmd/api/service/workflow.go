package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/cache"
	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/validation"
	"github.com/google/uuid"
)

// WorkflowStore persists workflows
type WorkflowStore interface {
	Create(ctx context.Context, wf *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
}

// DispatchOptions overrides import-time dispatch classification
type DispatchOptions struct {
	Target  models.DispatchTarget  `json:"target"`
	Payload map[string]interface{} `json:"payload"`
}

// ImportWorkflowRequest is the body of POST /workflows/import
type ImportWorkflowRequest struct {
	Name         string                 `json:"name" validate:"required"`
	Version      string                 `json:"version" validate:"required"`
	Engine       string                 `json:"engine"`
	Repo         *string                `json:"repo"`
	Revision     *string                `json:"revision"`
	GitSHA       *string                `json:"git_sha"`
	LockfileJSON map[string]interface{} `json:"lockfile_json"`
	LockfileYAML string                 `json:"lockfile_yaml"`
	Dispatch     *DispatchOptions       `json:"dispatch"`
}

// WorkflowService imports and serves immutable workflow registrations
type WorkflowService struct {
	store      WorkflowStore
	classifier *Classifier
	cache      cache.Cache
	cacheTTL   time.Duration
	authz      *Authorizer
	audit      *AuditService
	log        *logger.Logger
}

// NewWorkflowService creates a workflow service. c may be nil.
func NewWorkflowService(store WorkflowStore, classifier *Classifier, c cache.Cache, cacheTTL time.Duration, authz *Authorizer, audit *AuditService, log *logger.Logger) *WorkflowService {
	return &WorkflowService{
		store:      store,
		classifier: classifier,
		cache:      c,
		cacheTTL:   cacheTTL,
		authz:      authz,
		audit:      audit,
		log:        log,
	}
}

// Import validates the lockfile, classifies the dispatch target and stores the workflow
func (s *WorkflowService) Import(ctx context.Context, subject *models.User, req *ImportWorkflowRequest) (*models.Workflow, error) {
	if err := s.authz.Authorize(ctx, subject, Global, CapEdit); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Version) == "" {
		return nil, Unprocessable("name and version are required")
	}

	lock, images, err := validation.ValidateLockfile(req.LockfileJSON, req.LockfileYAML)
	if err != nil {
		return nil, Unprocessable(err.Error())
	}

	engine := req.Engine
	if engine == "" {
		engine = "nextflow"
	}

	target, payload, err := s.dispatchFor(req)
	if err != nil {
		return nil, err
	}

	wf := &models.Workflow{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Version:         req.Version,
		Engine:          engine,
		Repo:            req.Repo,
		Revision:        req.Revision,
		GitSHA:          req.GitSHA,
		Lock:            lock,
		DispatchTarget:  target,
		DispatchPayload: payload,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to import workflow: %w", err)
	}

	s.log.Info("imported workflow",
		"workflow_id", wf.ID,
		"name", wf.Name,
		"version", wf.Version,
		"images", images,
		"dispatch_target", wf.DispatchTarget,
	)

	s.audit.LogEvent(ctx, &subject.ID, "workflow_import", "workflow", &wf.ID, map[string]interface{}{
		"name":            wf.Name,
		"version":         wf.Version,
		"images":          images,
		"dispatch_target": string(wf.DispatchTarget),
	})

	s.remember(ctx, wf)
	return wf, nil
}

func (s *WorkflowService) dispatchFor(req *ImportWorkflowRequest) (models.DispatchTarget, map[string]interface{}, error) {
	var opts DispatchOptions
	if req.Dispatch != nil {
		opts = *req.Dispatch
	}

	target := opts.Target
	if target == "" {
		var err error
		target, err = s.classifier.Classify(req.Name, deref(req.Repo), req.Version, deref(req.Revision))
		if err != nil {
			return "", nil, fmt.Errorf("failed to classify workflow: %w", err)
		}
	}
	if !target.Valid() {
		return "", nil, Unprocessable(fmt.Sprintf("Unknown dispatch target %q", target))
	}

	if target == models.TargetGenericSmoke {
		return target, map[string]interface{}{}, nil
	}

	payload, err := MergePayload(NamedPipelineTemplate(deref(req.Repo), deref(req.Revision), req.Version), opts.Payload)
	if err != nil {
		return "", nil, Unprocessable(err.Error())
	}
	return target, payload, nil
}

// Get returns a workflow, reading through the cache
func (s *WorkflowService) Get(ctx context.Context, id string) (*models.Workflow, error) {
	if wf, ok := s.cached(ctx, id); ok {
		return wf, nil
	}

	wf, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Workflow")
	}

	s.remember(ctx, wf)
	return wf, nil
}

// List returns workflow summaries, newest first
func (s *WorkflowService) List(ctx context.Context) ([]models.WorkflowSummary, error) {
	wfs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.WorkflowSummary, 0, len(wfs))
	for _, wf := range wfs {
		out = append(out, wf.Summary())
	}
	return out, nil
}

func workflowCacheKey(id string) string {
	return "workflow:" + id
}

func (s *WorkflowService) cached(ctx context.Context, id string) (*models.Workflow, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, ok, err := s.cache.Get(ctx, workflowCacheKey(id))
	if err != nil || !ok {
		return nil, false
	}

	var wf models.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		s.log.Warn("dropping undecodable cached workflow", "workflow_id", id, "error", err)
		_ = s.cache.Delete(ctx, workflowCacheKey(id))
		return nil, false
	}
	return &wf, true
}

func (s *WorkflowService) remember(ctx context.Context, wf *models.Workflow) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(wf)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, workflowCacheKey(wf.ID), raw, s.cacheTTL); err != nil {
		s.log.Debug("failed to cache workflow", "workflow_id", wf.ID, "error", err)
	}
}
