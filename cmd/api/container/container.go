package container

import (
	"fmt"

	"github.com/genomeai/platform/cmd/api/repository"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/genomeai/platform/cmd/api/supervisor"
	"github.com/genomeai/platform/common/bootstrap"
	"github.com/genomeai/platform/common/clients"
	commonrepo "github.com/genomeai/platform/common/repository"
	"github.com/genomeai/platform/common/ratelimit"
	"github.com/genomeai/platform/common/storage"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Store      storage.ObjectStore
	Runner     *clients.RunnerClient

	// Repositories
	UserRepo      *repository.UserRepository
	ProjectRepo   *repository.ProjectRepository
	DatasetRepo   *repository.DatasetRepository
	SampleRepo    *repository.SampleRepository
	ReferenceRepo *repository.ReferenceRepository
	WorkflowRepo  *repository.WorkflowRepository
	AuditRepo     *repository.AuditRepository
	RunRepo       *commonrepo.RunRepository

	// Services
	Authorizer       *service.Authorizer
	AuthService      *service.AuthService
	AuditService     *service.AuditService
	ProjectService   *service.ProjectService
	DatasetService   *service.DatasetService
	SampleService    *service.SampleService
	ReferenceService *service.ReferenceService
	WorkflowService  *service.WorkflowService
	Reconciler       *service.Reconciler
	RunService       *service.RunService

	// Nil when Redis is disabled
	RequestLimiter *ratelimit.RateLimiter

	Sweeper *supervisor.RecoverySweeper
}

// NewContainer initializes all services and repositories once.
// store backs dataset uploads; Redis, when enabled, backs run rate limits.
func NewContainer(components *bootstrap.Components, store storage.ObjectStore) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	if components.DB == nil {
		return nil, fmt.Errorf("api requires a database")
	}

	classifier, err := service.NewClassifier(cfg.Dispatch.Rule)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dispatch rule: %w", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(components.DB)
	projectRepo := repository.NewProjectRepository(components.DB)
	datasetRepo := repository.NewDatasetRepository(components.DB)
	sampleRepo := repository.NewSampleRepository(components.DB)
	referenceRepo := repository.NewReferenceRepository(components.DB)
	workflowRepo := repository.NewWorkflowRepository(components.DB)
	auditRepo := repository.NewAuditRepository(components.DB)
	runRepo := commonrepo.NewRunRepository(components.DB)

	// Initialize services (bottom-up: dependencies first)
	authz := service.NewAuthorizer(projectRepo)
	auditService := service.NewAuditService(auditRepo, authz, log)
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	projectService := service.NewProjectService(projectRepo, userRepo, authz, auditService, log)
	datasetService := service.NewDatasetService(datasetRepo, store, cfg.Storage.BucketDatasets, authz, auditService, log)
	sampleService := service.NewSampleService(sampleRepo, datasetRepo, authz, auditService, log)
	referenceService := service.NewReferenceService(referenceRepo, authz, auditService, log)
	workflowService := service.NewWorkflowService(workflowRepo, classifier, components.Cache, cfg.Cache.DefaultTTL, authz, auditService, log)

	var events service.EventPublisher
	if components.Queue != nil {
		events = components.Queue
	}
	reconciler := service.NewReconciler(runRepo, events, log)

	runner := clients.NewRunnerClient(cfg.Dispatch.RunnerBase, cfg.Dispatch.RunnerTimeout, log)

	var limiter service.TierLimiter
	var requestLimiter *ratelimit.RateLimiter
	if components.Redis != nil {
		tiers := ratelimit.NewTiers(cfg.Dispatch.HeavyRunsPerMin, cfg.Dispatch.LightRunsPerMin)
		requestLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), tiers, log)
		limiter = requestLimiter
	} else {
		log.Warn("redis disabled, run submissions are not rate limited")
	}

	runService := service.NewRunService(&service.RunServiceOpts{
		Runs:       runRepo,
		Workflows:  workflowService,
		References: referenceService,
		Samples:    sampleService,
		Authz:      authz,
		Limiter:    limiter,
		Runner:     runner,
		Reconciler: reconciler,
		Audit:      auditService,
		Logger:     log,
	})

	sweeper := supervisor.NewRecoverySweeper(runRepo, reconciler, log).
		WithInterval(cfg.Dispatch.RecoveryInterval).
		WithHorizon(cfg.Dispatch.RecoveryHorizon)

	return &Container{
		Components:       components,
		Store:            store,
		Runner:           runner,
		UserRepo:         userRepo,
		ProjectRepo:      projectRepo,
		DatasetRepo:      datasetRepo,
		SampleRepo:       sampleRepo,
		ReferenceRepo:    referenceRepo,
		WorkflowRepo:     workflowRepo,
		AuditRepo:        auditRepo,
		RunRepo:          runRepo,
		Authorizer:       authz,
		AuthService:      authService,
		AuditService:     auditService,
		ProjectService:   projectService,
		DatasetService:   datasetService,
		SampleService:    sampleService,
		ReferenceService: referenceService,
		WorkflowService:  workflowService,
		Reconciler:       reconciler,
		RunService:       runService,
		RequestLimiter:   requestLimiter,
		Sweeper:          sweeper,
	}, nil
}
