package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/genomeai/platform/cmd/runner/process"
	"github.com/genomeai/platform/cmd/runner/sourcecache"
	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/telemetry"
)

// Mode is one runner execution path with its wall-clock bound and tail length
type Mode struct {
	Name      string
	Timeout   time.Duration
	TailLines int
}

var (
	ModeHello          = Mode{Name: "hello", Timeout: 600 * time.Second, TailLines: 10}
	ModeContainerSmoke = Mode{Name: "container_smoke", Timeout: 900 * time.Second, TailLines: 10}
	ModeNFCoreDNASeq   = Mode{Name: "nfcore_dna_seq", Timeout: 3600 * time.Second, TailLines: 20}
)

const nextflowLogTailLines = 12

// SourceResolver hands out local pipeline checkouts
type SourceResolver interface {
	Resolve(ctx context.Context, repo, revision string) (*sourcecache.Lease, error)
}

// ArtifactCollector uploads a finished job's reports
type ArtifactCollector interface {
	Collect(ctx context.Context, ws Workspace) []string
}

// Config holds engine paths
type Config struct {
	WorkDir      string
	PipelinesDir string
	NextflowBin  string
}

// Engine provisions workspaces and runs nextflow jobs
type Engine struct {
	cfg       Config
	exec      process.Executor
	sources   SourceResolver
	artifacts ArtifactCollector
	log       *logger.Logger
	now       func() time.Time

	hello  Mode
	smoke  Mode
	nfcore Mode
}

// New creates an engine and its work directory
func New(cfg Config, exec process.Executor, sources SourceResolver, artifacts ArtifactCollector, log *logger.Logger) (*Engine, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir %s: %w", cfg.WorkDir, err)
	}

	return &Engine{
		cfg:       cfg,
		exec:      exec,
		sources:   sources,
		artifacts: artifacts,
		log:       log,
		now:       time.Now,
		hello:     ModeHello,
		smoke:     ModeContainerSmoke,
		nfcore:    ModeNFCoreDNASeq,
	}, nil
}

// RunHello runs the bundled trivial pipeline
func (e *Engine) RunHello(ctx context.Context) (*models.RunnerResponse, error) {
	start := e.now()

	ws, err := newWorkspace(e.cfg.WorkDir, start)
	if err != nil {
		return nil, err
	}

	cmd := process.Command{
		Name: e.cfg.NextflowBin,
		Args: BuildArgs(ws, RunArgs{Pipeline: filepath.Join(e.cfg.PipelinesDir, "hello.nf")}),
		Dir:  ws.Dir,
	}

	jobCtx, cancel := context.WithTimeout(ctx, e.hello.Timeout)
	defer cancel()

	resp, err := e.execute(ctx, jobCtx, e.hello, ws, cmd)
	e.record(e.hello, resp, start)
	return resp, err
}

// RunContainerSmoke runs the bundled containerized pipeline
func (e *Engine) RunContainerSmoke(ctx context.Context) (*models.RunnerResponse, error) {
	start := e.now()

	ws, err := newWorkspace(e.cfg.WorkDir, start)
	if err != nil {
		return nil, err
	}

	if err := writeConfig(ws, SmokeConfig(ws)); err != nil {
		return nil, err
	}

	cmd := process.Command{
		Name: e.cfg.NextflowBin,
		Args: BuildArgs(ws, RunArgs{
			Pipeline:   filepath.Join(e.cfg.PipelinesDir, "container_hello.nf"),
			WithConfig: true,
		}),
		Dir: ws.Dir,
	}

	jobCtx, cancel := context.WithTimeout(ctx, e.smoke.Timeout)
	defer cancel()

	resp, err := e.execute(ctx, jobCtx, e.smoke, ws, cmd)
	if resp != nil {
		resp.NextflowLogTail = readLogTail(ws.Log(), nextflowLogTailLines)
	}
	e.record(e.smoke, resp, start)
	return resp, err
}

// RunNFCore resolves the pipeline source through the cache and runs it locally.
// The job deadline covers source resolution as well as the engine run.
func (e *Engine) RunNFCore(ctx context.Context, req *models.NFCoreRequest) (*models.RunnerResponse, error) {
	start := e.now()

	ws, err := newWorkspace(e.cfg.WorkDir, start)
	if err != nil {
		return nil, err
	}
	log := e.log.WithJobID(ws.RunID)

	outdir := filepath.Join(ws.Dir, "out")
	if req.Outdir != nil && *req.Outdir != "" {
		outdir = *req.Outdir
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create outdir %s: %w", outdir, err)
	}

	if err := writeConfig(ws, NFCoreConfig(ws, req.DockerUser)); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithTimeout(ctx, e.nfcore.Timeout)
	defer cancel()

	lease, err := e.sources.Resolve(jobCtx, req.Repo, req.RevisionOrEmpty())
	if err != nil {
		var failure *sourcecache.Failure
		var resp *models.RunnerResponse
		switch {
		case errors.As(err, &failure):
			resp = failedResponse(ws, failure.Marker)
			resp.StderrTail = failure.StderrTail
		case errors.Is(err, context.DeadlineExceeded):
			resp = failedResponse(ws, models.JobErrTimeout)
		case errors.Is(err, sourcecache.ErrUnsafeSource):
			return nil, &PayloadError{Err: err}
		default:
			return nil, err
		}
		log.Warn("pipeline source resolution failed", "repo", req.Repo, "error", err)
		e.record(e.nfcore, resp, start)
		return resp, nil
	}
	defer lease.Release()

	log.Info("pipeline source resolved", "dir", lease.Dir, "cache_hit", lease.Hit)

	cmd := process.Command{
		Name: e.cfg.NextflowBin,
		Args: BuildArgs(ws, RunArgs{
			Pipeline:   lease.Dir,
			Profile:    req.Profile,
			WithConfig: true,
			Outdir:     outdir,
			Revision:   req.RevisionOrEmpty(),
			StubRun:    req.StubRun,
			ExtraArgs:  req.ExtraArgs,
			MaxMemory:  req.MaxMemory,
			MaxCPUs:    req.MaxCPUs,
			MaxTime:    req.MaxTime,
		}),
		Dir: ws.Dir,
		Env: append(os.Environ(), "NXF_IGNORE_MAX_RESOURCES=true"),
	}

	resp, err := e.execute(ctx, jobCtx, e.nfcore, ws, cmd)
	e.record(e.nfcore, resp, start)
	return resp, err
}

// execute runs cmd under jobCtx and builds the response. Artifacts are uploaded
// under ctx so a job that used its whole budget can still report them.
func (e *Engine) execute(ctx, jobCtx context.Context, mode Mode, ws Workspace, cmd process.Command) (*models.RunnerResponse, error) {
	log := e.log.WithJobID(ws.RunID)
	log.Info("starting engine", "mode", mode.Name, "cmd", cmd.String(), "timeout", mode.Timeout)

	res, err := e.exec.Run(jobCtx, cmd)
	if err != nil {
		return nil, err
	}

	resp := &models.RunnerResponse{
		RunID:      ws.RunID,
		Artifacts:  []string{},
		StdoutTail: process.Tail(res.Stdout, mode.TailLines),
		StderrTail: process.Tail(res.Stderr, mode.TailLines),
	}

	if res.TimedOut {
		log.Warn("engine timed out", "mode", mode.Name, "timeout", mode.Timeout)
		resp.Status = models.JobFailed
		resp.Error = models.JobErrTimeout
		return resp, nil
	}

	resp.Status = models.JobFailed
	if res.ExitCode == 0 {
		resp.Status = models.JobSucceeded
	}

	resp.Artifacts = e.artifacts.Collect(ctx, ws)

	log.Info("engine finished",
		"mode", mode.Name,
		"exit_code", res.ExitCode,
		"status", resp.Status,
		"artifacts", len(resp.Artifacts),
		"duration_ms", res.Duration.Milliseconds())

	return resp, nil
}

func (e *Engine) record(mode Mode, resp *models.RunnerResponse, start time.Time) {
	status := "error"
	if resp != nil {
		status = resp.Status
	}
	telemetry.RunnerJobs.WithLabelValues(mode.Name, status).Inc()
	telemetry.RunnerJobDuration.WithLabelValues(mode.Name).Observe(e.now().Sub(start).Seconds())
}

func failedResponse(ws Workspace, marker string) *models.RunnerResponse {
	return &models.RunnerResponse{
		RunID:      ws.RunID,
		Status:     models.JobFailed,
		Artifacts:  []string{},
		StdoutTail: []string{},
		StderrTail: []string{},
		Error:      marker,
	}
}
