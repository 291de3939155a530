package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomeai_runs_created_total",
		Help: "Runs persisted as Queued, by dispatch target.",
	}, []string{"dispatch_target"})

	RunsReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomeai_runs_reconciled_total",
		Help: "Runs moved to a terminal status, by status.",
	}, []string{"status"})

	RunsRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genomeai_runs_recovered_total",
		Help: "Stale non-terminal runs failed by the recovery sweep.",
	})

	RunnerJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomeai_runner_jobs_total",
		Help: "Runner jobs finished, by mode and status.",
	}, []string{"mode", "status"})

	RunnerJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "genomeai_runner_job_duration_seconds",
		Help:    "Wall time of runner jobs.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900, 1800, 3600},
	}, []string{"mode"})

	SourceCacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomeai_source_cache_ops_total",
		Help: "Pipeline source cache operations, by op and result.",
	}, []string{"op", "result"})

	ArtifactUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomeai_artifact_uploads_total",
		Help: "Run artifact uploads, by result.",
	}, []string{"result"})
)
