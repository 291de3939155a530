package service

import (
	"context"
	"encoding/json"

	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/queue"
	"github.com/genomeai/platform/common/telemetry"
)

// RunTransitions are the guarded status updates of a run
type RunTransitions interface {
	MarkRunning(ctx context.Context, runID string) (bool, error)
	Apply(ctx context.Context, runID string, resp *models.RunnerResponse) (*models.Run, bool, error)
	Fail(ctx context.Context, runID string) (*models.Run, bool, error)
}

// EventPublisher publishes run events; queue.Queue satisfies it
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, message []byte) error
}

// Reconciler persists run transitions and announces them on run.events.
// Every terminal write is conditional on the run still being open, so
// replaying a reconciliation cannot change a stored outcome.
type Reconciler struct {
	runs   RunTransitions
	events EventPublisher
	log    *logger.Logger
}

// NewReconciler creates a reconciler. events may be nil.
func NewReconciler(runs RunTransitions, events EventPublisher, log *logger.Logger) *Reconciler {
	return &Reconciler{runs: runs, events: events, log: log}
}

// Publish emits an event for run's current state
func (r *Reconciler) Publish(ctx context.Context, run *models.Run, reason string) {
	if r.events == nil {
		return
	}

	payload, err := json.Marshal(models.NewRunEvent(run, reason))
	if err != nil {
		r.log.Warn("failed to encode run event", "run_id", run.ID, "error", err)
		return
	}

	if err := r.events.Publish(ctx, queue.TopicRunEvents, run.ID, payload); err != nil {
		r.log.Warn("failed to publish run event", "run_id", run.ID, "status", run.Status, "error", err)
	}
}

// Start moves a Queued run to Running
func (r *Reconciler) Start(ctx context.Context, run *models.Run) error {
	ok, err := r.runs.MarkRunning(ctx, run.ID)
	if err != nil {
		return err
	}
	if !ok {
		r.log.WithRunID(run.ID).Warn("run was not queued when dispatch started")
		return nil
	}

	run.Status = models.StatusRunning
	r.Publish(ctx, run, "dispatched")
	return nil
}

// Apply records the runner outcome. A run that is already terminal is
// returned as stored and no event is emitted.
func (r *Reconciler) Apply(ctx context.Context, run *models.Run, resp *models.RunnerResponse) (*models.Run, error) {
	stored, applied, err := r.runs.Apply(ctx, run.ID, resp)
	if err != nil {
		return nil, err
	}

	log := r.log.WithRunID(run.ID)
	if !applied {
		log.Warn("run already terminal, outcome ignored", "status", stored.Status, "runner_job_id", resp.RunID)
		return stored, nil
	}

	telemetry.RunsReconciled.WithLabelValues(string(stored.Status)).Inc()
	log.Info("run reconciled",
		"status", stored.Status,
		"runner_job_id", resp.RunID,
		"runner_error", resp.Error,
		"artifacts", len(stored.Artifacts),
	)

	r.Publish(ctx, stored, resp.Error)
	return stored, nil
}

// Fail terminally fails an open run without a runner job id
func (r *Reconciler) Fail(ctx context.Context, run *models.Run, reason string) (*models.Run, error) {
	stored, applied, err := r.runs.Fail(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return stored, nil
	}

	telemetry.RunsReconciled.WithLabelValues(string(stored.Status)).Inc()
	r.log.WithRunID(run.ID).Warn("run failed", "reason", reason)

	r.Publish(ctx, stored, reason)
	return stored, nil
}
