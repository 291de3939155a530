package supervisor

import (
	"context"
	"time"

	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/genomeai/platform/common/telemetry"
)

const staleReason = "recovery: run exceeded horizon without a runner outcome"

// StaleRunFailer fails every open run created before cutoff and returns them
type StaleRunFailer interface {
	FailStale(ctx context.Context, cutoff time.Time) ([]*models.Run, error)
}

// EventPublisher announces a persisted run transition
type EventPublisher interface {
	Publish(ctx context.Context, run *models.Run, reason string)
}

// RecoverySweeper fails runs left Queued or Running past the horizon,
// e.g. after the API restarted mid-dispatch
type RecoverySweeper struct {
	runs     StaleRunFailer
	events   EventPublisher
	log      *logger.Logger
	now      func() time.Time
	interval time.Duration
	horizon  time.Duration
}

// NewRecoverySweeper creates a sweeper with a 1m interval and 2h horizon
func NewRecoverySweeper(runs StaleRunFailer, events EventPublisher, log *logger.Logger) *RecoverySweeper {
	return &RecoverySweeper{
		runs:     runs,
		events:   events,
		log:      log,
		now:      time.Now,
		interval: time.Minute,
		horizon:  2 * time.Hour,
	}
}

// WithInterval sets the sweep interval
func (s *RecoverySweeper) WithInterval(interval time.Duration) *RecoverySweeper {
	s.interval = interval
	return s
}

// WithHorizon sets how old an open run must be before it is failed
func (s *RecoverySweeper) WithHorizon(horizon time.Duration) *RecoverySweeper {
	s.horizon = horizon
	return s
}

// Start sweeps immediately and then every interval until ctx is cancelled
func (s *RecoverySweeper) Start(ctx context.Context) error {
	s.log.Info("recovery sweeper starting",
		"interval", s.interval,
		"horizon", s.horizon)

	if _, err := s.SweepOnce(ctx); err != nil {
		s.log.Error("recovery sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("recovery sweeper shutting down")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("recovery sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce fails stale runs and returns how many it failed
func (s *RecoverySweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.horizon)

	recovered, err := s.runs.FailStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, run := range recovered {
		s.log.WithRunID(run.ID).Warn("recovered stale run",
			"project_id", run.ProjectID,
			"created_at", run.CreatedAt)
		telemetry.RunsRecovered.Inc()
		if s.events != nil {
			s.events.Publish(ctx, run, staleReason)
		}
	}

	if len(recovered) > 0 {
		s.log.Info("marked stale runs as failed", "count", len(recovered), "cutoff", cutoff)
	}
	return len(recovered), nil
}
