package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/logger"
	commonmodels "github.com/genomeai/platform/common/models"
)

// AuditStore persists audit entries
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// AuditService records mutating actions
type AuditService struct {
	store AuditStore
	authz *Authorizer
	log   *logger.Logger
}

// NewAuditService creates an audit service
func NewAuditService(store AuditStore, authz *Authorizer, log *logger.Logger) *AuditService {
	return &AuditService{store: store, authz: authz, log: log}
}

// LogEvent appends an entry. Failures are logged and swallowed so auditing
// never fails the action it records.
func (s *AuditService) LogEvent(ctx context.Context, userID *string, action, entity string, entityID *string, details map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  details,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.log.Warn("failed to write audit log", "action", action, "entity", entity, "error", err)
	}
}

// List returns entries newest first. Global Admin only.
func (s *AuditService) List(ctx context.Context, subject *models.User, limit, offset int) ([]*models.AuditLog, error) {
	if err := s.authz.Authorize(ctx, subject, Global, CapAdminister); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		return nil, Unprocessable("limit must be between 1 and 500")
	}
	if offset < 0 {
		return nil, Unprocessable("offset must be >= 0")
	}
	return s.store.List(ctx, limit, offset)
}

// HandleRunEvent is the run.events subscriber; it records each transition as run_status
func (s *AuditService) HandleRunEvent(ctx context.Context, key string, value []byte) error {
	var ev commonmodels.RunEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("failed to decode run event %s: %w", key, err)
	}

	details := map[string]interface{}{
		"project_id": ev.ProjectID,
		"status":     string(ev.Status),
		"artifacts":  len(ev.Artifacts),
	}
	if ev.RunnerJobID != nil {
		details["runner_job_id"] = *ev.RunnerJobID
	}
	if ev.Reason != "" {
		details["reason"] = ev.Reason
	}

	runID := ev.RunID
	s.LogEvent(ctx, ev.ActorID, "run_status", "run", &runID, details)
	return nil
}

func strPtr(s string) *string {
	return &s
}
