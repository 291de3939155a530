package repository

import (
	"context"
	"fmt"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/common/db"
)

// AuditRepository handles database operations for the audit log
type AuditRepository struct {
	db *db.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(database *db.DB) *AuditRepository {
	return &AuditRepository{db: database}
}

// Insert appends an entry
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	if entry.Details == nil {
		entry.Details = map[string]interface{}{}
	}

	query := `
		INSERT INTO audit_logs (user_id, action, entity, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ts
	`

	err := r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.Details,
	).Scan(&entry.ID, &entry.TS)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// List returns entries newest first
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, ts, user_id, action, entity, entity_id, details
		FROM audit_logs
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AuditLog, 0, limit)
	for rows.Next() {
		e := &models.AuditLog{}
		if err := rows.Scan(&e.ID, &e.TS, &e.UserID, &e.Action, &e.Entity, &e.EntityID, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		e.TS = e.TS.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
