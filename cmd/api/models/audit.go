package models

import "time"

// AuditLog records one mutating action.
// Maps to: audit_logs table
type AuditLog struct {
	ID       int64                  `db:"id" json:"id"`
	TS       time.Time              `db:"ts" json:"ts"`
	UserID   *string                `db:"user_id" json:"user_id"`
	Action   string                 `db:"action" json:"action"`
	Entity   string                 `db:"entity" json:"entity"`
	EntityID *string                `db:"entity_id" json:"entity_id"`
	Details  map[string]interface{} `db:"details" json:"details"`
}
