package model

import (
	"time"

	"github.com/google/uuid"

	"backoffice/internal/workflow"
)

// ApprovableRecord is the single persisted shape behind every approval-workflow
// entity kind. Fields carries the committed domain payload, PendingChange the
// staged edits awaiting a second approver, and ActivityLog the bounded
// per-record trail. Version backs the conditional update that guards
// concurrent read-modify-write cycles.
type ApprovableRecord struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID      string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_records_identity,priority:2" json:"tenant_id"`
	Kind          Kind          `gorm:"type:varchar(40);not null;uniqueIndex:idx_records_identity,priority:1" json:"kind"`
	Name          string        `gorm:"type:varchar(255);not null;uniqueIndex:idx_records_identity,priority:3" json:"name"`
	Status        string        `gorm:"type:varchar(20);not null;index" json:"status"`
	Fields        JSONMap       `gorm:"type:jsonb;not null" json:"fields"`
	PendingChange JSONMap       `gorm:"type:jsonb" json:"pending_change,omitempty"`
	ActivityLog   ActivityTrail `gorm:"type:jsonb" json:"activity_log"`
	Version       int64         `gorm:"not null;default:0" json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Workflow converts the persisted row into the engine's view of the record.
func (r *ApprovableRecord) Workflow() workflow.Record {
	return workflow.Record{
		ID:            r.ID.String(),
		Status:        workflow.Status(r.Status),
		Fields:        map[string]any(r.Fields),
		PendingChange: map[string]any(r.PendingChange),
		ActivityLog:   []workflow.LogEntry(r.ActivityLog),
	}
}

// ApplyDecision copies the decided workflow state back onto the row. The name
// column mirrors the committed "name" field so uniqueness stays enforceable
// in SQL.
func (r *ApprovableRecord) ApplyDecision(decided workflow.Record) {
	r.Status = string(decided.Status)
	r.Fields = JSONMap(decided.Fields)
	r.PendingChange = JSONMap(decided.PendingChange)
	r.ActivityLog = ActivityTrail(decided.ActivityLog)
	if name, ok := decided.Fields["name"].(string); ok && name != "" {
		r.Name = name
	}
}
