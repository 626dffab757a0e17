package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRecord  = "CREATE_RECORD"
	ActionUpdateRecord  = "UPDATE_RECORD"
	ActionDeleteRecord  = "DELETE_RECORD"
	ActionStageDeletion = "STAGE_DELETION"
	ActionApproveRecord = "APPROVE_RECORD"
	ActionDenyRecord    = "DENY_RECORD"

	ActionCreateUser    = "CREATE_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionDeleteUser    = "DELETE_USER"
	ActionUpdateSetting = "UPDATE_SETTING"
)

// AuditLog tracks Who, What, and When for critical system changes. This is
// the global append-only trail; the bounded per-record activity log lives on
// ApprovableRecord.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID   string     `gorm:"type:varchar(64);index" json:"tenant_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
