package model

import (
	"time"

	"github.com/google/uuid"
)

// Setting is one tenant-scoped configuration entry. Keys are unique per
// tenant; values are opaque strings interpreted by consumers.
type Setting struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_settings_tenant_key,priority:1" json:"tenant_id"`
	Key       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_settings_tenant_key,priority:2" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
