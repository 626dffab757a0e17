package repository

import (
	"context"

	"backoffice/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository defines data access for tenant-scoped configuration.
type SettingRepository interface {
	Upsert(ctx context.Context, setting *model.Setting) error
	Get(ctx context.Context, tenantID, key string) (*model.Setting, error)
	List(ctx context.Context, tenantID string) ([]model.Setting, error)
	Delete(ctx context.Context, tenantID, key string) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.Setting) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
}

func (r *settingRepository) Get(ctx context.Context, tenantID, key string) (*model.Setting, error) {
	var setting model.Setting
	err := GetDB(ctx, r.db).First(&setting, "tenant_id = ? AND key = ?", tenantID, key).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) List(ctx context.Context, tenantID string) ([]model.Setting, error) {
	var settings []model.Setting
	err := GetDB(ctx, r.db).Where("tenant_id = ?", tenantID).Order("key asc").Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingRepository) Delete(ctx context.Context, tenantID, key string) error {
	return GetDB(ctx, r.db).Where("tenant_id = ? AND key = ?", tenantID, key).Delete(&model.Setting{}).Error
}
