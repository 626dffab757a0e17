package repository

import (
	"context"
	"errors"

	"backoffice/internal/model"

	"gorm.io/gorm"
)

// ErrStaleRecord is returned when a conditional update matched no row: the
// record was modified (or removed) by a concurrent actor since it was read.
var ErrStaleRecord = errors.New("record version is stale")

// RecordRepository defines the data access contract for approvable records.
// All lookups are scoped by kind and tenant.
type RecordRepository interface {
	Create(ctx context.Context, rec *model.ApprovableRecord) error
	GetByID(ctx context.Context, kind model.Kind, tenantID, id string) (*model.ApprovableRecord, error)
	GetByName(ctx context.Context, kind model.Kind, tenantID, name string) (*model.ApprovableRecord, error)
	List(ctx context.Context, kind model.Kind, tenantID, status string, page, limit int) ([]model.ApprovableRecord, int64, error)
	Update(ctx context.Context, rec *model.ApprovableRecord, expectedVersion int64) error
	Delete(ctx context.Context, rec *model.ApprovableRecord) error
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository returns a new instance of RecordRepository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, rec *model.ApprovableRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *recordRepository) GetByID(ctx context.Context, kind model.Kind, tenantID, id string) (*model.ApprovableRecord, error) {
	var rec model.ApprovableRecord
	err := GetDB(ctx, r.db).
		First(&rec, "id = ? AND kind = ? AND tenant_id = ?", id, kind, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepository) GetByName(ctx context.Context, kind model.Kind, tenantID, name string) (*model.ApprovableRecord, error) {
	var rec model.ApprovableRecord
	err := GetDB(ctx, r.db).
		First(&rec, "name = ? AND kind = ? AND tenant_id = ?", name, kind, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepository) List(ctx context.Context, kind model.Kind, tenantID, status string, page, limit int) ([]model.ApprovableRecord, int64, error) {
	var recs []model.ApprovableRecord
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ApprovableRecord{}).
		Where("kind = ? AND tenant_id = ?", kind, tenantID)
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, err
	}

	return recs, total, nil
}

// Update persists the record with a conditional write on the version the
// caller read. A stale version means a concurrent writer won the
// read-modify-write race; the caller surfaces that as a conflict.
func (r *recordRepository) Update(ctx context.Context, rec *model.ApprovableRecord, expectedVersion int64) error {
	res := GetDB(ctx, r.db).Model(&model.ApprovableRecord{}).
		Where("id = ? AND version = ?", rec.ID, expectedVersion).
		Updates(map[string]any{
			"name":           rec.Name,
			"status":         rec.Status,
			"fields":         rec.Fields,
			"pending_change": rec.PendingChange,
			"activity_log":   rec.ActivityLog,
			"version":        expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	rec.Version = expectedVersion + 1
	return nil
}

func (r *recordRepository) Delete(ctx context.Context, rec *model.ApprovableRecord) error {
	return GetDB(ctx, r.db).Delete(rec).Error
}
