package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PutSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

type SettingResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedBy string `json:"updated_by"`
	UpdatedAt string `json:"updated_at"`
}

// SettingService manages tenant-scoped configuration entries.
type SettingService interface {
	Put(ctx context.Context, tenantID, key, value, updatedBy string) (*SettingResponse, error)
	Get(ctx context.Context, tenantID, key string) (*SettingResponse, error)
	List(ctx context.Context, tenantID string) ([]SettingResponse, error)
	Delete(ctx context.Context, tenantID, key string) error
}

type settingService struct {
	repo      repository.SettingRepository
	auditRepo repository.AuditRepository
}

func NewSettingService(repo repository.SettingRepository, auditRepo repository.AuditRepository) SettingService {
	return &settingService{repo: repo, auditRepo: auditRepo}
}

func (s *settingService) Put(ctx context.Context, tenantID, key, value, updatedBy string) (*SettingResponse, error) {
	if key == "" {
		return nil, errors.New("setting key is required")
	}

	setting := &model.Setting{
		TenantID:  tenantID,
		Key:       key,
		Value:     value,
		UpdatedBy: updatedBy,
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to store setting: %w", err)
	}

	details, _ := json.Marshal(map[string]string{"key": key, "updated_by": updatedBy})
	entry := &model.AuditLog{
		TenantID:   tenantID,
		Action:     model.ActionUpdateSetting,
		EntityID:   key,
		EntityName: key,
		Details:    string(details),
	}
	if userID, err := uuid.Parse(actorID(ctx)); err == nil {
		entry.UserID = &userID
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}

	stored, err := s.repo.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	return toSettingResponse(stored), nil
}

func (s *settingService) Get(ctx context.Context, tenantID, key string) (*SettingResponse, error) {
	setting, err := s.repo.Get(ctx, tenantID, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSettingResponse(setting), nil
}

func (s *settingService) List(ctx context.Context, tenantID string) ([]SettingResponse, error) {
	settings, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	res := make([]SettingResponse, 0, len(settings))
	for i := range settings {
		res = append(res, *toSettingResponse(&settings[i]))
	}
	return res, nil
}

func (s *settingService) Delete(ctx context.Context, tenantID, key string) error {
	if _, err := s.repo.Get(ctx, tenantID, key); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.repo.Delete(ctx, tenantID, key)
}

func toSettingResponse(setting *model.Setting) *SettingResponse {
	return &SettingResponse{
		Key:       setting.Key,
		Value:     setting.Value,
		UpdatedBy: setting.UpdatedBy,
		UpdatedAt: setting.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
