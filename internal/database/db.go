package database

import (
	"backoffice/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM and migrates the
// core models.
func NewConnection(dsn string, logger *zap.SugaredLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.ApprovableRecord{},
		&model.AuditLog{},
		&model.Setting{},
	)
	if err != nil {
		logger.Warnw("failed to auto-migrate models", "error", err)
	}

	return db, nil
}
