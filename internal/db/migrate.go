package db

import (
	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by this service, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.PickupOrder{},
		&model.VerificationCode{},
		&model.AuditLog{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs AutoMigrate against an explicit connection
func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
