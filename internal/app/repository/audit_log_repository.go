package repository

import (
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"gorm.io/gorm"
)

// AuditLogFilter narrows List results. Zero values are ignored.
type AuditLogFilter struct {
	Event   model.AuditEvent
	OrderID string
	StoreID string
	Success *bool
	Since   time.Time
	Until   time.Time
	Limit   int
}

// AuditLogRepository is append-only
type AuditLogRepository interface {
	WithTx(tx *gorm.DB) AuditLogRepository
	Create(entry *model.AuditLog) error
	List(filter AuditLogFilter) ([]model.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) WithTx(tx *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: tx}
}

func (r *auditLogRepository) Create(entry *model.AuditLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to create audit log in database", err, map[string]interface{}{
			"event":    entry.Event,
			"order_id": entry.OrderID,
		})
		return err
	}
	return nil
}

func (r *auditLogRepository) List(filter AuditLogFilter) ([]model.AuditLog, error) {
	logger.Debug("Listing audit logs from database", map[string]interface{}{
		"event":    filter.Event,
		"order_id": filter.OrderID,
		"store_id": filter.StoreID,
	})

	query := r.db.Model(&model.AuditLog{})
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.StoreID != "" {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at < ?", filter.Until)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []model.AuditLog
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		logger.Error("Failed to list audit logs from database", err, nil)
		return nil, err
	}

	logger.Debug("Audit logs listed from database", map[string]interface{}{
		"count": len(entries),
	})
	return entries, nil
}
