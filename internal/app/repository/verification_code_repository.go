package repository

import (
	"errors"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrDuplicateCode is returned by Create when another pending record already uses the code
var ErrDuplicateCode = errors.New("verification code already in use")

type VerificationCodeRepository interface {
	Create(code *model.VerificationCode) error
	FindByID(id string) (*model.VerificationCode, error)
	FindByCode(code string) (*model.VerificationCode, error)
	FindByOrderID(orderID string) ([]model.VerificationCode, error)
	FindPendingByOrderID(orderID string) (*model.VerificationCode, error)
	UpdateStatus(id string, status model.VerificationCodeStatus) error
	IncrementAttempts(id string) (bool, error)
	MarkCompleted(id string, usedAt time.Time) (bool, error)
	CancelPendingByOrderID(orderID string) (int64, error)
	DeleteExpired(before time.Time) (int64, error)
	WithTx(tx *gorm.DB) VerificationCodeRepository
}

type verificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepository{db: db}
}

func (r *verificationCodeRepository) WithTx(tx *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepository{db: tx}
}

func (r *verificationCodeRepository) Create(code *model.VerificationCode) error {
	logger.Debug("Creating verification code in database", map[string]interface{}{
		"order_id": code.OrderID,
		"store_id": code.StoreID,
		"type":     code.Type,
	})

	var live int64
	if err := r.db.Model(&model.VerificationCode{}).
		Where("code = ? AND status = ?", code.Code, model.VerificationCodeStatusPending).
		Count(&live).Error; err != nil {
		logger.Error("Failed to check verification code collision", err, map[string]interface{}{
			"order_id": code.OrderID,
		})
		return err
	}
	if live > 0 {
		logger.Warn("Verification code collides with a pending code", map[string]interface{}{
			"order_id": code.OrderID,
		})
		return ErrDuplicateCode
	}

	if err := r.db.Create(code).Error; err != nil {
		logger.Error("Failed to create verification code in database", err, map[string]interface{}{
			"order_id": code.OrderID,
			"store_id": code.StoreID,
		})
		return err
	}

	logger.Debug("Verification code created in database", map[string]interface{}{
		"id":       code.ID,
		"order_id": code.OrderID,
	})
	return nil
}

func (r *verificationCodeRepository) FindByID(id string) (*model.VerificationCode, error) {
	var code model.VerificationCode
	if err := r.db.Where("id = ?", id).First(&code).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find verification code by ID in database", err, map[string]interface{}{
				"id": id,
			})
		}
		return nil, err
	}
	return &code, nil
}

// FindByCode prefers a pending record; among equals the newest wins
func (r *verificationCodeRepository) FindByCode(code string) (*model.VerificationCode, error) {
	logger.Debug("Finding verification code by value in database", nil)

	var record model.VerificationCode
	err := r.db.Where("code = ?", code).
		Order("CASE WHEN status = 'pending' THEN 0 ELSE 1 END").
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find verification code by value in database", err, nil)
		}
		return nil, err
	}

	logger.Debug("Verification code found by value in database", map[string]interface{}{
		"id":       record.ID,
		"order_id": record.OrderID,
		"status":   record.Status,
	})
	return &record, nil
}

func (r *verificationCodeRepository) FindByOrderID(orderID string) ([]model.VerificationCode, error) {
	logger.Debug("Finding verification codes by order ID in database", map[string]interface{}{
		"order_id": orderID,
	})

	var codes []model.VerificationCode
	if err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&codes).Error; err != nil {
		logger.Error("Failed to find verification codes by order ID in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	logger.Debug("Verification codes found by order ID in database", map[string]interface{}{
		"order_id": orderID,
		"count":    len(codes),
	})
	return codes, nil
}

func (r *verificationCodeRepository) FindPendingByOrderID(orderID string) (*model.VerificationCode, error) {
	var code model.VerificationCode
	err := r.db.Where("order_id = ? AND status = ?", orderID, model.VerificationCodeStatusPending).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find pending verification code in database", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return nil, err
	}
	return &code, nil
}

// UpdateStatus moves a pending record to status. Records already in a final
// state are left untouched so the status never goes backwards.
func (r *verificationCodeRepository) UpdateStatus(id string, status model.VerificationCodeStatus) error {
	logger.Debug("Updating verification code status in database", map[string]interface{}{
		"id":     id,
		"status": status,
	})

	result := r.db.Model(&model.VerificationCode{}).
		Where("id = ? AND status = ?", id, model.VerificationCodeStatusPending).
		Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update verification code status in database", result.Error, map[string]interface{}{
			"id":     id,
			"status": status,
		})
		return result.Error
	}

	logger.Debug("Verification code status updated in database", map[string]interface{}{
		"id":       id,
		"status":   status,
		"affected": result.RowsAffected,
	})
	return nil
}

// IncrementAttempts records one failed attempt in a single conditional UPDATE.
// It returns false when the record was no longer pending or had already used
// up its attempts, so two concurrent callers can never both slip under the limit.
func (r *verificationCodeRepository) IncrementAttempts(id string) (bool, error) {
	result := r.db.Model(&model.VerificationCode{}).
		Where("id = ? AND status = ? AND attempts < max_attempts", id, model.VerificationCodeStatusPending).
		Update("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		logger.Error("Failed to increment verification code attempts in database", result.Error, map[string]interface{}{
			"id": id,
		})
		return false, result.Error
	}

	logger.Debug("Verification code attempts incremented in database", map[string]interface{}{
		"id":       id,
		"affected": result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

// MarkCompleted consumes a pending code. False means someone else consumed,
// cancelled or exhausted it first.
func (r *verificationCodeRepository) MarkCompleted(id string, usedAt time.Time) (bool, error) {
	result := r.db.Model(&model.VerificationCode{}).
		Where("id = ? AND status = ? AND attempts < max_attempts", id, model.VerificationCodeStatusPending).
		Updates(map[string]interface{}{
			"status":  model.VerificationCodeStatusCompleted,
			"used_at": usedAt,
		})
	if result.Error != nil {
		logger.Error("Failed to mark verification code completed in database", result.Error, map[string]interface{}{
			"id": id,
		})
		return false, result.Error
	}

	logger.Debug("Verification code marked completed in database", map[string]interface{}{
		"id":       id,
		"affected": result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

func (r *verificationCodeRepository) CancelPendingByOrderID(orderID string) (int64, error) {
	result := r.db.Model(&model.VerificationCode{}).
		Where("order_id = ? AND status = ?", orderID, model.VerificationCodeStatusPending).
		Update("status", model.VerificationCodeStatusCancelled)
	if result.Error != nil {
		logger.Error("Failed to cancel pending verification codes in database", result.Error, map[string]interface{}{
			"order_id": orderID,
		})
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.Debug("Pending verification codes cancelled in database", map[string]interface{}{
			"order_id": orderID,
			"count":    result.RowsAffected,
		})
	}
	return result.RowsAffected, nil
}

// DeleteExpired purges every record that expired before the given instant, whatever its status
func (r *verificationCodeRepository) DeleteExpired(before time.Time) (int64, error) {
	logger.Debug("Deleting expired verification codes from database", map[string]interface{}{
		"before": before,
	})

	result := r.db.Where("expires_at < ?", before).Delete(&model.VerificationCode{})
	if result.Error != nil {
		logger.Error("Failed to delete expired verification codes from database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Expired verification codes deleted from database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
