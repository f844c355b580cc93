package repository

import (
	"errors"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"gorm.io/gorm"
)

type PickupOrderRepository interface {
	Create(order *model.PickupOrder) error
	CreateInBatches(orders []model.PickupOrder, batchSize int) error
	FindByID(id string) (*model.PickupOrder, error)
	FindByOrderNumber(orderNumber string) (*model.PickupOrder, error)
	FindByStoreID(storeID string, status model.PickupOrderStatus) ([]model.PickupOrder, error)
	UpdateStatus(id string, from []model.PickupOrderStatus, to model.PickupOrderStatus, at time.Time) (bool, error)
	MarkAsPickedUp(id string, pickedUpAt time.Time, verifiedBy string) (bool, error)
	WithTx(tx *gorm.DB) PickupOrderRepository
}

type pickupOrderRepository struct {
	db *gorm.DB
}

func NewPickupOrderRepository(db *gorm.DB) PickupOrderRepository {
	return &pickupOrderRepository{db: db}
}

func (r *pickupOrderRepository) WithTx(tx *gorm.DB) PickupOrderRepository {
	return &pickupOrderRepository{db: tx}
}

func (r *pickupOrderRepository) Create(order *model.PickupOrder) error {
	logger.Debug("Creating pickup order in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"store_id":     order.StoreID,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create pickup order in database", err, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"store_id":     order.StoreID,
		})
		return err
	}

	logger.Debug("Pickup order created in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return nil
}

func (r *pickupOrderRepository) CreateInBatches(orders []model.PickupOrder, batchSize int) error {
	if len(orders) == 0 {
		return nil
	}

	if err := r.db.CreateInBatches(orders, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create pickup orders in database", err, map[string]interface{}{
			"count": len(orders),
		})
		return err
	}

	logger.Info("Pickup orders bulk created in database", map[string]interface{}{
		"count": len(orders),
	})
	return nil
}

func (r *pickupOrderRepository) FindByID(id string) (*model.PickupOrder, error) {
	logger.Debug("Finding pickup order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.PickupOrder
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Pickup order not found in database", map[string]interface{}{
				"order_id": id,
			})
		} else {
			logger.Error("Failed to find pickup order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}

	return &order, nil
}

func (r *pickupOrderRepository) FindByOrderNumber(orderNumber string) (*model.PickupOrder, error) {
	var order model.PickupOrder
	if err := r.db.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find pickup order by number in database", err, map[string]interface{}{
				"order_number": orderNumber,
			})
		}
		return nil, err
	}
	return &order, nil
}

// FindByStoreID lists a store's orders, newest first. An empty status lists every state.
func (r *pickupOrderRepository) FindByStoreID(storeID string, status model.PickupOrderStatus) ([]model.PickupOrder, error) {
	logger.Debug("Finding pickup orders by store ID in database", map[string]interface{}{
		"store_id": storeID,
		"status":   status,
	})

	query := r.db.Where("store_id = ?", storeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []model.PickupOrder
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find pickup orders by store ID in database", err, map[string]interface{}{
			"store_id": storeID,
			"status":   status,
		})
		return nil, err
	}

	logger.Debug("Pickup orders found by store ID in database", map[string]interface{}{
		"store_id": storeID,
		"count":    len(orders),
	})
	return orders, nil
}

// UpdateStatus moves the order to `to` only if it is currently in one of the
// `from` states. It reports whether a row changed.
func (r *pickupOrderRepository) UpdateStatus(id string, from []model.PickupOrderStatus, to model.PickupOrderStatus, at time.Time) (bool, error) {
	logger.Debug("Updating pickup order status in database", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	updates := map[string]interface{}{"status": to}
	if to == model.PickupOrderStatusReadyForPickup {
		updates["ready_at"] = at
	}

	result := r.db.Model(&model.PickupOrder{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update pickup order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"to":       to,
		})
		return false, result.Error
	}

	logger.Debug("Pickup order status updated in database", map[string]interface{}{
		"order_id": id,
		"to":       to,
		"affected": result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}

// MarkAsPickedUp closes an order that is still ready_for_pickup. False means
// the order left that state before this call.
func (r *pickupOrderRepository) MarkAsPickedUp(id string, pickedUpAt time.Time, verifiedBy string) (bool, error) {
	result := r.db.Model(&model.PickupOrder{}).
		Where("id = ? AND status = ?", id, model.PickupOrderStatusReadyForPickup).
		Updates(map[string]interface{}{
			"status":       model.PickupOrderStatusPickedUp,
			"picked_up_at": pickedUpAt,
			"picked_up_by": verifiedBy,
		})
	if result.Error != nil {
		logger.Error("Failed to mark pickup order as picked up in database", result.Error, map[string]interface{}{
			"order_id":    id,
			"verified_by": verifiedBy,
		})
		return false, result.Error
	}

	logger.Debug("Pickup order marked as picked up in database", map[string]interface{}{
		"order_id":    id,
		"verified_by": verifiedBy,
		"affected":    result.RowsAffected,
	})
	return result.RowsAffected == 1, nil
}
