package service

import (
	"errors"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrPickupOrderNotFound     = errors.New("pickup order not found")
	ErrInvalidStatusTransition = errors.New("invalid pickup order status transition")
)

// staffTransitions lists the states staff may move an order out of, per target.
// picked_up is absent: only a verified code redemption reaches it.
var staffTransitions = map[model.PickupOrderStatus][]model.PickupOrderStatus{
	model.PickupOrderStatusReadyForPickup: {model.PickupOrderStatusPreparing},
	model.PickupOrderStatusCancelled:      {model.PickupOrderStatusPreparing, model.PickupOrderStatusReadyForPickup},
	model.PickupOrderStatusExpired:        {model.PickupOrderStatusReadyForPickup},
}

type PickupOrderService interface {
	GetOrder(id string) (*model.PickupOrder, error)
	GetOrderByNumber(orderNumber string) (*model.PickupOrder, error)
	ListStoreOrders(storeID string, status model.PickupOrderStatus) ([]model.PickupOrder, error)
	UpdateStatus(id string, status model.PickupOrderStatus) (*model.PickupOrder, error)
}

type pickupOrderService struct {
	orderRepo repository.PickupOrderRepository
	codeRepo  repository.VerificationCodeRepository
	db        *gorm.DB
}

func NewPickupOrderService(
	orderRepo repository.PickupOrderRepository,
	codeRepo repository.VerificationCodeRepository,
	db *gorm.DB,
) PickupOrderService {
	return &pickupOrderService{
		orderRepo: orderRepo,
		codeRepo:  codeRepo,
		db:        db,
	}
}

func (s *pickupOrderService) GetOrder(id string) (*model.PickupOrder, error) {
	order, err := s.orderRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPickupOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *pickupOrderService) GetOrderByNumber(orderNumber string) (*model.PickupOrder, error) {
	order, err := s.orderRepo.FindByOrderNumber(orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPickupOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *pickupOrderService) ListStoreOrders(storeID string, status model.PickupOrderStatus) ([]model.PickupOrder, error) {
	if status != "" && !status.IsValid() {
		return nil, ErrInvalidStatusTransition
	}
	return s.orderRepo.FindByStoreID(storeID, status)
}

// UpdateStatus applies a staff-initiated transition. Cancelling or expiring an
// order also withdraws its pending pickup code.
func (s *pickupOrderService) UpdateStatus(id string, status model.PickupOrderStatus) (*model.PickupOrder, error) {
	from, ok := staffTransitions[status]
	if !ok {
		logger.Warn("Rejected pickup order status change", map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
		return nil, ErrInvalidStatusTransition
	}

	if _, err := s.GetOrder(id); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		changed, err := s.orderRepo.WithTx(tx).UpdateStatus(id, from, status, time.Now().UTC())
		if err != nil {
			return err
		}
		if !changed {
			return ErrInvalidStatusTransition
		}

		if status == model.PickupOrderStatusCancelled || status == model.PickupOrderStatusExpired {
			if _, err := s.codeRepo.WithTx(tx).CancelPendingByOrderID(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidStatusTransition) {
			logger.Error("Failed to update pickup order status", err, map[string]interface{}{
				"order_id": id,
				"status":   status,
			})
		}
		return nil, err
	}

	logger.Info("Pickup order status updated", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})
	return s.GetOrder(id)
}
