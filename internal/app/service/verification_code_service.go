package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"github.com/ikkim/storeops-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrGenerationFailure = errors.New("failed to generate verification code")
	ErrNoPendingCode     = errors.New("no pending verification code for order")
	ErrQRCodeFailure     = errors.New("failed to generate QR code")

	errCodeConsumed = errors.New("verification code consumed concurrently")
	errOrderMoved   = errors.New("pickup order left ready_for_pickup concurrently")
	errUnaudited    = errors.New("code generation not audited")
)

// maxGenerateRetries bounds regeneration after a collision with another pending code
const maxGenerateRetries = 5

// FailureReason is recorded in the audit trail; callers only ever see Message
type FailureReason string

const (
	ReasonCodeNotFound     FailureReason = "code_not_found"
	ReasonCodeMismatch     FailureReason = "code_mismatch"
	ReasonCodeExpired      FailureReason = "code_expired"
	ReasonCodeAlreadyUsed  FailureReason = "code_already_used"
	ReasonAttemptsExceeded FailureReason = "attempts_exceeded"
	ReasonCodeCancelled    FailureReason = "code_cancelled"
	ReasonInvalidCode      FailureReason = "invalid_code"
	ReasonOrderNotFound    FailureReason = "order_not_found"
	ReasonOrderNotReady    FailureReason = "order_not_ready"
	ReasonSystemError      FailureReason = "system_error"
)

const (
	pickupCompletedMessage = "pickup completed"
	defaultFailureMessage  = "Verification could not be completed, please try again"
)

var failureMessages = map[FailureReason]string{
	ReasonCodeNotFound:     "Invalid verification code",
	ReasonInvalidCode:      "Invalid verification code",
	ReasonCodeMismatch:     "Verification code does not match this order",
	ReasonCodeExpired:      "Verification code has expired",
	ReasonCodeAlreadyUsed:  "Verification code has already been used",
	ReasonAttemptsExceeded: "Too many failed attempts; a new code is required",
	ReasonCodeCancelled:    "Verification code is no longer valid; a new code is required",
	ReasonOrderNotFound:    "Order not found",
	ReasonOrderNotReady:    "Order is not ready for pickup",
	ReasonSystemError:      defaultFailureMessage,
}

// Logger is the leveled logger the service reports through. *logger.Logger satisfies it.
type Logger interface {
	Log(level string, message string, data map[string]interface{})
	Error(message string, err error, data ...map[string]interface{})
}

type VerificationRequest struct {
	OrderID          string `json:"order_id"`
	VerificationCode string `json:"verification_code"`
	StoreID          string `json:"store_id"`
	VerifiedBy       string `json:"verified_by"`
	CustomerPresent  bool   `json:"customer_present"`
	IDVerified       bool   `json:"id_verified"`
	Notes            string `json:"notes,omitempty"`
}

type VerificationResult struct {
	Success    bool               `json:"success"`
	Order      *model.PickupOrder `json:"order,omitempty"`
	Message    string             `json:"message"`
	Timestamp  time.Time          `json:"timestamp"`
	VerifiedBy string             `json:"verified_by"`
	Reason     FailureReason      `json:"-"`
}

type VerificationCodeConfig struct {
	CodeLength  int
	CodeTTL     time.Duration
	MaxAttempts int
}

func DefaultVerificationCodeConfig() VerificationCodeConfig {
	return VerificationCodeConfig{
		CodeLength:  util.DefaultCodeLength,
		CodeTTL:     24 * time.Hour,
		MaxAttempts: 3,
	}
}

type VerificationCodeService interface {
	GeneratePickupCode(orderID, storeID string) (*model.VerificationCode, error)
	VerifyPickupCode(req VerificationRequest) *VerificationResult
	CleanupExpiredCodes() int64
	GenerateQRCodeForOrder(orderID string) (*util.QRCode, error)
}

type verificationCodeService struct {
	codeRepo  repository.VerificationCodeRepository
	orderRepo repository.PickupOrderRepository
	audit     AuditService
	log       Logger
	db        *gorm.DB
	cfg       VerificationCodeConfig
}

func NewVerificationCodeService(
	codeRepo repository.VerificationCodeRepository,
	orderRepo repository.PickupOrderRepository,
	audit AuditService,
	log Logger,
	db *gorm.DB,
	cfg VerificationCodeConfig,
) VerificationCodeService {
	defaults := DefaultVerificationCodeConfig()
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = defaults.CodeLength
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaults.CodeTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if log == nil {
		log = logger.Get()
	}
	return &verificationCodeService{
		codeRepo:  codeRepo,
		orderRepo: orderRepo,
		audit:     audit,
		log:       log,
		db:        db,
		cfg:       cfg,
	}
}

func (s *verificationCodeService) now() time.Time {
	return time.Now().UTC()
}

// GeneratePickupCode issues a fresh pending code for the order. Any earlier
// pending code of the same order is cancelled in the same transaction.
func (s *verificationCodeService) GeneratePickupCode(orderID, storeID string) (*model.VerificationCode, error) {
	ctx := map[string]interface{}{
		"order_id": orderID,
		"store_id": storeID,
	}
	if orderID == "" || storeID == "" {
		s.log.Log(logger.LevelWarn, "Pickup code requested without order or store", ctx)
		return nil, ErrGenerationFailure
	}

	for attempt := 1; attempt <= maxGenerateRetries; attempt++ {
		value, err := util.GenerateSecureCode(s.cfg.CodeLength)
		if err != nil {
			s.log.Error("Failed to draw verification code", err, ctx)
			return nil, ErrGenerationFailure
		}

		now := s.now()
		record := &model.VerificationCode{
			Code:        value,
			OrderID:     orderID,
			StoreID:     storeID,
			Type:        model.VerificationCodeTypePickup,
			Status:      model.VerificationCodeStatusPending,
			Attempts:    0,
			MaxAttempts: s.cfg.MaxAttempts,
			ExpiresAt:   now.Add(s.cfg.CodeTTL),
		}

		// a failed audit rolls back the cancel too, leaving the previous code usable
		err = s.db.Transaction(func(tx *gorm.DB) error {
			codeRepo := s.codeRepo.WithTx(tx)
			if _, err := codeRepo.CancelPendingByOrderID(orderID); err != nil {
				return err
			}
			if err := codeRepo.Create(record); err != nil {
				return err
			}
			if err := s.audit.WithTx(tx).LogCodeGeneration(orderID, storeID, record.Type); err != nil {
				return fmt.Errorf("%w: %v", errUnaudited, err)
			}
			return nil
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			s.log.Log(logger.LevelDebug, "Verification code collided, regenerating", map[string]interface{}{
				"order_id": orderID,
				"attempt":  attempt,
			})
			continue
		}
		if errors.Is(err, errUnaudited) {
			s.log.Error("Failed to audit code generation, keeping previous code", err, ctx)
			return nil, ErrGenerationFailure
		}
		if err != nil {
			s.log.Error("Failed to persist verification code", err, ctx)
			return nil, ErrGenerationFailure
		}

		s.log.Log(logger.LevelInfo, "Pickup verification code generated", map[string]interface{}{
			"order_id":   orderID,
			"store_id":   storeID,
			"code_id":    record.ID,
			"expires_at": record.ExpiresAt,
		})
		return record, nil
	}

	s.log.Error("Exhausted retries generating a unique verification code", ErrGenerationFailure, ctx)
	return nil, ErrGenerationFailure
}

// VerifyPickupCode runs the redemption checks in order and stops at the first
// failure. Business failures come back as results, never as errors.
func (s *verificationCodeService) VerifyPickupCode(req VerificationRequest) (result *VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = s.systemFailure(req, fmt.Errorf("panic: %v", r))
		}
	}()

	submitted := util.NormalizeCode(req.VerificationCode)

	record, err := s.lookupCode(submitted, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(req, ReasonCodeNotFound, nil)
		}
		return s.systemFailure(req, err)
	}

	meta := map[string]interface{}{
		"code_id":  record.ID,
		"attempts": record.Attempts,
	}

	if record.OrderID != req.OrderID || record.StoreID != req.StoreID {
		meta["code_order_id"] = record.OrderID
		meta["code_store_id"] = record.StoreID
		return s.fail(req, ReasonCodeMismatch, meta)
	}

	if util.IsCodeExpired(record.ExpiresAt) {
		if err := s.codeRepo.UpdateStatus(record.ID, model.VerificationCodeStatusExpired); err != nil {
			return s.systemFailure(req, err)
		}
		return s.fail(req, ReasonCodeExpired, meta)
	}

	if record.Status == model.VerificationCodeStatusCompleted {
		return s.fail(req, ReasonCodeAlreadyUsed, meta)
	}

	if record.Attempts >= record.MaxAttempts {
		if err := s.codeRepo.UpdateStatus(record.ID, model.VerificationCodeStatusCancelled); err != nil {
			return s.systemFailure(req, err)
		}
		return s.fail(req, ReasonAttemptsExceeded, meta)
	}

	switch record.Status {
	case model.VerificationCodeStatusPending:
	case model.VerificationCodeStatusExpired:
		return s.fail(req, ReasonCodeExpired, meta)
	default:
		return s.fail(req, ReasonCodeCancelled, meta)
	}

	if !util.ValidateCode(submitted, record.Code) {
		counted, err := s.codeRepo.IncrementAttempts(record.ID)
		if err != nil {
			return s.systemFailure(req, err)
		}
		if !counted {
			return s.attemptNotCounted(req, record.ID, meta)
		}
		meta["attempts"] = record.Attempts + 1
		return s.fail(req, ReasonInvalidCode, meta)
	}

	order, err := s.orderRepo.FindByID(record.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.fail(req, ReasonOrderNotFound, meta)
		}
		return s.systemFailure(req, err)
	}

	if order.Status != model.PickupOrderStatusReadyForPickup {
		meta["order_status"] = order.Status
		return s.fail(req, ReasonOrderNotReady, meta)
	}

	pickupTime := s.now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		completed, err := s.codeRepo.WithTx(tx).MarkCompleted(record.ID, pickupTime)
		if err != nil {
			return err
		}
		if !completed {
			return errCodeConsumed
		}

		pickedUp, err := s.orderRepo.WithTx(tx).MarkAsPickedUp(order.ID, pickupTime, req.VerifiedBy)
		if err != nil {
			return err
		}
		if !pickedUp {
			return errOrderMoved
		}
		return nil
	})
	switch {
	case errors.Is(err, errCodeConsumed):
		return s.fail(req, ReasonCodeAlreadyUsed, meta)
	case errors.Is(err, errOrderMoved):
		return s.fail(req, ReasonOrderNotReady, meta)
	case err != nil:
		return s.systemFailure(req, err)
	}

	order.Status = model.PickupOrderStatusPickedUp
	order.PickedUpAt = &pickupTime
	order.PickedUpBy = req.VerifiedBy

	details := map[string]interface{}{
		"code_id":          record.ID,
		"verified_by":      req.VerifiedBy,
		"customer_present": req.CustomerPresent,
		"id_verified":      req.IDVerified,
		"pickup_time":      pickupTime,
	}
	if req.Notes != "" {
		details["notes"] = req.Notes
	}
	if err := s.audit.LogPickupAttempt(req.OrderID, req.StoreID, true, details); err != nil {
		// the pickup is already committed, so the caller still gets success
		s.log.Error("Failed to audit completed pickup", err, map[string]interface{}{
			"order_id": req.OrderID,
			"store_id": req.StoreID,
		})
	}

	s.log.Log(logger.LevelInfo, "Pickup verified", map[string]interface{}{
		"order_id":    order.ID,
		"store_id":    order.StoreID,
		"verified_by": req.VerifiedBy,
	})

	return &VerificationResult{
		Success:    true,
		Order:      order,
		Message:    pickupCompletedMessage,
		Timestamp:  pickupTime,
		VerifiedBy: req.VerifiedBy,
	}
}

// attemptNotCounted reports why a wrong guess could not be charged: another
// request either used up the last try or moved the code out of pending first.
func (s *verificationCodeService) attemptNotCounted(req VerificationRequest, codeID string, meta map[string]interface{}) *VerificationResult {
	current, err := s.codeRepo.FindByID(codeID)
	if err != nil {
		return s.systemFailure(req, err)
	}
	meta["attempts"] = current.Attempts
	meta["code_status"] = current.Status

	switch current.Status {
	case model.VerificationCodeStatusCompleted:
		return s.fail(req, ReasonCodeAlreadyUsed, meta)
	case model.VerificationCodeStatusExpired:
		return s.fail(req, ReasonCodeExpired, meta)
	case model.VerificationCodeStatusCancelled:
		if current.Attempts >= current.MaxAttempts {
			return s.fail(req, ReasonAttemptsExceeded, meta)
		}
		return s.fail(req, ReasonCodeCancelled, meta)
	}

	if err := s.codeRepo.UpdateStatus(codeID, model.VerificationCodeStatusCancelled); err != nil {
		return s.systemFailure(req, err)
	}
	return s.fail(req, ReasonAttemptsExceeded, meta)
}

// lookupCode finds the record the submission refers to. A value that matches
// no record falls back to the order's pending code, so a wrong guess is
// charged against that code's attempts.
func (s *verificationCodeService) lookupCode(submitted, orderID string) (*model.VerificationCode, error) {
	record, err := s.codeRepo.FindByCode(submitted)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) || orderID == "" {
		return record, err
	}
	return s.codeRepo.FindPendingByOrderID(orderID)
}

func (s *verificationCodeService) fail(req VerificationRequest, reason FailureReason, meta map[string]interface{}) *VerificationResult {
	details := map[string]interface{}{
		"reason":           string(reason),
		"verified_by":      req.VerifiedBy,
		"customer_present": req.CustomerPresent,
		"id_verified":      req.IDVerified,
	}
	for k, v := range meta {
		details[k] = v
	}

	if err := s.audit.LogPickupAttempt(req.OrderID, req.StoreID, false, details); err != nil {
		s.log.Error("Failed to audit pickup attempt", err, map[string]interface{}{
			"order_id": req.OrderID,
			"reason":   reason,
		})
	}

	s.log.Log(logger.LevelWarn, "Pickup verification rejected", map[string]interface{}{
		"order_id":    req.OrderID,
		"store_id":    req.StoreID,
		"verified_by": req.VerifiedBy,
		"reason":      reason,
	})

	message, ok := failureMessages[reason]
	if !ok {
		message = defaultFailureMessage
	}
	return &VerificationResult{
		Success:    false,
		Message:    message,
		Timestamp:  s.now(),
		VerifiedBy: req.VerifiedBy,
		Reason:     reason,
	}
}

func (s *verificationCodeService) systemFailure(req VerificationRequest, err error) *VerificationResult {
	s.log.Error("Pickup verification failed unexpectedly", err, map[string]interface{}{
		"order_id":    req.OrderID,
		"store_id":    req.StoreID,
		"verified_by": req.VerifiedBy,
	})
	return s.fail(req, ReasonSystemError, map[string]interface{}{
		"error": err.Error(),
	})
}

// CleanupExpiredCodes is a best-effort sweep: failures are logged and count as zero
func (s *verificationCodeService) CleanupExpiredCodes() int64 {
	removed, err := s.codeRepo.DeleteExpired(s.now())
	if err != nil {
		s.log.Error("Failed to clean up expired verification codes", err, nil)
		return 0
	}

	s.log.Log(logger.LevelInfo, "Expired verification codes cleaned up", map[string]interface{}{
		"removed": removed,
	})
	return removed
}

type qrPayload struct {
	OrderID string                     `json:"orderId"`
	Code    string                     `json:"code"`
	StoreID string                     `json:"storeId"`
	Type    model.VerificationCodeType `json:"type"`
}

// GenerateQRCodeForOrder encodes the order's current pending code
func (s *verificationCodeService) GenerateQRCodeForOrder(orderID string) (*util.QRCode, error) {
	record, err := s.codeRepo.FindPendingByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingCode
		}
		s.log.Error("Failed to load pending code for QR", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, ErrQRCodeFailure
	}
	if util.IsCodeExpired(record.ExpiresAt) {
		return nil, ErrNoPendingCode
	}

	payload, err := json.Marshal(qrPayload{
		OrderID: record.OrderID,
		Code:    record.Code,
		StoreID: record.StoreID,
		Type:    record.Type,
	})
	if err != nil {
		s.log.Error("Failed to serialize QR payload", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, ErrQRCodeFailure
	}

	qr, err := util.GenerateQRCode(string(payload))
	if err != nil {
		s.log.Error("Failed to encode QR code", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, ErrQRCodeFailure
	}

	s.log.Log(logger.LevelDebug, "QR code generated for order", map[string]interface{}{
		"order_id": orderID,
		"code_id":  record.ID,
	})
	return qr, nil
}
