package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/internal/app/service"
	apperrors "github.com/ikkim/storeops-backend/internal/errors"
	"github.com/ikkim/storeops-backend/internal/middleware"
	"github.com/ikkim/storeops-backend/internal/storage"
	"github.com/ikkim/storeops-backend/pkg/sms"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// CodeNotifier delivers a freshly issued code to the customer's phone
type CodeNotifier interface {
	SendPickupCode(ctx context.Context, phone string, msg sms.PickupCodeMessage) error
}

type PickupController struct {
	codeService  service.VerificationCodeService
	orderService service.PickupOrderService
	auditService service.AuditService
	qrStorage    storage.QRCodeStorage
	notifier     CodeNotifier
}

// NewPickupController wires the pickup endpoints. qrStorage and notifier may
// be nil: publishing then answers 503 and SMS delivery is skipped.
func NewPickupController(
	codeService service.VerificationCodeService,
	orderService service.PickupOrderService,
	auditService service.AuditService,
	qrStorage storage.QRCodeStorage,
	notifier CodeNotifier,
) *PickupController {
	return &PickupController{
		codeService:  codeService,
		orderService: orderService,
		auditService: auditService,
		qrStorage:    qrStorage,
		notifier:     notifier,
	}
}

type VerifyPickupRequest struct {
	OrderID          string `json:"order_id" binding:"required"`
	VerificationCode string `json:"verification_code" binding:"required"`
	StoreID          string `json:"store_id" binding:"required"`
	CustomerPresent  bool   `json:"customer_present"`
	IDVerified       bool   `json:"id_verified"`
	Notes            string `json:"notes" binding:"max=500"`
}

type UpdatePickupStatusRequest struct {
	Status model.PickupOrderStatus `json:"status" binding:"required"`
}

type auditQuery struct {
	Event   model.AuditEvent `form:"event"`
	OrderID string           `form:"order_id"`
	StoreID string           `form:"store_id"`
	Success *bool            `form:"success"`
	Since   time.Time        `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until   time.Time        `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit   int              `form:"limit" binding:"omitempty,min=1"`
}

// loadAccessibleOrder fetches the order named by the :id param and checks the
// caller may act on its store. It writes the error response itself.
func (ctrl *PickupController) loadAccessibleOrder(c *gin.Context) (*model.PickupOrder, bool) {
	log := middleware.GetLoggerFromContext(c)
	orderID := c.Param("id")

	order, err := ctrl.orderService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, service.ErrPickupOrderNotFound) {
			log.Warn("Pickup order not found", map[string]interface{}{
				"order_id": orderID,
			})
			apperrors.NotFound(c, apperrors.PickupOrderNotFound, "픽업 주문을 찾을 수 없습니다")
			return nil, false
		}
		log.Error("Failed to fetch pickup order", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.InternalError(c, "")
		return nil, false
	}

	if !middleware.CanAccessStore(c, order.StoreID) {
		userStore, _ := middleware.GetUserStoreID(c)
		log.Warn("Pickup order belongs to another store", map[string]interface{}{
			"order_id":      order.ID,
			"order_store":   order.StoreID,
			"user_store_id": userStore,
		})
		apperrors.StoreOnly(c, "")
		return nil, false
	}

	return order, true
}

// GenerateCode issues a new pickup code for an order. With ?notify=sms the
// code is also texted to the customer; a failed SMS does not undo the code.
// POST /api/v1/pickup/orders/:id/code
func (ctrl *PickupController) GenerateCode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	order, ok := ctrl.loadAccessibleOrder(c)
	if !ok {
		return
	}

	switch order.Status {
	case model.PickupOrderStatusPreparing, model.PickupOrderStatusReadyForPickup:
	default:
		log.Warn("Pickup code requested for closed order", map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
		})
		apperrors.Conflict(c, apperrors.PickupInvalidStatus, "이미 종료된 주문입니다")
		return
	}

	record, err := ctrl.codeService.GeneratePickupCode(order.ID, order.StoreID)
	if err != nil {
		log.Error("Failed to generate pickup code", err, map[string]interface{}{
			"order_id": order.ID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.PickupCodeGenerationFailed, "인증 코드 발급에 실패했습니다")
		return
	}

	smsSent := false
	if c.Query("notify") == "sms" {
		smsSent = ctrl.notifyCustomer(c, order, record)
	}

	log.Info("Pickup code issued", map[string]interface{}{
		"order_id": order.ID,
		"code_id":  record.ID,
		"sms_sent": smsSent,
	})

	c.JSON(http.StatusCreated, gin.H{
		"code_id":      record.ID,
		"code":         record.Code,
		"order_id":     record.OrderID,
		"store_id":     record.StoreID,
		"type":         record.Type,
		"expires_at":   record.ExpiresAt,
		"max_attempts": record.MaxAttempts,
		"sms_sent":     smsSent,
	})
}

func (ctrl *PickupController) notifyCustomer(c *gin.Context, order *model.PickupOrder, record *model.VerificationCode) bool {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.notifier == nil || order.CustomerPhone == "" {
		log.Warn("Pickup code SMS skipped", map[string]interface{}{
			"order_id":     order.ID,
			"has_notifier": ctrl.notifier != nil,
			"has_phone":    order.CustomerPhone != "",
		})
		return false
	}

	err := ctrl.notifier.SendPickupCode(c.Request.Context(), order.CustomerPhone, sms.PickupCodeMessage{
		OrderNumber: order.OrderNumber,
		Code:        record.Code,
		ExpiresAt:   record.ExpiresAt,
	})
	if err != nil {
		log.Error("Failed to text pickup code", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return false
	}
	return true
}

func (ctrl *PickupController) renderQRCode(c *gin.Context, orderID string) ([]byte, bool) {
	log := middleware.GetLoggerFromContext(c)

	qr, err := ctrl.codeService.GenerateQRCodeForOrder(orderID)
	if err != nil {
		if errors.Is(err, service.ErrNoPendingCode) {
			log.Warn("No pending pickup code for QR", map[string]interface{}{
				"order_id": orderID,
			})
			apperrors.NotFound(c, apperrors.PickupCodeNotIssued, "유효한 인증 코드가 없습니다. 코드를 먼저 발급해주세요")
			return nil, false
		}
		log.Error("Failed to generate pickup QR code", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.PickupQRCodeFailed, "QR 코드 생성에 실패했습니다")
		return nil, false
	}
	return qr.PNG, true
}

// GetQRCode renders the order's pending code as a PNG
// GET /api/v1/pickup/orders/:id/qrcode
func (ctrl *PickupController) GetQRCode(c *gin.Context) {
	order, ok := ctrl.loadAccessibleOrder(c)
	if !ok {
		return
	}

	png, ok := ctrl.renderQRCode(c, order.ID)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// PublishQRCode uploads the QR image and returns a short-lived link the
// customer can open
// POST /api/v1/pickup/orders/:id/qrcode/publish
func (ctrl *PickupController) PublishQRCode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.qrStorage == nil {
		log.Warn("QR publishing requested without storage", nil)
		apperrors.StorageUnavailable(c)
		return
	}

	order, ok := ctrl.loadAccessibleOrder(c)
	if !ok {
		return
	}

	png, ok := ctrl.renderQRCode(c, order.ID)
	if !ok {
		return
	}

	upload, err := ctrl.qrStorage.UploadQRCode(c.Request.Context(), order.ID, png)
	if err != nil {
		log.Error("Failed to publish pickup QR code", err, map[string]interface{}{
			"order_id": order.ID,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.UploadFailed, "QR 코드 업로드에 실패했습니다")
		return
	}

	log.Info("Pickup QR code published", map[string]interface{}{
		"order_id": order.ID,
		"key":      upload.Key,
	})

	c.JSON(http.StatusOK, gin.H{
		"upload": upload,
	})
}

// GetOrderByNumber looks an order up by the number printed on the receipt
// GET /api/v1/pickup/orders/number/:number
func (ctrl *PickupController) GetOrderByNumber(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	number := c.Param("number")

	order, err := ctrl.orderService.GetOrderByNumber(number)
	if err != nil {
		if errors.Is(err, service.ErrPickupOrderNotFound) {
			apperrors.NotFound(c, apperrors.PickupOrderNotFound, "픽업 주문을 찾을 수 없습니다")
			return
		}
		log.Error("Failed to fetch pickup order by number", err, map[string]interface{}{
			"order_number": number,
		})
		apperrors.InternalError(c, "")
		return
	}

	// another store's order is reported as missing
	if !middleware.CanAccessStore(c, order.StoreID) {
		log.Warn("Order number lookup outside own store", map[string]interface{}{
			"order_number": number,
			"order_store":  order.StoreID,
		})
		apperrors.NotFound(c, apperrors.PickupOrderNotFound, "픽업 주문을 찾을 수 없습니다")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// ListStoreOrders returns a store's pickup orders, optionally filtered by status
// GET /api/v1/pickup/stores/:store_id/orders
func (ctrl *PickupController) ListStoreOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	storeID := c.Param("store_id")
	status := model.PickupOrderStatus(c.Query("status"))

	orders, err := ctrl.orderService.ListStoreOrders(storeID, status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatusTransition) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "알 수 없는 주문 상태입니다")
			return
		}
		log.Error("Failed to list store pickup orders", err, map[string]interface{}{
			"store_id": storeID,
			"status":   status,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateOrderStatus applies a staff status change (ready, cancelled, expired)
// PUT /api/v1/pickup/orders/:id/status
func (ctrl *PickupController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req UpdatePickupStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid pickup status request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "요청 형식이 올바르지 않습니다")
		return
	}

	order, ok := ctrl.loadAccessibleOrder(c)
	if !ok {
		return
	}

	updated, err := ctrl.orderService.UpdateStatus(order.ID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatusTransition):
			apperrors.Conflict(c, apperrors.PickupInvalidStatus, "현재 상태에서 변경할 수 없는 주문 상태입니다")
		case errors.Is(err, service.ErrPickupOrderNotFound):
			apperrors.NotFound(c, apperrors.PickupOrderNotFound, "픽업 주문을 찾을 수 없습니다")
		default:
			log.Error("Failed to update pickup order status", err, map[string]interface{}{
				"order_id": order.ID,
				"status":   req.Status,
			})
			info := apperrors.ParseError(err, "update")
			apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		}
		return
	}

	log.Info("Pickup order status changed by staff", map[string]interface{}{
		"order_id": updated.ID,
		"from":     order.Status,
		"to":       updated.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": updated,
	})
}

// VerifyPickup redeems a pickup code at the counter. The verifying employee is
// taken from the token, never from the body.
// POST /api/v1/pickup/verify
func (ctrl *PickupController) VerifyPickup(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req VerifyPickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid pickup verification request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "주문 ID, 매장 ID, 인증 코드를 모두 입력해주세요")
		return
	}

	if !middleware.CanAccessStore(c, req.StoreID) {
		log.Warn("Pickup verification for another store", map[string]interface{}{
			"user_id":  userID,
			"store_id": req.StoreID,
		})
		apperrors.StoreOnly(c, "")
		return
	}

	result := ctrl.codeService.VerifyPickupCode(service.VerificationRequest{
		OrderID:          req.OrderID,
		VerificationCode: req.VerificationCode,
		StoreID:          req.StoreID,
		VerifiedBy:       strconv.FormatUint(uint64(userID), 10),
		CustomerPresent:  req.CustomerPresent,
		IDVerified:       req.IDVerified,
		Notes:            req.Notes,
	})

	switch {
	case result.Success:
		c.JSON(http.StatusOK, result)
	case result.Reason == service.ReasonSystemError:
		c.JSON(http.StatusInternalServerError, result)
	default:
		c.JSON(http.StatusUnprocessableEntity, result)
	}
}

// CleanupExpiredCodes runs the expired-code sweep on demand
// POST /api/v1/pickup/codes/cleanup
func (ctrl *PickupController) CleanupExpiredCodes(c *gin.Context) {
	removed := ctrl.codeService.CleanupExpiredCodes()

	middleware.GetLoggerFromContext(c).Info("Manual verification code cleanup", map[string]interface{}{
		"removed": removed,
	})

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
	})
}

// bindAuditFilter parses the audit query. Managers are pinned to their own store.
func (ctrl *PickupController) bindAuditFilter(c *gin.Context) (repository.AuditLogFilter, bool) {
	log := middleware.GetLoggerFromContext(c)

	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		log.Warn("Invalid audit query", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "조회 조건 형식이 올바르지 않습니다")
		return repository.AuditLogFilter{}, false
	}

	switch q.Event {
	case "", model.AuditEventCodeGenerated, model.AuditEventPickupAttempt:
	default:
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "알 수 없는 이벤트 종류입니다")
		return repository.AuditLogFilter{}, false
	}

	if role, _ := middleware.GetUserRole(c); role != model.RoleAdmin {
		userStore, _ := middleware.GetUserStoreID(c)
		if q.StoreID == "" {
			q.StoreID = userStore
		}
		if !middleware.CanAccessStore(c, q.StoreID) {
			apperrors.StoreOnly(c, "소속 매장의 기록만 조회할 수 있습니다")
			return repository.AuditLogFilter{}, false
		}
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	return repository.AuditLogFilter{
		Event:   q.Event,
		OrderID: q.OrderID,
		StoreID: q.StoreID,
		Success: q.Success,
		Since:   q.Since,
		Until:   q.Until,
		Limit:   limit,
	}, true
}

// ListAudit returns recorded code issuance and pickup attempts, newest first
// GET /api/v1/pickup/audit
func (ctrl *PickupController) ListAudit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, ok := ctrl.bindAuditFilter(c)
	if !ok {
		return
	}

	entries, err := ctrl.auditService.ListAttempts(filter)
	if err != nil {
		log.Error("Failed to list audit entries", err, map[string]interface{}{
			"store_id": filter.StoreID,
			"order_id": filter.OrderID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// ExportAudit downloads the filtered audit trail as a spreadsheet
// GET /api/v1/pickup/audit/export
func (ctrl *PickupController) ExportAudit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter, ok := ctrl.bindAuditFilter(c)
	if !ok {
		return
	}
	if c.Query("limit") == "" {
		filter.Limit = maxAuditLimit
	}

	// buffered so a failed export can still answer with a JSON error
	var buf bytes.Buffer
	if err := ctrl.auditService.ExportAttempts(&buf, filter); err != nil {
		log.Error("Failed to export audit entries", err, map[string]interface{}{
			"store_id": filter.StoreID,
		})
		info := apperrors.ParseError(err, "export")
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
		return
	}

	filename := fmt.Sprintf("pickup-attempts-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
