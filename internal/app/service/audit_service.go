package service

import (
	"fmt"
	"io"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/internal/messaging"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const auditSheetName = "Pickup Attempts"

// AuditService keeps the append-only trail of code issuance and redemption attempts
type AuditService interface {
	// WithTx returns a service whose rows are written inside tx
	WithTx(tx *gorm.DB) AuditService
	LogPickupAttempt(orderID, storeID string, success bool, details map[string]interface{}) error
	LogCodeGeneration(orderID, storeID string, codeType model.VerificationCodeType) error
	ListAttempts(filter repository.AuditLogFilter) ([]model.AuditLog, error)
	ExportAttempts(w io.Writer, filter repository.AuditLogFilter) error
}

type auditService struct {
	auditRepo repository.AuditLogRepository
	publisher messaging.EventPublisher
}

func NewAuditService(auditRepo repository.AuditLogRepository, publisher messaging.EventPublisher) AuditService {
	if publisher == nil {
		publisher = messaging.NewNoopPublisher()
	}
	return &auditService{
		auditRepo: auditRepo,
		publisher: publisher,
	}
}

func (s *auditService) WithTx(tx *gorm.DB) AuditService {
	return &auditService{
		auditRepo: s.auditRepo.WithTx(tx),
		publisher: s.publisher,
	}
}

// LogPickupAttempt stores the attempt and then announces it. A "reason" entry in
// details is promoted to its own column.
func (s *auditService) LogPickupAttempt(orderID, storeID string, success bool, details map[string]interface{}) error {
	entry := &model.AuditLog{
		Event:    model.AuditEventPickupAttempt,
		OrderID:  orderID,
		StoreID:  storeID,
		CodeType: string(model.VerificationCodeTypePickup),
		Success:  success,
		Details:  model.JSONMap{},
	}
	for k, v := range details {
		if k == "reason" {
			entry.Reason = fmt.Sprint(v)
			continue
		}
		entry.Details[k] = v
	}

	if err := s.auditRepo.Create(entry); err != nil {
		return fmt.Errorf("failed to record pickup attempt: %w", err)
	}

	event := messaging.PickupEvent{
		Type:       messaging.EventPickupFailed,
		OrderID:    orderID,
		StoreID:    storeID,
		Success:    success,
		Reason:     entry.Reason,
		OccurredAt: entry.CreatedAt,
	}
	if success {
		event.Type = messaging.EventPickupSuccess
	}
	if v, ok := details["verified_by"].(string); ok {
		event.VerifiedBy = v
	}
	s.publish(event)

	return nil
}

func (s *auditService) LogCodeGeneration(orderID, storeID string, codeType model.VerificationCodeType) error {
	entry := &model.AuditLog{
		Event:    model.AuditEventCodeGenerated,
		OrderID:  orderID,
		StoreID:  storeID,
		CodeType: string(codeType),
		Success:  true,
	}
	if err := s.auditRepo.Create(entry); err != nil {
		return fmt.Errorf("failed to record code generation: %w", err)
	}

	s.publish(messaging.PickupEvent{
		Type:       messaging.EventCodeGenerated,
		OrderID:    orderID,
		StoreID:    storeID,
		Success:    true,
		OccurredAt: entry.CreatedAt,
	})
	return nil
}

// publish is best effort: the database row is the record of truth
func (s *auditService) publish(event messaging.PickupEvent) {
	if err := s.publisher.PublishPickupEvent(event); err != nil {
		logger.Warn("Pickup event not published", map[string]interface{}{
			"order_id": event.OrderID,
			"type":     event.Type,
			"error":    err.Error(),
		})
	}
}

func (s *auditService) ListAttempts(filter repository.AuditLogFilter) ([]model.AuditLog, error) {
	filter.Event = model.AuditEventPickupAttempt
	return s.auditRepo.List(filter)
}

// ExportAttempts writes the filtered attempts as an XLSX workbook
func (s *auditService) ExportAttempts(w io.Writer, filter repository.AuditLogFilter) error {
	entries, err := s.ListAttempts(filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", auditSheetName); err != nil {
		return fmt.Errorf("failed to prepare audit sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(auditSheetName)
	if err != nil {
		return fmt.Errorf("failed to create audit sheet writer: %w", err)
	}

	headers := []interface{}{"Time", "Order ID", "Store ID", "Success", "Reason", "Verified By", "Customer Present", "ID Verified", "Notes"}
	if err := sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("failed to write audit header: %w", err)
	}

	for i, e := range entries {
		row := []interface{}{
			e.CreatedAt.UTC().Format(time.RFC3339),
			sanitizeForExcel(e.OrderID),
			sanitizeForExcel(e.StoreID),
			e.Success,
			e.Reason,
			sanitizeForExcel(detailString(e.Details, "verified_by")),
			detailString(e.Details, "customer_present"),
			detailString(e.Details, "id_verified"),
			sanitizeForExcel(detailString(e.Details, "notes")),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write audit row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit sheet: %w", err)
	}

	logger.Info("Pickup attempts exported", map[string]interface{}{
		"rows": len(entries),
	})
	return f.Write(w)
}

func detailString(details model.JSONMap, key string) string {
	v, ok := details[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// sanitizeForExcel neutralizes values a spreadsheet would evaluate as a formula
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
