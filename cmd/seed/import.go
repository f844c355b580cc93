package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// 시트 컬럼 순서
const (
	colOrderID = iota
	colOrderNumber
	colStoreID
	colStatus
	colCustomerName
	colCustomerPhone
	colPickupMethod
	colTotalAmount
	colProducts
	colExpiresAt
	requiredColumns = colTotalAmount + 1
)

type importResult struct {
	Orders   []model.PickupOrder
	Skipped  int
	Problems []string
}

func readPickupOrdersFromXLSX(filePath string) (*importResult, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	return parsePickupOrders(f)
}

// parsePickupOrders reads the first sheet. The header row is skipped; bad rows
// are counted and described rather than aborting the import.
func parsePickupOrders(f *excelize.File) (*importResult, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	result := &importResult{}
	seenIDs := make(map[string]bool)
	seenNumbers := make(map[string]bool)

	skip := func(line int, format string, args ...interface{}) {
		result.Skipped++
		result.Problems = append(result.Problems, fmt.Sprintf("row %d: %s", line, fmt.Sprintf(format, args...)))
	}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		line := i + 1

		if len(row) < requiredColumns {
			skip(line, "expected at least %d columns, got %d", requiredColumns, len(row))
			continue
		}

		cell := func(col int) string {
			if col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}

		order := model.PickupOrder{
			ID:            cell(colOrderID),
			OrderNumber:   cell(colOrderNumber),
			StoreID:       cell(colStoreID),
			Status:        model.PickupOrderStatus(strings.ToLower(cell(colStatus))),
			CustomerName:  cell(colCustomerName),
			CustomerPhone: cell(colCustomerPhone),
			PickupMethod:  model.PickupMethod(strings.ToLower(cell(colPickupMethod))),
		}

		if order.ID == "" || order.OrderNumber == "" || order.StoreID == "" {
			skip(line, "order id, order number and store id are required")
			continue
		}
		if seenIDs[order.ID] || seenNumbers[order.OrderNumber] {
			skip(line, "duplicate order %s", order.ID)
			continue
		}

		if order.Status == "" {
			order.Status = model.PickupOrderStatusPreparing
		}
		// 픽업 완료 상태는 인증 코드 사용으로만 도달
		if !order.Status.IsValid() || order.Status == model.PickupOrderStatusPickedUp {
			skip(line, "unsupported status %q", order.Status)
			continue
		}

		switch order.PickupMethod {
		case "":
			order.PickupMethod = model.PickupMethodCounter
		case model.PickupMethodCounter, model.PickupMethodLocker, model.PickupMethodCurbside:
		default:
			skip(line, "unknown pickup method %q", order.PickupMethod)
			continue
		}

		amount, err := strconv.ParseFloat(strings.ReplaceAll(cell(colTotalAmount), ",", ""), 64)
		if err != nil || amount < 0 {
			skip(line, "invalid total amount %q", cell(colTotalAmount))
			continue
		}
		order.TotalAmount = amount

		products, err := parseProducts(cell(colProducts))
		if err != nil {
			skip(line, "%v", err)
			continue
		}
		order.Products = products

		if raw := cell(colExpiresAt); raw != "" {
			expiresAt, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				skip(line, "invalid expires_at %q", raw)
				continue
			}
			utc := expiresAt.UTC()
			order.ExpiresAt = &utc
		}

		if order.Status == model.PickupOrderStatusReadyForPickup {
			now := time.Now().UTC()
			order.ReadyAt = &now
		}

		seenIDs[order.ID] = true
		seenNumbers[order.OrderNumber] = true
		result.Orders = append(result.Orders, order)
	}

	return result, nil
}

// parseProducts reads "SKU|이름|수량|단가" entries separated by ";"
func parseProducts(raw string) (model.PickupProducts, error) {
	if raw == "" {
		return nil, nil
	}

	var products model.PickupProducts
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("product %q must be SKU|name|quantity|price", entry)
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || quantity <= 0 {
			return nil, fmt.Errorf("product %q has invalid quantity", entry)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("product %q has invalid price", entry)
		}
		products = append(products, model.PickupProduct{
			SKU:      strings.TrimSpace(parts[0]),
			Name:     strings.TrimSpace(parts[1]),
			Quantity: quantity,
			Price:    price,
		})
	}
	return products, nil
}
