package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type PickupOrderStatus string // 픽업 주문 상태
type PickupMethod string      // 픽업 방식

const (
	PickupOrderStatusPreparing      PickupOrderStatus = "preparing"        // 상품 준비 중
	PickupOrderStatusReadyForPickup PickupOrderStatus = "ready_for_pickup" // 픽업 대기
	PickupOrderStatusPickedUp       PickupOrderStatus = "picked_up"        // 픽업 완료
	PickupOrderStatusExpired        PickupOrderStatus = "expired"          // 픽업 기한 만료
	PickupOrderStatusCancelled      PickupOrderStatus = "cancelled"        // 매장 취소

	PickupMethodCounter  PickupMethod = "counter"  // 매장 카운터 수령
	PickupMethodLocker   PickupMethod = "locker"   // 픽업 보관함
	PickupMethodCurbside PickupMethod = "curbside" // 차량 수령
)

// IsValid reports whether s is one of the known order states
func (s PickupOrderStatus) IsValid() bool {
	switch s {
	case PickupOrderStatusPreparing, PickupOrderStatusReadyForPickup, PickupOrderStatusPickedUp,
		PickupOrderStatusExpired, PickupOrderStatusCancelled:
		return true
	}
	return false
}

// PickupProduct 픽업 주문 상품 스냅샷
type PickupProduct struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// PickupProducts is stored as a JSON document so the same column works on
// PostgreSQL and the SQLite test database.
type PickupProducts []PickupProduct

// Value는 database/sql/driver.Valuer 인터페이스 구현
func (p PickupProducts) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan은 database/sql.Scanner 인터페이스 구현
func (p *PickupProducts) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("failed to scan PickupProducts")
	}
}

type PickupOrder struct {
	ID            string            `gorm:"primaryKey;type:varchar(64)" json:"id"`                      // 주문 ID
	OrderNumber   string            `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_number"`  // 고객 안내용 주문번호
	StoreID       string            `gorm:"type:varchar(64);index;not null" json:"store_id"`            // 픽업 매장 ID
	Status        PickupOrderStatus `gorm:"type:varchar(20);default:'preparing';index" json:"status"`   // 주문 상태
	Products      PickupProducts    `gorm:"type:text" json:"products"`                                  // 상품 목록
	TotalAmount   float64           `gorm:"not null;default:0" json:"total_amount"`                     // 총 결제 금액
	PickupMethod  PickupMethod      `gorm:"type:varchar(20);default:'counter'" json:"pickup_method"`    // 픽업 방식
	CustomerName  string            `gorm:"type:varchar(100)" json:"customer_name"`                     // 수령인 이름
	CustomerPhone string            `gorm:"type:varchar(30)" json:"customer_phone,omitempty"`           // 수령인 연락처
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`                                       // 픽업 기한
	ReadyAt       *time.Time        `json:"ready_at,omitempty"`                                         // 픽업 준비 완료 시각
	PickedUpAt    *time.Time        `json:"picked_up_at,omitempty"`                                     // 수령 시각
	PickedUpBy    string            `gorm:"type:varchar(64)" json:"picked_up_by,omitempty"`             // 수령 확인 직원
	CreatedAt     time.Time         `json:"created_at"`                                                 // 생성 시각
	UpdatedAt     time.Time         `json:"updated_at"`                                                 // 수정 시각
}

func (PickupOrder) TableName() string {
	return "pickup_orders"
}
