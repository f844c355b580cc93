package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEvent string // 감사 이벤트 종류

const (
	AuditEventCodeGenerated AuditEvent = "code_generated" // 인증 코드 발급
	AuditEventPickupAttempt AuditEvent = "pickup_attempt" // 픽업 인증 시도
)

// JSONMap stores free-form audit metadata as a JSON object
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("failed to scan JSONMap")
	}
}

// AuditLog is append-only: the repository exposes no update or delete
type AuditLog struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`            // 감사 로그 ID (UUID)
	Event     AuditEvent `gorm:"type:varchar(30);index;not null" json:"event"`     // 이벤트 종류
	OrderID   string     `gorm:"type:varchar(64);index" json:"order_id"`           // 주문 ID
	StoreID   string     `gorm:"type:varchar(64);index" json:"store_id,omitempty"` // 매장 ID
	CodeType  string     `gorm:"type:varchar(20)" json:"code_type,omitempty"`      // 코드 용도
	Success   bool       `gorm:"index" json:"success"`                             // 성공 여부
	Reason    string     `gorm:"type:varchar(40);index" json:"reason,omitempty"`   // 실패 사유 코드
	Details   JSONMap    `gorm:"type:text" json:"details,omitempty"`               // 부가 정보
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                          // 기록 시각
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
