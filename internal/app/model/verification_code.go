package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationCodeType string   // 인증 코드 용도
type VerificationCodeStatus string // 인증 코드 상태

const (
	VerificationCodeTypePickup VerificationCodeType = "pickup" // 매장 픽업

	VerificationCodeStatusPending   VerificationCodeStatus = "pending"   // 사용 대기
	VerificationCodeStatusCompleted VerificationCodeStatus = "completed" // 사용 완료
	VerificationCodeStatusExpired   VerificationCodeStatus = "expired"   // 만료
	VerificationCodeStatusCancelled VerificationCodeStatus = "cancelled" // 취소 (시도 초과 또는 재발급)
)

// IsFinal reports whether no further transition is allowed from s
func (s VerificationCodeStatus) IsFinal() bool {
	return s != VerificationCodeStatusPending
}

type VerificationCode struct {
	ID          string                 `gorm:"primaryKey;type:varchar(36)" json:"id"`                   // 코드 레코드 ID (UUID)
	Code        string                 `gorm:"type:varchar(16);index:idx_verification_codes_code_status;not null" json:"-"` // 인증 코드 (노출 금지)
	OrderID     string                 `gorm:"type:varchar(64);index;not null" json:"order_id"`         // 주문 ID
	StoreID     string                 `gorm:"type:varchar(64);index;not null" json:"store_id"`         // 매장 ID
	Type        VerificationCodeType   `gorm:"type:varchar(20);default:'pickup'" json:"type"`           // 용도
	Status      VerificationCodeStatus `gorm:"type:varchar(20);default:'pending';index:idx_verification_codes_code_status" json:"status"` // 상태
	Attempts    int                    `gorm:"not null;default:0" json:"attempts"`                      // 실패 시도 횟수
	MaxAttempts int                    `gorm:"not null;default:3" json:"max_attempts"`                  // 최대 시도 횟수
	ExpiresAt   time.Time              `gorm:"not null;index" json:"expires_at"`                        // 만료 시각
	UsedAt      *time.Time             `json:"used_at,omitempty"`                                       // 사용 시각 (completed 전용)
	CreatedAt   time.Time              `json:"created_at"`                                              // 생성 시각
	UpdatedAt   time.Time              `json:"updated_at"`                                              // 수정 시각
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

func (v *VerificationCode) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
