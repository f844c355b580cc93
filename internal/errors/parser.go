package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 에러를 파싱하여 사용자 친화적인 메시지와 코드로 변환
// 내부 오류 문자열은 절대 그대로 노출하지 않음
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. DB 제약조건 에러 (PostgreSQL / SQLite)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}
	if strings.Contains(errStrLower, "null value") || strings.Contains(errStrLower, "not null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "필수 항목이 누락되었습니다",
		}
	}

	// 3. 네트워크/연결 에러
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}
	if strings.Contains(errStrLower, "database is locked") || strings.Contains(errStrLower, "connection reset") {
		return ErrorInfo{
			Code:    InternalDatabaseError,
			Message: "데이터베이스가 일시적으로 응답하지 않습니다. 잠시 후 다시 시도해주세요",
		}
	}

	// 4. 기본 내부 서버 오류
	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "order_number") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "이미 등록된 주문번호입니다",
		}
	}

	if strings.Contains(errLower, "pkey") || strings.Contains(errLower, "primary key") || strings.Contains(errLower, ".id") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "이미 존재하는 데이터입니다. 다시 시도해주세요",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "이미 존재하는 데이터입니다",
	}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "order") || strings.Contains(contextLower, "주문") {
		return "픽업 주문을 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "code") || strings.Contains(contextLower, "코드") {
		return "인증 코드를 찾을 수 없습니다"
	}
	if strings.Contains(contextLower, "audit") || strings.Contains(contextLower, "감사") {
		return "감사 로그를 찾을 수 없습니다"
	}

	return "요청한 데이터를 찾을 수 없습니다"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "create") || strings.Contains(contextLower, "generate") || strings.Contains(contextLower, "발급") {
		return "발급 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "update") || strings.Contains(contextLower, "수정") {
		return "수정 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "export") || strings.Contains(contextLower, "내보내기") {
		return "내보내기 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}

	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}
