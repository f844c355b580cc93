package errors

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 매장 대시보드가 받는 에러 본문
// Error 코드는 codes.go 상수, Message는 직원에게 그대로 보여줄 한글 문장
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondWithError 에러 응답을 쓰고 이후 핸들러 실행을 중단한다
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func Unauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, orDefault(message, "로그인이 필요합니다"))
}

func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, orDefault(message, "접근 권한이 없습니다"))
}

// StoreOnly 다른 매장의 주문이나 기록에 접근한 직원에게 응답
func StoreOnly(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, AuthzStoreOnly, orDefault(message, "소속 매장의 주문만 처리할 수 있습니다"))
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

// TooManyRequests 인증 시도 제한에 걸린 요청, retryAfter는 초 단위
func TooManyRequests(c *gin.Context, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	RespondWithError(c, http.StatusTooManyRequests, RateLimitExceeded, "요청이 너무 많습니다. 잠시 후 다시 시도해주세요")
}

// StorageUnavailable QR 이미지 저장소(S3)가 설정되지 않은 환경
func StorageUnavailable(c *gin.Context) {
	RespondWithError(c, http.StatusServiceUnavailable, UploadUnavailable, "파일 저장소가 설정되지 않았습니다")
}

func InternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, orDefault(message, "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"))
}
