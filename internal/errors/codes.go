package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 대시보드 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // 접근 권한 없음
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // 권한 정보 없음
	AuthzStoreOnly    = "AUTHZ_STORE_ONLY"     // 소속 매장만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 픽업 (PICKUP_) ====================
	PickupOrderNotFound        = "PICKUP_ORDER_NOT_FOUND"        // 픽업 주문 없음
	PickupInvalidStatus        = "PICKUP_INVALID_STATUS"         // 허용되지 않는 상태 변경
	PickupCodeGenerationFailed = "PICKUP_CODE_GENERATION_FAILED" // 인증 코드 발급 실패
	PickupCodeNotIssued        = "PICKUP_CODE_NOT_ISSUED"        // 유효한 인증 코드 없음
	PickupVerificationFailed   = "PICKUP_VERIFICATION_FAILED"    // 픽업 인증 실패
	PickupQRCodeFailed         = "PICKUP_QR_CODE_FAILED"         // QR 코드 생성 실패

	// ==================== 요청 제한 (RATE_LIMIT_) ====================
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED" // 요청 과다

	// ==================== 업로드 (UPLOAD_) ====================
	UploadFailed      = "UPLOAD_FAILED"      // 업로드 실패
	UploadUnavailable = "UPLOAD_UNAVAILABLE" // 저장소 미설정

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
