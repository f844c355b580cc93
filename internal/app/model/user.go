package model

type UserRole string // 대시보드 사용자 권한

const (
	RoleStaff   UserRole = "staff"   // 매장 직원 (픽업 인증)
	RoleManager UserRole = "manager" // 매장 관리자
	RoleAdmin   UserRole = "admin"   // 본사 관리자
)
