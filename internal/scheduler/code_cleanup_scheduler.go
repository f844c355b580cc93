package scheduler

import (
	"sync"

	"github.com/ikkim/storeops-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ExpiredCodeCleaner 만료 인증 코드 정리 대상 (VerificationCodeService가 구현)
type ExpiredCodeCleaner interface {
	CleanupExpiredCodes() int64
}

// CodeCleanupScheduler 만료된 픽업 인증 코드 정리 스케줄러
type CodeCleanupScheduler struct {
	cron     *cron.Cron
	cleaner  ExpiredCodeCleaner
	schedule string
	mu       sync.Mutex // 이전 정리가 끝나기 전에 다음 실행이 겹치지 않도록
}

// NewCodeCleanupScheduler 정리 스케줄러 생성
// schedule은 표준 5필드 cron 표현식 (예: "0 * * * *" = 매시 정각)
func NewCodeCleanupScheduler(cleaner ExpiredCodeCleaner, schedule string) *CodeCleanupScheduler {
	return &CodeCleanupScheduler{
		cron:     cron.New(),
		cleaner:  cleaner,
		schedule: schedule,
	}
}

// Start 스케줄러 시작
func (s *CodeCleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce()
	})
	if err != nil {
		logger.Error("Failed to add cron job for verification code cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Verification code cleanup scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

// RunOnce 정리 작업 1회 실행, 삭제된 코드 수 반환
// 이미 실행 중이면 건너뜀
func (s *CodeCleanupScheduler) RunOnce() int64 {
	if !s.mu.TryLock() {
		logger.Warn("Verification code cleanup already running, skipping", nil)
		return 0
	}
	defer s.mu.Unlock()

	logger.Info("Starting scheduled verification code cleanup", nil)
	deleted := s.cleaner.CleanupExpiredCodes()
	logger.Info("Finished scheduled verification code cleanup", map[string]interface{}{
		"deleted": deleted,
	})
	return deleted
}

// Stop 스케줄러 중지, 실행 중인 작업 완료까지 대기
func (s *CodeCleanupScheduler) Stop() {
	logger.Info("Stopping verification code cleanup scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Verification code cleanup scheduler stopped", nil)
}
