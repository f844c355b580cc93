package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/storeops-backend/config"
	"github.com/ikkim/storeops-backend/internal/app/controller"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/internal/app/service"
	"github.com/ikkim/storeops-backend/internal/db"
	"github.com/ikkim/storeops-backend/internal/messaging"
	"github.com/ikkim/storeops-backend/internal/middleware"
	"github.com/ikkim/storeops-backend/internal/router"
	"github.com/ikkim/storeops-backend/internal/scheduler"
	"github.com/ikkim/storeops-backend/internal/storage"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"github.com/ikkim/storeops-backend/pkg/redis"
	"github.com/ikkim/storeops-backend/pkg/sms"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := logger.LevelInfo
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = logger.LevelDebug
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting StoreOps pickup server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	healthChecks := []router.HealthCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.GetDB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	// Redis only backs the verify rate limiter; without it the limiter is off
	var rateLimiter *middleware.RateLimiter
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, verify rate limiting disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redis.Close()
			rateLimiter = middleware.NewRateLimiter(redis.GetClient())
			healthChecks = append(healthChecks, router.HealthCheck{Name: "redis", Check: redis.Ping})
		}
	}

	// Pickup events go to NATS when configured
	publisher := messaging.NewNoopPublisher()
	if cfg.NATS.URL != "" {
		natsPublisher, err := messaging.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.Warn("NATS unavailable, pickup events will not be published", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			publisher = natsPublisher
		}
	}
	defer publisher.Close()

	var qrStorage storage.QRCodeStorage
	if cfg.S3.Enabled() {
		qrStorage = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		)
		logger.Info("QR code publishing enabled", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
		})
	}

	// Without SENS credentials the sender only logs
	smsSender := sms.NewSENSSender(sms.Config{
		ServiceID:  cfg.SMS.ServiceID,
		AccessKey:  cfg.SMS.AccessKey,
		SecretKey:  cfg.SMS.SecretKey,
		FromNumber: cfg.SMS.FromNumber,
		SenderName: cfg.SMS.SenderName,
	})

	// Initialize repositories
	orderRepo := repository.NewPickupOrderRepository(db.GetDB())
	codeRepo := repository.NewVerificationCodeRepository(db.GetDB())
	auditRepo := repository.NewAuditLogRepository(db.GetDB())

	// Initialize services
	auditService := service.NewAuditService(auditRepo, publisher)
	codeService := service.NewVerificationCodeService(
		codeRepo,
		orderRepo,
		auditService,
		logger.Get(),
		db.GetDB(),
		service.VerificationCodeConfig{
			CodeLength:  cfg.Pickup.CodeLength,
			CodeTTL:     cfg.Pickup.CodeTTL,
			MaxAttempts: cfg.Pickup.MaxAttempts,
		},
	)
	orderService := service.NewPickupOrderService(orderRepo, codeRepo, db.GetDB())

	// Initialize controllers
	pickupController := controller.NewPickupController(codeService, orderService, auditService, qrStorage, smsSender)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(pickupController, authMiddleware, rateLimiter, cfg, healthChecks...)
	engine := r.Setup()

	cleanupScheduler := scheduler.NewCodeCleanupScheduler(codeService, cfg.Pickup.CleanupSchedule)
	if err := cleanupScheduler.Start(); err != nil {
		logger.Fatal("Failed to start verification code cleanup scheduler", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	cleanupScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
