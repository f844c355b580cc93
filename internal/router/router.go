package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storeops-backend/config"
	"github.com/ikkim/storeops-backend/internal/app/controller"
	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/middleware"
)

// HealthCheck probes one dependency for /health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Router struct {
	pickupController *controller.PickupController
	authMiddleware   *middleware.AuthMiddleware
	rateLimiter      *middleware.RateLimiter
	healthChecks     []HealthCheck
	config           *config.Config
}

// NewRouter builds the HTTP surface. rateLimiter may be nil when Redis is not configured.
func NewRouter(
	pickupController *controller.PickupController,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	cfg *config.Config,
	healthChecks ...HealthCheck,
) *Router {
	return &Router{
		pickupController: pickupController,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		healthChecks:     healthChecks,
		config:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.health)

	verifyLimit := middleware.RateLimitConfig{
		MaxRequests: r.config.RateLimit.VerifyMaxRequests,
		Window:      r.config.RateLimit.VerifyWindow,
		KeyPrefix:   middleware.DefaultVerifyRateLimitConfig().KeyPrefix,
	}

	v1 := router.Group("/api/v1")
	{
		pickup := v1.Group("/pickup")
		pickup.Use(r.authMiddleware.Authenticate())
		{
			pickup.POST("/orders/:id/code", r.pickupController.GenerateCode)
			pickup.GET("/orders/:id/qrcode", r.pickupController.GetQRCode)
			pickup.POST("/orders/:id/qrcode/publish", r.pickupController.PublishQRCode)
			pickup.GET("/orders/number/:number", r.pickupController.GetOrderByNumber)
			pickup.PUT("/orders/:id/status", r.pickupController.UpdateOrderStatus)
			pickup.GET("/stores/:store_id/orders",
				r.authMiddleware.RequireStoreParam("store_id"),
				r.pickupController.ListStoreOrders,
			)

			pickup.POST("/verify",
				r.rateLimiter.LimitByUser(verifyLimit),
				r.pickupController.VerifyPickup,
			)

			pickup.POST("/codes/cleanup",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.pickupController.CleanupExpiredCodes,
			)
			pickup.GET("/audit",
				r.authMiddleware.RequireRole(model.RoleManager, model.RoleAdmin),
				r.pickupController.ListAudit,
			)
			pickup.GET("/audit/export",
				r.authMiddleware.RequireRole(model.RoleManager, model.RoleAdmin),
				r.pickupController.ExportAudit,
			)
		}
	}

	return router
}

func (r *Router) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for _, hc := range r.healthChecks {
		if err := hc.Check(ctx); err != nil {
			middleware.GetLoggerFromContext(c).Warn("Health check failed", map[string]interface{}{
				"dependency": hc.Name,
				"error":      err.Error(),
			})
			checks[hc.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[hc.Name] = "ok"
	}

	message := "StoreOps pickup API is running"
	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
		message = "StoreOps pickup API has unavailable dependencies"
	}

	c.JSON(status, gin.H{
		"status":  state,
		"message": message,
		"checks":  checks,
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After, Content-Disposition")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
