package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/storeops-backend/config"
	"github.com/ikkim/storeops-backend/internal/app/controller"
	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/internal/app/repository"
	"github.com/ikkim/storeops-backend/internal/app/service"
	"github.com/ikkim/storeops-backend/internal/db"
	"github.com/ikkim/storeops-backend/internal/middleware"
	"github.com/ikkim/storeops-backend/pkg/logger"
	"github.com/ikkim/storeops-backend/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type testServer struct {
	engine    *gin.Engine
	orderRepo repository.PickupOrderRepository
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{GinMode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: testSecret},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"https://dashboard.example.com"}},
		RateLimit: config.RateLimitConfig{VerifyMaxRequests: 2, VerifyWindow: time.Minute},
	}
}

func setupServer(t *testing.T, limiter *middleware.RateLimiter, checks ...HealthCheck) *testServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	orderRepo := repository.NewPickupOrderRepository(testDB)
	codeRepo := repository.NewVerificationCodeRepository(testDB)
	auditService := service.NewAuditService(repository.NewAuditLogRepository(testDB), nil)
	codeService := service.NewVerificationCodeService(codeRepo, orderRepo, auditService, logger.New(io.Discard), testDB, service.DefaultVerificationCodeConfig())
	orderService := service.NewPickupOrderService(orderRepo, codeRepo, testDB)

	pickupController := controller.NewPickupController(codeService, orderService, auditService, nil, nil)
	r := NewRouter(pickupController, middleware.NewAuthMiddleware(testSecret), limiter, testConfig(), checks...)

	return &testServer{
		engine:    r.Setup(),
		orderRepo: orderRepo,
	}
}

func token(t *testing.T, userID uint, role model.UserRole, storeID string) string {
	pair, err := util.GenerateTokenPair(userID, "staff@example.com", string(role), storeID, testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return pair.AccessToken
}

func (s *testServer) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	s := setupServer(t, nil, HealthCheck{Name: "database", Check: func(ctx context.Context) error { return nil }})

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Health_Degraded(t *testing.T) {
	s := setupServer(t, nil,
		HealthCheck{Name: "database", Check: func(ctx context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return errors.New("connection refused") }},
	)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := setupServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/pickup/verify", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/pickup/verify", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := setupServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/pickup/verify", "", gin.H{"order_id": "o"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RoleAndStoreGuards(t *testing.T) {
	s := setupServer(t, nil)
	staff := token(t, 7, model.RoleStaff, "store-1")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/pickup/codes/cleanup", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/pickup/audit", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/pickup/stores/store-2/orders", staff, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/pickup/stores/store-1/orders", staff, nil).Code)

	admin := token(t, 1, model.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/pickup/codes/cleanup", admin, nil).Code)
}

func TestRouter_PickupFlow(t *testing.T) {
	s := setupServer(t, nil)
	require.NoError(t, s.orderRepo.Create(&model.PickupOrder{
		ID:          "order-1",
		OrderNumber: "A-1001",
		StoreID:     "store-1",
		Status:      model.PickupOrderStatusPreparing,
	}))
	staff := token(t, 7, model.RoleStaff, "store-1")

	w := s.do(http.MethodPut, "/api/v1/pickup/orders/order-1/status", staff, gin.H{"status": "ready_for_pickup"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/pickup/orders/order-1/code", staff, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var issued struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))

	w = s.do(http.MethodPost, "/api/v1/pickup/verify", staff, gin.H{
		"order_id":          "order-1",
		"verification_code": issued.Code,
		"store_id":          "store-1",
		"customer_present":  true,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	order, err := s.orderRepo.FindByID("order-1")
	require.NoError(t, err)
	assert.Equal(t, model.PickupOrderStatusPickedUp, order.Status)
}

func TestRouter_VerifyRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := setupServer(t, middleware.NewRateLimiter(client))
	staff := token(t, 7, model.RoleStaff, "store-1")
	body := gin.H{"order_id": "order-x", "verification_code": "ABCDEF", "store_id": "store-1"}

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/v1/pickup/verify", staff, body).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/v1/pickup/verify", staff, body).Code)

	w := s.do(http.MethodPost, "/api/v1/pickup/verify", staff, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
}
