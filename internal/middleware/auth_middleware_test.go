package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storeops-backend/internal/app/model"
	"github.com/ikkim/storeops-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	middleware := NewAuthMiddleware(testJWTSecret)
	return router, middleware
}

func generateTestToken(t *testing.T, userID uint, role, storeID string) string {
	tokens, err := util.GenerateTokenPair(
		userID,
		"staff@example.com",
		role,
		storeID,
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	require.NoError(t, err)
	return tokens.AccessToken
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	token := generateTestToken(t, 1, "staff", "store-1")

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		role, _ := GetUserRole(c)
		storeID, _ := GetUserStoreID(c)

		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID,
			"role":     role,
			"store_id": storeID,
		})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":1,"role":"staff","store_id":"store-1"}`, w.Body.String())
}

func TestAuthMiddleware_Authenticate_NoToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_UNAUTHORIZED")
}

func TestAuthMiddleware_Authenticate_InvalidFormat(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []string{"InvalidFormat", "Basic abc", "Bearer"}
	for _, header := range tests {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID", header)
	}
}

func TestAuthMiddleware_Authenticate_WrongSecret(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	tokens, err := util.GenerateTokenPair(1, "staff@example.com", "staff", "store-1", "other-secret", time.Minute, time.Hour)
	require.NoError(t, err)

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID")
}

func TestAuthMiddleware_Authenticate_ExpiredToken(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()

	tokens, err := util.GenerateTokenPair(1, "staff@example.com", "staff", "store-1", testJWTSecret, -time.Minute, time.Hour)
	require.NoError(t, err)

	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_EXPIRED")
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"Admin allowed", "admin", http.StatusOK},
		{"Manager allowed", "manager", http.StatusOK},
		{"Staff forbidden", "staff", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, authMiddleware := setupMiddlewareTest()
			router.GET("/test",
				authMiddleware.Authenticate(),
				authMiddleware.RequireRole(model.RoleManager, model.RoleAdmin),
				func(c *gin.Context) {
					c.JSON(http.StatusOK, gin.H{"message": "success"})
				})

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 1, tt.role, "store-1"))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAuthMiddleware_RequireRole_NoAuthentication(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTHZ_ROLE_NOT_FOUND")
}

func TestAuthMiddleware_RequireStoreParam(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		userStore  string
		path       string
		wantStatus int
	}{
		{"Own store", "staff", "store-1", "/stores/store-1", http.StatusOK},
		{"Other store", "staff", "store-1", "/stores/store-2", http.StatusForbidden},
		{"Unassigned staff", "staff", "", "/stores/store-1", http.StatusForbidden},
		{"Admin any store", "admin", "", "/stores/store-2", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, authMiddleware := setupMiddlewareTest()
			router.GET("/stores/:store_id",
				authMiddleware.Authenticate(),
				authMiddleware.RequireStoreParam("store_id"),
				func(c *gin.Context) {
					c.JSON(http.StatusOK, gin.H{"message": "success"})
				})

			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 7, tt.role, tt.userStore))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestContextHelpers_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserID(c)
	assert.False(t, ok)
	_, ok = GetUserRole(c)
	assert.False(t, ok)
	_, ok = GetUserStoreID(c)
	assert.False(t, ok)
	assert.False(t, CanAccessStore(c, "store-1"))
}
