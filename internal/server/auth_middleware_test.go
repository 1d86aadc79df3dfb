package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restopos-backend/internal/domain"
	"restopos-backend/internal/server/authctx"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func accessToken(t *testing.T, role domain.UserRole) string {
	return signToken(t, jwt.MapClaims{
		"sub":        "7",
		"email":      "w@example.com",
		"role":       string(role),
		"token_type": "access",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
}

func TestAuthMiddleware(t *testing.T) {
	var seen *authctx.CurrentUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authctx.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := AuthMiddleware(testSecret)(next)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/tables", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/tables", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token rejected on api routes", func(t *testing.T) {
		tok := signToken(t, jwt.MapClaims{
			"sub":        "7",
			"token_type": "refresh",
			"exp":        time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest("GET", "/tables", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		tok := signToken(t, jwt.MapClaims{
			"sub":        "7",
			"token_type": "access",
			"exp":        time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest("GET", "/tables", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token sets user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/tables", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t, domain.RoleWaiter))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(7), seen.ID)
		assert.Equal(t, domain.RoleWaiter, seen.Role)
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := AuthMiddleware(testSecret)(RequireRole(domain.RoleAdmin, domain.RoleManager)(ok))

	t.Run("waiter forbidden on manager routes", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/registers/1/recalculate", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t, domain.RoleWaiter))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("manager allowed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/registers/1/recalculate", nil)
		req.Header.Set("Authorization", "Bearer "+accessToken(t, domain.RoleManager))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no user in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireRole(domain.RoleAdmin)(ok).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
