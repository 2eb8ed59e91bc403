package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes", func(t *testing.T) {
		mw := NewAuthMiddleware("device-token-1")

		req := httptest.NewRequest("POST", "/v1/push/data", nil)
		req.Header.Set("Authorization", "Bearer device-token-1")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		mw := NewAuthMiddleware("device-token-1")

		req := httptest.NewRequest("POST", "/v1/push/data", nil)
		rec := httptest.NewRecorder()

		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		mw := NewAuthMiddleware("device-token-1")

		req := httptest.NewRequest("POST", "/v1/push/data", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		mw := NewAuthMiddleware("device-token-1")

		req := httptest.NewRequest("POST", "/v1/push/data", nil)
		req.Header.Set("Authorization", "Basic device-token-1")
		rec := httptest.NewRecorder()

		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty token disables auth", func(t *testing.T) {
		mw := NewAuthMiddleware("")

		req := httptest.NewRequest("POST", "/v1/push/data", nil)
		rec := httptest.NewRecorder()

		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
