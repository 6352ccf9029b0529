package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/howl/internal/httpserver/middleware"
)

// captureHeader records the credential header the inner handler saw.
func captureHeader(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	t.Run("should normalize bearer token on the translated surface", func(t *testing.T) {
		var seen string
		handler := middleware.Auth()(captureHeader(&seen))

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		req.Header.Set("Authorization", "Bearer sk-token-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, "sk-token-123", seen)
	})

	t.Run("should not overwrite an existing credential header", func(t *testing.T) {
		var seen string
		handler := middleware.Auth()(captureHeader(&seen))

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		req.Header.Set("Authorization", "Bearer sk-from-bearer")
		req.Header.Set("X-Api-Key", "sk-native")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, "sk-native", seen)
	})

	t.Run("should pass through without credentials", func(t *testing.T) {
		var seen string
		handler := middleware.Auth()(captureHeader(&seen))

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		// Absence is not an error; the request proceeds unmodified.
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, seen)
	})

	t.Run("should ignore non-bearer authorization", func(t *testing.T) {
		var seen string
		handler := middleware.Auth()(captureHeader(&seen))

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Empty(t, seen)
	})

	t.Run("should leave requests outside the translated surface untouched", func(t *testing.T) {
		var seen string
		handler := middleware.Auth()(captureHeader(&seen))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Authorization", "Bearer sk-token-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Empty(t, seen)
	})
}
