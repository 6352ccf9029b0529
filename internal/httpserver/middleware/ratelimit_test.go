package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/howl/internal/httpserver/middleware"
	"github.com/davidbz/howl/internal/openaicompat"
)

// fakeLimiter denies keys listed in denied and records the keys it saw.
type fakeLimiter struct {
	denied map[string]bool
	err    error
	keys   []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	return !f.denied[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("should allow requests under the limit", func(t *testing.T) {
		limiter := &fakeLimiter{}
		handler := middleware.RateLimit(limiter)(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, limiter.keys, 1)
	})

	t.Run("should reject over-limit requests with the external envelope", func(t *testing.T) {
		limiter := &fakeLimiter{denied: map[string]bool{"sk-busy": true}}
		handler := middleware.RateLimit(limiter)(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		req.Header.Set("X-Api-Key", "sk-busy")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusTooManyRequests, w.Code)

		var envelope openaicompat.ErrorEnvelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
		require.Equal(t, "rate_limit_exceeded", envelope.Error.Type)
	})

	t.Run("should key by credential when present", func(t *testing.T) {
		limiter := &fakeLimiter{}
		handler := middleware.RateLimit(limiter)(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		req.Header.Set("X-Api-Key", "sk-client")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, []string{"sk-client"}, limiter.keys)
	})

	t.Run("should fail open on limiter errors", func(t *testing.T) {
		limiter := &fakeLimiter{err: errors.New("redis down")}
		handler := middleware.RateLimit(limiter)(okHandler())

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should skip paths outside the translated surface", func(t *testing.T) {
		limiter := &fakeLimiter{}
		handler := middleware.RateLimit(limiter)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.Empty(t, limiter.keys)
	})
}

func TestChain(t *testing.T) {
	// Order check: the first middleware wraps outermost.
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := middleware.Chain(tag("outer"), tag("inner"))(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}
