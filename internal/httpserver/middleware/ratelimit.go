package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/observability"
	"github.com/davidbz/howl/internal/openaicompat"
	"github.com/davidbz/howl/internal/ratelimit"
)

// RateLimit enforces the per-client request limit on the translated
// surface. Clients are keyed by their credential (already normalized by
// the Auth middleware) and fall back to the remote address.
func RateLimit(limiter ratelimit.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !strings.HasPrefix(r.URL.Path, translatedPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				observability.FromContext(r.Context()).Warn("rate limit check failed",
					observability.Error(err),
				)
				// Fail open.
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				openaicompat.WriteError(w, r, domain.NewRateLimited("rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if credential := r.Header.Get(credentialHeader); credential != "" {
		return credential
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
