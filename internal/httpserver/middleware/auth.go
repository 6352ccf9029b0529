package middleware

import (
	"net/http"
	"strings"
)

const (
	// translatedPrefix is the path prefix of the translated surface.
	translatedPrefix = "/v1/"

	bearerPrefix     = "Bearer "
	credentialHeader = "X-Api-Key"
)

// Auth normalizes the bearer credential on the translated surface: when a
// request under the /v1 prefix carries "Authorization: Bearer <token>" and
// no native credential header, the token is copied into X-Api-Key.
//
// Absence of a credential is not an error here; enforcement happens
// downstream. An X-Api-Key already present is never overwritten, and
// requests outside the translated surface pass through untouched.
func Auth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, translatedPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get(credentialHeader) == "" {
				if token := bearerToken(r); token != "" {
					r.Header.Set(credentialHeader, token)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
}
