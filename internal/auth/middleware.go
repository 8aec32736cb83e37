// Package auth provides HTTP middleware that guards the MCP endpoint with a
// bearer token.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// Realm is advertised in the WWW-Authenticate header of rejected requests.
const Realm = "mumblebot"

// NewAuthMiddleware returns an HTTP middleware that enforces bearer token
// authentication. An empty token disables authentication.
//
// When enabled, requests must carry exactly
//
//	Authorization: Bearer <token>
//
// The prefix is case-sensitive and followed by a single space. Anything else
// is answered with 401 Unauthorized and next is never called. Tokens are
// compared in constant time.
//
// Rejections are logged at DEBUG. A nil logger defaults to slog.Default().
func NewAuthMiddleware(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.Debug("auth rejected: missing or malformed Authorization header", "remote", r.RemoteAddr)
				reject(w)
				return
			}
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
				logger.Debug("auth rejected: invalid token", "remote", r.RemoteAddr)
				reject(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="`+Realm+`"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
