package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/util"
)

// AuthMiddleware guards the ingress surface with the shared device token.
// The agent serves exactly one device, so there is no account lookup: the
// presented token is hash-compared against the configured one.
type AuthMiddleware struct {
	tokenHash string
}

func NewAuthMiddleware(deviceToken string) *AuthMiddleware {
	if deviceToken == "" {
		return &AuthMiddleware{}
	}
	return &AuthMiddleware{tokenHash: util.HashToken(deviceToken)}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			// Auth disabled (local development).
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		if !util.ConstantTimeEqual(util.HashToken(token), m.tokenHash) {
			log.Warn().Msg("auth middleware: invalid token attempt")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
