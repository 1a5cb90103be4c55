package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/internal/httputil"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// AuthMiddleware resolves bearer tokens into an authenticated user ID.
// Requests without an Authorization header pass through anonymously; a
// present but invalid token is rejected with 401.
type AuthMiddleware struct {
	tokens *auth.Tokens
	logger *logger.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens *auth.Tokens, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthMiddleware{tokens: tokens, logger: log}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			m.reject(w, r, errors.Unauthorized("invalid Authorization header format"))
			return
		}

		claims, err := m.tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := logger.WithUserID(r.Context(), claims.UserID())
		noteUser(w, claims.UserID())
		m.logger.ForContext(ctx).Debug("authenticated request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.LogSecurityEvent(r.Context(), "auth_failed", map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"reason": err.Error(),
	})
	httputil.WriteError(w, r, err)
}

// RequireUserID rejects anonymous requests with 401.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			httputil.Unauthorized(w, r, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return logger.UserID(ctx)
}
