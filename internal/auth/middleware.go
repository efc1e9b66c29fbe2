package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

// Middleware wires bearer-token authorization helpers for HTTP handlers.
type Middleware struct {
	Tokens *TokenManager
	Logger *slog.Logger
}

// Authenticate validates the Authorization bearer header and attaches
// the caller's identity to the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpx.RespondError(w, fmt.Errorf("%w: missing authorization header", httpx.ErrUnauthorized))
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			httpx.RespondError(w, fmt.Errorf("%w: authorization header must use the Bearer scheme", httpx.ErrUnauthorized))
			return
		}
		claims, err := m.Tokens.Validate(tokenString)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("reject token", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		identity := shared.Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireRole ensures the authenticated caller holds one of the given
// roles. It must run after Authenticate.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized))
				return
			}
			if _, ok := allowed[strings.ToLower(identity.Role)]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("reject role",
						slog.String("role", identity.Role),
						slog.Int64("user_id", identity.UserID))
				}
				httpx.RespondError(w, fmt.Errorf("%w: role %s may not perform this action", httpx.ErrForbidden, identity.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
