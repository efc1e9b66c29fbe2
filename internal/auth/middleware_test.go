package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
)

func newAuthRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}

func issueToken(t *testing.T, tokens *auth.TokenManager, role string) string {
	t.Helper()
	token, err := tokens.Generate(&auth.User{ID: 12, Email: "staff@evergreen.local", Role: role})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func protectedRouter(mw auth.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Get("/open", func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("X-User-Email", identity.Email)
			w.WriteHeader(http.StatusOK)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("manager", "admin"))
			r.Get("/managed", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
	})
	return r
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	router := protectedRouter(auth.Middleware{Tokens: tokens})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	router := protectedRouter(auth.Middleware{Tokens: tokens})

	token := issueToken(t, tokens, auth.RoleCashier)
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	expired := auth.NewTokenManager("test-secret", -time.Minute)
	router := protectedRouter(auth.Middleware{Tokens: auth.NewTokenManager("test-secret", time.Hour)})

	token := issueToken(t, expired, auth.RoleCashier)
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	router := protectedRouter(auth.Middleware{Tokens: tokens})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens, auth.RoleCashier))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("X-User-Email"); got != "staff@evergreen.local" {
		t.Fatalf("expected identity email in context, got %q", got)
	}
}

func TestRequireRoleForbidsCashier(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	router := protectedRouter(auth.Middleware{Tokens: tokens})

	req := httptest.NewRequest(http.MethodGet, "/managed", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens, auth.RoleCashier))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestRequireRoleAllowsManager(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	router := protectedRouter(auth.Middleware{Tokens: tokens})

	req := httptest.NewRequest(http.MethodGet, "/managed", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens, auth.RoleManager))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
