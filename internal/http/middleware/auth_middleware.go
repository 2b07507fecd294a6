package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/response"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
)

type contextKey string

const (
	ClaimsContextKey    contextKey = "claims"
	PrincipalContextKey contextKey = "principal"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/admin/dashboard"
)

// PrincipalLoader resolves the session subject to a live user record.
type PrincipalLoader interface {
	Principal(ctx context.Context, userID uint) (*domain.User, error)
}

// SessionAuth requires a valid session cookie whose subject is still an
// active user. Browsers are sent to the login page, JSON clients get 401.
func SessionAuth(jwtMgr *security.JWTManager, loader PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			if raw == "" {
				observability.RecordSessionValidation(r.Context(), "missing", "cookie")
				unauthenticated(w, r)
				return
			}
			claims, err := jwtMgr.ParseSessionToken(raw)
			if err != nil {
				observability.RecordSessionValidation(r.Context(), "invalid", "cookie")
				unauthenticated(w, r)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				observability.RecordSessionValidation(r.Context(), "invalid", "cookie")
				unauthenticated(w, r)
				return
			}
			user, err := loader.Principal(r.Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					observability.RecordSessionValidation(r.Context(), "unknown_principal", "cookie")
					unauthenticated(w, r)
					return
				}
				slog.ErrorContext(r.Context(), "load session principal", "user_id", userID, "error", err)
				response.Error(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "session could not be verified", nil)
				return
			}
			observability.RecordSessionValidation(r.Context(), "valid", "cookie")
			annotateRequest(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), claims, user)))
		})
	}
}

// Guest keeps signed-in users away from the login and password pages.
func Guest(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
				if _, err := jwtMgr.ParseSessionToken(raw); err == nil {
					response.Redirect(w, r, DashboardPath)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if response.WantsJSON(r) {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	response.Redirect(w, r, LoginPath)
}

func WithPrincipal(ctx context.Context, claims *security.Claims, user *domain.User) context.Context {
	ctx = context.WithValue(ctx, ClaimsContextKey, claims)
	return context.WithValue(ctx, PrincipalContextKey, user)
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

func PrincipalFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(PrincipalContextKey).(*domain.User)
	return u, ok && u != nil
}
