package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/cms-admin-backend/internal/health"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/handler"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/response"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
)

const defaultMaxBodyBytes = 4 << 20

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	RoleHandler      *handler.RoleHandler
	SettingsHandler  *handler.SettingsHandler
	DashboardHandler *handler.DashboardHandler
	Pages            *handler.Pages
	JWTManager       *security.JWTManager
	Principals       middleware.PrincipalLoader
	// RateLimiter is shared by every scope; nil keeps counters in process.
	RateLimiter          middleware.Limiter
	RateLimitFailureMode middleware.FailureMode
	LoginRateLimitRPM    int
	RemindRateLimitRPM   int
	APIRateLimitRPM      int
	MaxBodyBytes         int64
	Readiness            *health.ProbeRunner
	EnableOTelHTTP       bool
}

func NewRouter(dep Dependencies) http.Handler {
	limiter := func(scope string, rpm int) *middleware.RateLimiter {
		if dep.RateLimiter == nil {
			return middleware.NewRateLimiter(scope, rpm, time.Minute)
		}
		mode := dep.RateLimitFailureMode
		if mode == "" {
			mode = middleware.FailOpen
		}
		return middleware.NewDistributedRateLimiter(dep.RateLimiter, rpm, time.Minute, mode, scope)
	}
	maxBody := dep.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(maxBody))
	r.Use(limiter("api", dep.APIRateLimitRPM).Middleware())

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	sessionAuth := middleware.SessionAuth(dep.JWTManager, dep.Principals)
	loginLimiter := limiter("login", dep.LoginRateLimitRPM).OnDenied(dep.Pages.RateLimited(middleware.LoginPath)).Middleware()
	remindLimiter := limiter("remind", dep.RemindRateLimitRPM).OnDenied(dep.Pages.RateLimited("/password/remind")).Middleware()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		response.Redirect(w, r, middleware.DashboardPath)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guest(dep.JWTManager))
		r.Get("/login", dep.AuthHandler.LoginForm)
		r.Get("/password/remind", dep.AuthHandler.RemindForm)
		r.Get("/password/reset/{token}", dep.AuthHandler.ResetForm)
		// Throttling runs ahead of the CSRF check so rejected posts still count.
		r.With(loginLimiter, middleware.CSRFMiddleware).Post("/login", dep.AuthHandler.Login)
		r.With(remindLimiter, middleware.CSRFMiddleware).Post("/password/remind", dep.AuthHandler.Remind)
		r.With(remindLimiter, middleware.CSRFMiddleware).Post("/password/reset", dep.AuthHandler.Reset)
	})

	r.With(sessionAuth, middleware.CSRFMiddleware).Post("/logout", dep.AuthHandler.Logout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response.Redirect(w, r, middleware.DashboardPath)
		})
		r.Get("/dashboard", dep.DashboardHandler.Show)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", dep.UserHandler.Index)
			r.Get("/create", dep.UserHandler.Create)
			r.Get("/profile", dep.UserHandler.Profile)
			r.Get("/{id}", dep.UserHandler.Show)
			r.Get("/{id}/edit", dep.UserHandler.Edit)
			// Search is a read and carries no CSRF token.
			r.Post("/search", dep.UserHandler.Search)
			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFMiddleware)
				r.Post("/", dep.UserHandler.Store)
				r.Post("/profile", dep.UserHandler.PostProfile)
				r.Post("/{id}", dep.UserHandler.Update)
				r.Post("/{id}/destroy", dep.UserHandler.Destroy)
			})
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", dep.RoleHandler.Index)
			r.Get("/create", dep.RoleHandler.Create)
			r.Get("/{id}", dep.RoleHandler.Show)
			r.Get("/{id}/edit", dep.RoleHandler.Edit)
			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFMiddleware)
				r.Post("/", dep.RoleHandler.Store)
				r.Post("/{id}", dep.RoleHandler.Update)
				r.Post("/{id}/destroy", dep.RoleHandler.Destroy)
			})
		})

		r.Get("/settings", dep.SettingsHandler.Show)
		r.With(middleware.CSRFMiddleware).Post("/settings", dep.SettingsHandler.Save)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
