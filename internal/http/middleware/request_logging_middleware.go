package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type requestIdentityKey struct{}

// requestIdentity is filled in by SessionAuth further down the chain so the
// access log can name the user.
type requestIdentity struct {
	userID uint
}

func annotateRequest(ctx context.Context, userID uint) {
	if id, ok := ctx.Value(requestIdentityKey{}).(*requestIdentity); ok {
		id.userID = userID
	}
}

// StructuredRequestLogger emits one structured log line per request using slog.
func StructuredRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		identity := &requestIdentity{}
		r = r.WithContext(context.WithValue(r.Context(), requestIdentityKey{}, identity))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		routePattern := ""
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			routePattern = routeCtx.RoutePattern()
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", routePattern,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"client_ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		}
		if identity.userID != 0 {
			attrs = append(attrs, "user_id", identity.userID)
		}
		if location := ww.Header().Get("Location"); location != "" && status == http.StatusSeeOther {
			attrs = append(attrs, "redirect", location)
		}

		if status >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "http.request", attrs...)
			return
		}
		slog.InfoContext(r.Context(), "http.request", attrs...)
	})
}
