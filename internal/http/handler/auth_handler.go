package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
)

const (
	remindPath = "/password/remind"
	resetPath  = "/password/reset"
)

type AuthHandler struct {
	auth    service.AuthServiceInterface
	pages   *Pages
	cookies *security.CookieManager
}

func NewAuthHandler(auth service.AuthServiceInterface, pages *Pages, cookies *security.CookieManager) *AuthHandler {
	return &AuthHandler{auth: auth, pages: pages, cookies: cookies}
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "Login", map[string]any{})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "error"
	defer func() { observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start)) }()

	in, err := formInput(r, "username", "password", "remember")
	if err != nil {
		h.pages.Fail(w, r, middleware.LoginPath, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		status = "invalid"
		h.pages.Invalid(w, r, middleware.LoginPath, verrs, in)
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status = "rejected"
		audit(r, "auth.login", "user", "", "login", "rejected", "invalid_credentials")
		payload := flash.Status(flash.LevelDanger, "Wrong username or password.")
		payload.Input = in.Preserved()
		h.pages.Redirect(w, r, middleware.LoginPath, payload)
		return
	case err != nil:
		audit(r, "auth.login", "user", "", "login", "failure", "internal_error")
		h.pages.Fail(w, r, middleware.LoginPath, err)
		return
	}
	status = "success"
	h.cookies.SetSessionCookies(w, res.SessionToken, res.CSRFToken, res.TTL)
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "auth.login",
		ActorUserID: idString(res.User.ID),
		TargetType:  "user",
		TargetID:    idString(res.User.ID),
		Action:      "login",
		Outcome:     "success",
	}, "expires_at", res.ExpiresAt)
	h.pages.Status(w, r, middleware.DashboardPath, flash.LevelSuccess, "You have successfully logged in.")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSessionCookies(w)
	observability.RecordAuthLogout(r.Context(), "success")
	audit(r, "auth.logout", "user", actorID(r), "logout", "success", "")
	h.pages.Status(w, r, middleware.LoginPath, flash.LevelSuccess, "You have successfully logged out.")
}

func (h *AuthHandler) RemindForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "Password Reminder", map[string]any{})
}

// Remind answers the same way whether or not the address is known.
func (h *AuthHandler) Remind(w http.ResponseWriter, r *http.Request) {
	in, err := formInput(r, "email")
	if err != nil {
		h.pages.Fail(w, r, remindPath, err)
		return
	}
	err = h.auth.RequestPasswordReset(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, remindPath, verrs, in)
		return
	}
	if err != nil {
		h.pages.Fail(w, r, remindPath, err)
		return
	}
	h.pages.Status(w, r, middleware.LoginPath, flash.LevelInfo, "If that address belongs to an account, a password reset link has been sent to it.")
}

func (h *AuthHandler) ResetForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "Reset Password", map[string]any{"token": chi.URLParam(r, "token")})
}

func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	in, err := formInput(r, "token", "email", "password", "password_confirmation")
	if err != nil {
		h.pages.Fail(w, r, remindPath, err)
		return
	}
	back := remindPath
	if token := in.Trimmed("token"); token != "" {
		back = resetPath + "/" + url.PathEscape(token)
	}
	err = h.auth.ResetPassword(r.Context(), in)
	if verrs, ok := service.IsValidationError(err); ok {
		h.pages.Invalid(w, r, back, verrs, in)
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidResetToken):
		audit(r, "auth.password.reset", "user", "", "reset_password", "rejected", "invalid_token")
		h.pages.Status(w, r, remindPath, flash.LevelDanger, "This password reset link is invalid or has expired.")
		return
	case err != nil:
		h.pages.Fail(w, r, back, err)
		return
	}
	audit(r, "auth.password.reset", "user", "", "reset_password", "success", "")
	h.pages.Status(w, r, middleware.LoginPath, flash.LevelSuccess, "Your Password has been reset. You can now log in.")
}
