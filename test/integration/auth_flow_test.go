package integration

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/sandeepkv93/cms-admin-backend/internal/config"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
)

func TestLoginDashboardLogout(t *testing.T) {
	s := newCMSTestServer(t)

	resp, env := s.get(t, "/admin/users")
	requireLanded(t, resp, middleware.LoginPath)
	if env.Data.User != nil {
		t.Fatal("guest page must not carry a user")
	}

	env = s.login(t, adminUsername, adminPassword)
	requireFlash(t, env, flash.LevelSuccess, "You have successfully logged in.")
	if env.Data.User == nil || env.Data.User.Username != adminUsername {
		t.Fatalf("expected admin principal on dashboard, got %+v", env.Data.User)
	}
	if env.Data.Title != "Dashboard" {
		t.Fatalf("unexpected title %q", env.Data.Title)
	}
	if s.cookie(security.SessionCookieName) == "" {
		t.Fatal("expected session cookie after login")
	}

	// Flash messages are shown once.
	_, env = s.get(t, middleware.DashboardPath)
	if len(env.Data.Flash) != 0 {
		t.Fatalf("expected flash to be consumed, got [%s]", env.flashText())
	}

	resp, _ = s.get(t, middleware.LoginPath)
	requireLanded(t, resp, middleware.DashboardPath)

	resp, env = s.postForm(t, "/logout", nil)
	requireLanded(t, resp, middleware.LoginPath)
	requireFlash(t, env, flash.LevelSuccess, "You have successfully logged out.")

	resp, _ = s.get(t, middleware.DashboardPath)
	requireLanded(t, resp, middleware.LoginPath)
}

func TestLoginRejectsWrongPasswordAndKeepsUsername(t *testing.T) {
	s := newCMSTestServer(t)

	resp, env := s.postForm(t, "/login", url.Values{"username": {adminUsername}, "password": {"nope"}})
	requireLanded(t, resp, middleware.LoginPath)
	requireFlash(t, env, flash.LevelDanger, "Wrong username or password.")
	if env.Data.Old["username"] != adminUsername {
		t.Fatalf("expected username to be preserved, got %+v", env.Data.Old)
	}
	if _, ok := env.Data.Old["password"]; ok {
		t.Fatal("password must never be echoed back")
	}
}

func TestLoginValidationErrors(t *testing.T) {
	s := newCMSTestServer(t)

	resp, env := s.postForm(t, "/login", url.Values{"username": {""}, "password": {""}})
	requireLanded(t, resp, middleware.LoginPath)
	if len(env.Data.Errors["username"]) == 0 || len(env.Data.Errors["password"]) == 0 {
		t.Fatalf("expected field errors, got %+v", env.Data.Errors)
	}
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	s := newCMSTestServer(t)
	s.csrfToken(t)

	resp, env := s.postForm(t, "/login", url.Values{
		"username":                {adminUsername},
		"password":                {adminPassword},
		middleware.CSRFFormField: {"forged"},
	})
	if resp.StatusCode != http.StatusForbidden || env.Success {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestPasswordReminderAndReset(t *testing.T) {
	s := newCMSTestServer(t)

	resp, env := s.postForm(t, "/password/remind", url.Values{"email": {"nobody@example.com"}})
	requireLanded(t, resp, middleware.LoginPath)
	requireFlash(t, env, flash.LevelInfo, "If that address belongs to an account, a password reset link has been sent to it.")
	if s.mailer.count() != 0 {
		t.Fatal("unknown address must not receive mail")
	}

	resp, env = s.postForm(t, "/password/remind", url.Values{"email": {adminEmail}})
	requireLanded(t, resp, middleware.LoginPath)
	requireFlash(t, env, flash.LevelInfo, "If that address belongs to an account, a password reset link has been sent to it.")
	token := s.mailer.lastResetToken(t)

	_, env = s.get(t, "/password/reset/"+token)
	if env.Data.Title != "Reset Password" {
		t.Fatalf("unexpected reset page %q", env.Data.Title)
	}

	resp, env = s.postForm(t, "/password/reset", url.Values{
		"token":                 {token},
		"email":                 {"someone-else@example.com"},
		"password":              {"Fresh#Pass123"},
		"password_confirmation": {"Fresh#Pass123"},
	})
	requireLanded(t, resp, "/password/remind")
	requireFlash(t, env, flash.LevelDanger, "This password reset link is invalid or has expired.")

	resp, env = s.postForm(t, "/password/reset", url.Values{
		"token":                 {token},
		"email":                 {adminEmail},
		"password":              {"Fresh#Pass123"},
		"password_confirmation": {"Fresh#Pass123"},
	})
	requireLanded(t, resp, middleware.LoginPath)
	requireFlash(t, env, flash.LevelSuccess, "Your Password has been reset. You can now log in.")

	// The token is single use.
	resp, _ = s.postForm(t, "/password/reset", url.Values{
		"token":                 {token},
		"email":                 {adminEmail},
		"password":              {"Other#Pass123"},
		"password_confirmation": {"Other#Pass123"},
	})
	requireLanded(t, resp, "/password/remind")

	resp, env = s.postForm(t, "/login", url.Values{"username": {adminUsername}, "password": {adminPassword}})
	requireLanded(t, resp, middleware.LoginPath)
	requireFlash(t, env, flash.LevelDanger, "Wrong username or password.")
	s.login(t, adminUsername, "Fresh#Pass123")
}

func TestLoginThrottledAfterBudget(t *testing.T) {
	s := newCMSTestServerWithOptions(t, cmsTestServerOptions{cfgOverride: func(cfg *config.Config) {
		cfg.LoginRateLimitPerMin = 2
	}})

	for i := 0; i < 2; i++ {
		_, env := s.postForm(t, "/login", url.Values{"username": {adminUsername}, "password": {"nope"}})
		requireFlash(t, env, flash.LevelDanger, "Wrong username or password.")
	}

	resp, env := s.postForm(t, "/login", url.Values{"username": {adminUsername}, "password": {adminPassword}})
	requireLanded(t, resp, middleware.LoginPath)
	if len(env.Data.Flash) != 1 || env.Data.Flash[0].Level != flash.LevelWarning ||
		!strings.HasPrefix(env.Data.Flash[0].Text, "Too many attempts.") {
		t.Fatalf("expected throttling warning, got [%s]", env.flashText())
	}
	if s.cookie(security.SessionCookieName) != "" {
		t.Fatal("throttled login must not start a session")
	}
}
