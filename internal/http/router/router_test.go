package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/health"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/handler"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixedSettings struct{}

func (fixedSettings) Editable() bool      { return true }
func (fixedSettings) Mode() settings.Mode { return settings.ModeDatabase }
func (fixedSettings) Load(context.Context) (settings.Settings, error) {
	return settings.Defaults(), nil
}
func (fixedSettings) Save(context.Context, validation.Input) error { return nil }

type principals map[uint]*domain.User

func (p principals) Principal(_ context.Context, id uint) (*domain.User, error) {
	if u, ok := p[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

type nopFlash struct{}

func (nopFlash) Put(http.ResponseWriter, *http.Request, flash.Payload) error { return nil }
func (nopFlash) Pop(http.ResponseWriter, *http.Request) (flash.Payload, error) {
	return flash.Payload{}, nil
}

type routerFixture struct {
	handler http.Handler
	jwt     *security.JWTManager
}

func newRouterFixture(t *testing.T, readiness *health.ProbeRunner) routerFixture {
	t.Helper()
	jwt := security.NewJWTManager("cms-test", testSecret)
	cookies := security.NewCookieManager("", false, "lax")
	pages := handler.NewPages(nopFlash{}, fixedSettings{}, cookies, time.Hour, nil)
	h := NewRouter(Dependencies{
		AuthHandler:        handler.NewAuthHandler(nil, pages, cookies),
		UserHandler:        handler.NewUserHandler(nil, pages),
		RoleHandler:        handler.NewRoleHandler(nil, pages),
		SettingsHandler:    handler.NewSettingsHandler(fixedSettings{}, pages),
		DashboardHandler:   handler.NewDashboardHandler(nil, pages),
		Pages:              pages,
		JWTManager:         jwt,
		Principals:         principals{1: {ID: 1, Username: "admin", Active: true}},
		LoginRateLimitRPM:  2,
		RemindRateLimitRPM: 5,
		APIRateLimitRPM:    1000,
		Readiness:          readiness,
	})
	return routerFixture{handler: h, jwt: jwt}
}

func (f routerFixture) session(t *testing.T, userID uint) string {
	t.Helper()
	token, _, err := f.jwt.SignSessionToken(userID, "admin", "Administrator", false, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func (f routerFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthLive(t *testing.T) {
	f := newRouterFixture(t, nil)
	rr := f.serve(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected live response: %d %s", rr.Code, rr.Body.String())
	}
}

type failingCheck struct{}

func (failingCheck) Check(context.Context) health.CheckResult {
	return health.CheckResult{Name: "db", Healthy: false, Error: "deadline exceeded"}
}

func TestHealthReadyReportsFailure(t *testing.T) {
	runner := health.NewProbeRunner(time.Second, 0, failingCheck{})
	f := newRouterFixture(t, runner)

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "DEPENDENCY_UNREADY" {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	f := newRouterFixture(t, nil)

	rr := f.serve(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	req.Header.Set("Accept", "application/json")
	if rr := f.serve(req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for json client, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: f.session(t, 99)})
	if rr := f.serve(req); rr.Code != http.StatusSeeOther {
		t.Fatalf("expected deleted principal to be sent to login, got %d", rr.Code)
	}
}

func TestSettingsPageRendersForSession(t *testing.T) {
	f := newRouterFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: f.session(t, 1)})

	rr := f.serve(req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"username":"admin"`) {
		t.Fatalf("expected principal in page: %s", rr.Body.String())
	}
}

func TestAdminPostsRequireCSRF(t *testing.T) {
	f := newRouterFixture(t, nil)
	for _, path := range []string{"/admin/users", "/admin/users/1", "/admin/users/1/destroy", "/admin/roles", "/admin/settings", "/admin/users/profile", "/logout"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(url.Values{"csrfToken": {"wrong"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: f.session(t, 1)})
		req.AddCookie(&http.Cookie{Name: security.CSRFCookieName, Value: "right"})
		if rr := f.serve(req); rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, rr.Code)
		}
	}
}

func TestGuestPagesRedirectSignedInUsers(t *testing.T) {
	f := newRouterFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: f.session(t, 1)})

	rr := f.serve(req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = f.serve(httptest.NewRequest(http.MethodGet, "/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected login page for guests, got %d", rr.Code)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	f := newRouterFixture(t, nil)
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		return f.serve(req)
	}
	post()
	post()
	rr := post()
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected throttled redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
