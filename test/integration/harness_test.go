package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/config"
	"github.com/sandeepkv93/cms-admin-backend/internal/database"
	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/handler"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/router"
	"github.com/sandeepkv93/cms-admin-backend/internal/mail"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

const (
	adminUsername = "admin"
	adminPassword = "Admin#12345"
	adminEmail    = "admin@example.com"
)

var resetLinkPattern = regexp.MustCompile(`/password/reset/([A-Za-z0-9_-]+)`)

type pageEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Title            string                 `json:"title"`
		Flash            []flash.Message        `json:"flash"`
		Errors           map[string][]string    `json:"errors"`
		Old              map[string]string      `json:"old"`
		CSRFToken        string                 `json:"csrf_token"`
		SettingsEditable bool                   `json:"settings_editable"`
		Site             handler.SiteInfo       `json:"site"`
		User             *handler.PrincipalView `json:"user"`
		Content          json.RawMessage        `json:"content"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e pageEnvelope) flashText() string {
	texts := make([]string, 0, len(e.Data.Flash))
	for _, m := range e.Data.Flash {
		texts = append(texts, string(m.Level)+": "+m.Text)
	}
	return strings.Join(texts, " | ")
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	match := resetLinkPattern.FindStringSubmatch(m.sent[len(m.sent)-1].Text)
	if match == nil {
		t.Fatalf("no reset link in mail body %q", m.sent[len(m.sent)-1].Text)
	}
	return match[1]
}

type cmsTestServerOptions struct {
	cfgOverride func(cfg *config.Config)
	// settingsStore replaces the database-backed store.
	settingsStore settings.Store
	flashStore    flash.Store
	images        service.ImageStorage
	limiter       middleware.Limiter
}

type cmsTestServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	mailer  *captureMailer
	cfg     *config.Config
}

func newCMSTestServer(t *testing.T) *cmsTestServer {
	t.Helper()
	return newCMSTestServerWithOptions(t, cmsTestServerOptions{})
}

func newCMSTestServerWithOptions(t *testing.T, opts cmsTestServerOptions) *cmsTestServer {
	t.Helper()

	cfg := &config.Config{
		Env:                   "test",
		AppURL:                "http://cms.test",
		DatabaseDriver:        config.DriverSQLite,
		DatabaseURL:           fmt.Sprintf("file:cms_it_%d?mode=memory&cache=shared", time.Now().UnixNano()),
		ConfigStore:           config.StoreDatabase,
		SessionSecret:         "abcdefghijklmnopqrstuvwxyz123456",
		SessionIssuer:         "cms-integration",
		SessionTTL:            2 * time.Hour,
		FlashSecret:           "abcdefghijklmnopqrstuvwxyz654321",
		FlashTTL:              10 * time.Minute,
		CookieSecure:          false,
		CookieSameSite:        "lax",
		LoginRateLimitPerMin:  1000,
		RemindRateLimitPerMin: 1000,
		APIRateLimitPerMin:    10000,
		PasswordResetTTL:      time.Hour,
		MailDryRun:            true,
	}
	if opts.cfgOverride != nil {
		opts.cfgOverride(cfg)
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(context.Background(), db, database.SeedOptions{
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
		AdminEmail:    adminEmail,
		Settings:      true,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	reminderRepo := repository.NewPasswordReminderRepository(db)
	validator := validation.New(validation.NewRegistry(repository.NewRecordChecker(db), security.VerifyPassword))
	jwtMgr := security.NewJWTManager(cfg.SessionIssuer, cfg.SessionSecret)
	cookieMgr := security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)

	store := opts.settingsStore
	if store == nil {
		store = settings.NewDBStore(repository.NewSettingRepository(db))
	}
	flashStore := opts.flashStore
	if flashStore == nil {
		flashStore = flash.NewSessionStore(cfg.FlashSecret, flash.CookieOptions{SameSite: cookieMgr.SameSite, TTL: cfg.FlashTTL})
	}
	images := opts.images
	if images == nil {
		images = service.NewNoopImageStorage()
	}

	mailer := &captureMailer{}
	settingsSvc := service.NewSettingsService(store, validator)
	authSvc := service.NewAuthService(cfg, userRepo, reminderRepo, validator, jwtMgr, mailer, settingsSvc, logger)
	userSvc := service.NewUserService(userRepo, roleRepo, validator, images, logger)
	roleSvc := service.NewRoleService(roleRepo, validator)
	dashboardSvc := service.NewDashboardService(userRepo, roleRepo, settingsSvc)
	pages := handler.NewPages(flashStore, settingsSvc, cookieMgr, cfg.SessionTTL, logger)

	r := router.NewRouter(router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(authSvc, pages, cookieMgr),
		UserHandler:        handler.NewUserHandler(userSvc, pages),
		RoleHandler:        handler.NewRoleHandler(roleSvc, pages),
		SettingsHandler:    handler.NewSettingsHandler(settingsSvc, pages),
		DashboardHandler:   handler.NewDashboardHandler(dashboardSvc, pages),
		Pages:              pages,
		JWTManager:         jwtMgr,
		Principals:         authSvc,
		RateLimiter:        opts.limiter,
		LoginRateLimitRPM:  cfg.LoginRateLimitPerMin,
		RemindRateLimitRPM: cfg.RemindRateLimitPerMin,
		APIRateLimitRPM:    cfg.APIRateLimitPerMin,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := srv.Client()
	client.Jar = jar

	return &cmsTestServer{baseURL: srv.URL, client: client, db: db, mailer: mailer, cfg: cfg}
}

// get follows redirects and decodes the page the browser ends up on.
func (s *cmsTestServer) get(t *testing.T, path string) (*http.Response, pageEnvelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return s.do(t, req)
}

// postForm submits an urlencoded form with the current CSRF token.
func (s *cmsTestServer) postForm(t *testing.T, path string, values url.Values) (*http.Response, pageEnvelope) {
	t.Helper()
	if values == nil {
		values = url.Values{}
	}
	if values.Get(middleware.CSRFFormField) == "" {
		values.Set(middleware.CSRFFormField, s.csrfToken(t))
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

// postMultipart submits fields plus one file part named fileField.
func (s *cmsTestServer) postMultipart(t *testing.T, path string, values map[string]string, fileField, filename string, content []byte) (*http.Response, pageEnvelope) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteField(middleware.CSRFFormField, s.csrfToken(t)); err != nil {
		t.Fatal(err)
	}
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(t, req)
}

func (s *cmsTestServer) do(t *testing.T, req *http.Request) (*http.Response, pageEnvelope) {
	t.Helper()
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(resp.Body)
	var env pageEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", req.Method, req.URL.Path, err, raw)
		}
	}
	return resp, env
}

// csrfToken returns the double-submit cookie, rendering the login page first
// when the jar has none yet.
func (s *cmsTestServer) csrfToken(t *testing.T) string {
	t.Helper()
	if v := s.cookie(security.CSRFCookieName); v != "" {
		return v
	}
	s.get(t, "/login")
	v := s.cookie(security.CSRFCookieName)
	if v == "" {
		t.Fatal("no csrf cookie after rendering a page")
	}
	return v
}

func (s *cmsTestServer) cookie(name string) string {
	u, _ := url.Parse(s.baseURL)
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (s *cmsTestServer) login(t *testing.T, username, password string) pageEnvelope {
	t.Helper()
	resp, env := s.postForm(t, "/login", url.Values{"username": {username}, "password": {password}})
	if resp.Request.URL.Path != middleware.DashboardPath {
		t.Fatalf("login as %s landed on %s: %s", username, resp.Request.URL.Path, env.flashText())
	}
	return env
}

func (s *cmsTestServer) roleID(t *testing.T, name string) uint {
	t.Helper()
	var role domain.Role
	if err := s.db.Where("name = ?", name).First(&role).Error; err != nil {
		t.Fatalf("find role %s: %v", name, err)
	}
	return role.ID
}

func (s *cmsTestServer) userByUsername(t *testing.T, username string) (domain.User, bool) {
	t.Helper()
	var user domain.User
	err := s.db.Where("username = ?", username).Limit(1).Find(&user).Error
	if err != nil {
		t.Fatalf("find user %s: %v", username, err)
	}
	return user, user.ID != 0
}

func requireLanded(t *testing.T, resp *http.Response, path string) {
	t.Helper()
	if resp.Request.URL.Path != path {
		t.Fatalf("expected to land on %s, got %s (status %d)", path, resp.Request.URL.Path, resp.StatusCode)
	}
}

func requireFlash(t *testing.T, env pageEnvelope, level flash.Level, text string) {
	t.Helper()
	for _, m := range env.Data.Flash {
		if m.Level == level && m.Text == text {
			return
		}
	}
	t.Fatalf("expected %s flash %q, got [%s]", level, text, env.flashText())
}
