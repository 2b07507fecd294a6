package config

import (
	"strings"
	"testing"
	"time"
)

func validConfigForTest(env string) *Config {
	return &Config{
		Env:                          env,
		DatabaseDriver:               DriverPostgres,
		DatabaseURL:                  "postgres://x",
		ConfigStore:                  StoreDatabase,
		SettingsFile:                 "config/settings.yaml",
		SettingsCacheTTL:             5 * time.Minute,
		SettingsCacheBackend:         "memory",
		SessionSecret:                "abcdefghijklmnopqrstuvwxyz123456",
		SessionTTL:                   2 * time.Hour,
		FlashSecret:                  "abcdefghijklmnopqrstuvwxyz654321",
		FlashStore:                   "cookie",
		FlashTTL:                     10 * time.Minute,
		CookieSecure:                 true,
		CookieSameSite:               "lax",
		LoginRateLimitPerMin:         10,
		RemindRateLimitPerMin:        5,
		APIRateLimitPerMin:           300,
		PasswordResetTTL:             time.Hour,
		OTELTraceSamplingRatio:       1.0,
		OTELMetricsExportInterval:    10 * time.Second,
		OTELLogLevel:                 "info",
		ReadinessProbeTimeout:        time.Second,
		ShutdownTimeout:              20 * time.Second,
		ShutdownHTTPDrainTimeout:     10 * time.Second,
		ShutdownObservabilityTimeout: 8 * time.Second,
	}
}

func TestValidateProdProfileStrictRules(t *testing.T) {
	cfg := validConfigForTest("production")
	cfg.CookieSecure = false
	cfg.CookieSameSite = "none"
	cfg.MailDryRun = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected strict prod validation errors")
	}
	for _, want := range []string{"COOKIE_SECURE", "COOKIE_SAMESITE=none", "MAIL_DRY_RUN"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %q", want, err.Error())
		}
	}
}

func TestValidateDevelopmentProfileAllowsRelaxedSettings(t *testing.T) {
	cfg := validConfigForTest("development")
	cfg.CookieSecure = false
	cfg.CookieSameSite = "none"
	cfg.MailDryRun = true

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected relaxed dev validation to pass: %v", err)
	}
}

func TestValidateRejectsInconsistentStores(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unknown config store", mutate: func(c *Config) { c.ConfigStore = "ldap" }, want: "CONFIG_STORE"},
		{name: "files without path", mutate: func(c *Config) { c.ConfigStore = StoreFiles; c.SettingsFile = " " }, want: "SETTINGS_FILE"},
		{name: "redis flash without redis", mutate: func(c *Config) { c.FlashStore = "redis" }, want: "FLASH_STORE=redis"},
		{name: "redis cache without redis", mutate: func(c *Config) { c.SettingsCacheBackend = "redis" }, want: "SETTINGS_CACHE_BACKEND=redis"},
		{name: "shared secrets", mutate: func(c *Config) { c.FlashSecret = c.SessionSecret }, want: "must differ"},
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }, want: "DATABASE_DRIVER"},
		{name: "half bootstrap admin", mutate: func(c *Config) { c.BootstrapAdminUsername = "admin" }, want: "BOOTSTRAP_ADMIN"},
		{name: "storage without keys", mutate: func(c *Config) { c.StorageEnabled = true }, want: "MINIO_"},
		{name: "drain exceeds total", mutate: func(c *Config) { c.ShutdownHTTPDrainTimeout = time.Minute }, want: "SHUTDOWN_HTTP_DRAIN_TIMEOUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfigForTest("development")
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SESSION_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("FLASH_SECRET", "abcdefghijklmnopqrstuvwxyz654321")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigStore != StoreDatabase || !cfg.SettingsEditable() {
		t.Fatalf("expected editable database store by default, got %q", cfg.ConfigStore)
	}
	if cfg.SessionTTL != 2*time.Hour || cfg.PasswordResetTTL != time.Hour {
		t.Fatalf("unexpected ttl defaults: session=%s reset=%s", cfg.SessionTTL, cfg.PasswordResetTTL)
	}
	if cfg.LoginRateLimitPerMin != 10 || cfg.RemindRateLimitPerMin != 5 || cfg.APIRateLimitPerMin != 300 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg)
	}
	if !cfg.MailDryRun {
		t.Fatal("expected mail dry-run in development")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("SESSION_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	t.Setenv("FLASH_SECRET", "abcdefghijklmnopqrstuvwxyz654321")
	t.Setenv("SESSION_TTL", "forever")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SESSION_TTL") {
		t.Fatalf("expected SESSION_TTL parse error, got %v", err)
	}
}
