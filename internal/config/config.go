package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDatabase = "database"
	StoreFiles    = "files"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env      string
	HTTPPort string
	AppURL   string

	DatabaseDriver string
	DatabaseURL    string

	ConfigStore          string
	SettingsFile         string
	SettingsCacheTTL     time.Duration
	SettingsCacheBackend string

	SessionSecret string
	SessionTTL    time.Duration
	SessionIssuer string
	FlashSecret   string
	FlashStore    string
	FlashTTL      time.Duration

	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	LoginRateLimitPerMin  int
	RemindRateLimitPerMin int
	APIRateLimitPerMin    int
	PasswordResetTTL      time.Duration

	StorageEnabled bool
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	MailDryRun bool

	BootstrapAdminUsername string
	BootstrapAdminPassword string
	BootstrapAdminEmail    string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string

	ReadinessProbeTimeout        time.Duration
	ServerStartGracePeriod       time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env:      env,
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		AppURL:   strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		ConfigStore:          strings.ToLower(getEnv("CONFIG_STORE", StoreDatabase)),
		SettingsFile:         getEnv("SETTINGS_FILE", "config/settings.yaml"),
		SettingsCacheBackend: strings.ToLower(getEnv("SETTINGS_CACHE_BACKEND", "memory")),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionIssuer: getEnv("SESSION_ISSUER", "cms-admin-backend"),
		FlashSecret:   os.Getenv("FLASH_SECRET"),
		FlashStore:    strings.ToLower(getEnv("FLASH_STORE", "cookie")),

		CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:   getEnvBool("COOKIE_SECURE", true),
		CookieSameSite: strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "cms"),

		LoginRateLimitPerMin:  getEnvInt("LOGIN_RATE_LIMIT_PER_MIN", 10),
		RemindRateLimitPerMin: getEnvInt("REMIND_RATE_LIMIT_PER_MIN", 5),
		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 300),

		StorageEnabled: getEnvBool("STORAGE_ENABLED", false),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "user-images"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		MailDryRun: getEnvBool("MAIL_DRY_RUN", isLocalLikeEnv(env)),

		BootstrapAdminUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminEmail:    strings.TrimSpace(strings.ToLower(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "cms-admin-backend"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SETTINGS_CACHE_TTL", "5m", &cfg.SettingsCacheTTL},
		{"SESSION_TTL", "2h", &cfg.SessionTTL},
		{"FLASH_TTL", "10m", &cfg.FlashTTL},
		{"PASSWORD_RESET_TTL", "60m", &cfg.PasswordResetTTL},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverSQLite {
		errs = append(errs, "DATABASE_DRIVER must be one of postgres, sqlite")
	}
	if c.ConfigStore != StoreDatabase && c.ConfigStore != StoreFiles {
		errs = append(errs, "CONFIG_STORE must be one of database, files")
	}
	if c.ConfigStore == StoreFiles && strings.TrimSpace(c.SettingsFile) == "" {
		errs = append(errs, "SETTINGS_FILE is required when CONFIG_STORE=files")
	}
	if c.SettingsCacheTTL < 0 {
		errs = append(errs, "SETTINGS_CACHE_TTL must be >= 0")
	}
	if c.SettingsCacheBackend != "memory" && c.SettingsCacheBackend != "redis" {
		errs = append(errs, "SETTINGS_CACHE_BACKEND must be one of memory, redis")
	}
	if c.SettingsCacheBackend == "redis" && !c.RedisEnabled {
		errs = append(errs, "SETTINGS_CACHE_BACKEND=redis requires REDIS_ENABLED=true")
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, "SESSION_SECRET must be at least 32 chars")
	}
	if c.SessionTTL < time.Minute || c.SessionTTL > 24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1m and 24h")
	}
	if len(c.FlashSecret) < 32 {
		errs = append(errs, "FLASH_SECRET must be at least 32 chars")
	}
	if c.FlashSecret != "" && c.FlashSecret == c.SessionSecret {
		errs = append(errs, "FLASH_SECRET and SESSION_SECRET must differ")
	}
	if c.FlashStore != "cookie" && c.FlashStore != "redis" {
		errs = append(errs, "FLASH_STORE must be one of cookie, redis")
	}
	if c.FlashStore == "redis" && !c.RedisEnabled {
		errs = append(errs, "FLASH_STORE=redis requires REDIS_ENABLED=true")
	}
	if c.FlashTTL <= 0 {
		errs = append(errs, "FLASH_TTL must be > 0")
	}
	if !isValidSameSite(c.CookieSameSite) {
		errs = append(errs, "COOKIE_SAMESITE must be one of lax, strict, none")
	}
	if c.RedisEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, "REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.LoginRateLimitPerMin <= 0 {
		errs = append(errs, "LOGIN_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RemindRateLimitPerMin <= 0 {
		errs = append(errs, "REMIND_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.PasswordResetTTL < 5*time.Minute || c.PasswordResetTTL > 24*time.Hour {
		errs = append(errs, "PASSWORD_RESET_TTL must be between 5m and 24h")
	}
	if c.StorageEnabled {
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" || c.MinIOBucket == "" {
			errs = append(errs, "MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required when STORAGE_ENABLED=true")
		}
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, "BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 || c.ShutdownHTTPDrainTimeout <= 0 || c.ShutdownObservabilityTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_* timeouts must be > 0")
	}
	if c.ShutdownHTTPDrainTimeout > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must not exceed SHUTDOWN_TIMEOUT")
	}

	if IsProductionEnv(c.Env) {
		if !c.CookieSecure {
			errs = append(errs, "COOKIE_SECURE must be true in production")
		}
		if c.CookieSameSite == "none" {
			errs = append(errs, "COOKIE_SAMESITE=none is not allowed in production")
		}
		if c.MailDryRun {
			errs = append(errs, "MAIL_DRY_RUN must be false in production")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// SettingsEditable reports whether the admin settings form may write.
func (c *Config) SettingsEditable() bool {
	return c.ConfigStore == StoreDatabase
}

func IsProductionEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidSameSite(v string) bool {
	switch v {
	case "lax", "strict", "none":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
