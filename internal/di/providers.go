package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/app"
	"github.com/sandeepkv93/cms-admin-backend/internal/config"
	"github.com/sandeepkv93/cms-admin-backend/internal/database"
	"github.com/sandeepkv93/cms-admin-backend/internal/flash"
	"github.com/sandeepkv93/cms-admin-backend/internal/health"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/handler"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/middleware"
	"github.com/sandeepkv93/cms-admin-backend/internal/http/router"
	"github.com/sandeepkv93/cms-admin-backend/internal/mail"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideSettingsStore,
	provideImageStorage,
	provideFlashStore,
	provideRateLimitBackend,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewRoleRepository,
	repository.NewPasswordReminderRepository,
	repository.NewSettingRepository,
	repository.NewRecordChecker,
	wire.Bind(new(validation.RecordChecker), new(*repository.GormRecordChecker)),
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
)

var ValidationSet = wire.NewSet(
	provideValidator,
	wire.Bind(new(service.InputValidator), new(*validation.Validator)),
)

var ServiceSet = wire.NewSet(
	service.NewSettingsService,
	provideMailer,
	service.NewAuthService,
	service.NewUserService,
	service.NewRoleService,
	service.NewDashboardService,
	wire.Bind(new(service.SettingsServiceInterface), new(*service.SettingsService)),
	wire.Bind(new(service.SettingsReader), new(*service.SettingsService)),
	wire.Bind(new(service.MailSender), new(*mail.SettingsMailer)),
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(middleware.PrincipalLoader), new(*service.AuthService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(service.RoleServiceInterface), new(*service.RoleService)),
	wire.Bind(new(service.DashboardServiceInterface), new(*service.DashboardService)),
)

var HTTPSet = wire.NewSet(
	providePages,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewRoleHandler,
	handler.NewSettingsHandler,
	handler.NewDashboardHandler,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// MigrationRunner backs the migrate and seed commands. It never starts the
// HTTP stack.
type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Up() error {
	return database.Migrate(m.db)
}

func (m *MigrationRunner) Status() ([]database.TableStatus, error) {
	return database.Status(m.db)
}

// SeedOptions are the bootstrap values taken from the environment.
func (m *MigrationRunner) SeedOptions() database.SeedOptions {
	return seedOptions(m.cfg)
}

// Seed inserts the default roles, the bootstrap administrator and, in
// database mode, the default settings rows.
func (m *MigrationRunner) Seed(ctx context.Context, opts database.SeedOptions, dryRun bool) (*database.SeedReport, error) {
	return database.SeedSync(ctx, m.db, opts, dryRun)
}

func (m *MigrationRunner) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// settingsDocument is the exchange format of the settings export and import
// commands.
type settingsDocument struct {
	Mode     string            `yaml:"mode"`
	Settings settings.Settings `yaml:"settings"`
}

// SettingsTool copies the settings snapshot in and out of the configured
// store.
type SettingsTool struct {
	svc *service.SettingsService
	db  *gorm.DB
}

func NewSettingsTool(svc *service.SettingsService, db *gorm.DB) *SettingsTool {
	return &SettingsTool{svc: svc, db: db}
}

func (t *SettingsTool) Mode() settings.Mode { return t.svc.Mode() }

// Export writes the current snapshot as YAML. The mail password is left out
// unless withSecrets is set.
func (t *SettingsTool) Export(ctx context.Context, w io.Writer, withSecrets bool) error {
	current, err := t.svc.Load(ctx)
	if err != nil {
		return err
	}
	if !withSecrets {
		current.MailPassword = ""
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settingsDocument{Mode: string(t.svc.Mode()), Settings: current}); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

// Import reads a document written by Export. A blank mail password keeps the
// stored one.
func (t *SettingsTool) Import(ctx context.Context, r io.Reader) (settings.Settings, error) {
	var doc settingsDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return settings.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if doc.Settings.MailPassword == "" {
		current, err := t.svc.Load(ctx)
		if err != nil {
			return settings.Settings{}, err
		}
		doc.Settings.MailPassword = current.MailPassword
	}
	if err := t.svc.Import(ctx, doc.Settings); err != nil {
		return settings.Settings{}, err
	}
	return doc.Settings, nil
}

func (t *SettingsTool) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func seedOptions(cfg *config.Config) database.SeedOptions {
	return database.SeedOptions{
		AdminUsername: cfg.BootstrapAdminUsername,
		AdminPassword: cfg.BootstrapAdminPassword,
		AdminEmail:    cfg.BootstrapAdminEmail,
		Settings:      cfg.ConfigStore == config.StoreDatabase,
	}
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideToolLogger(cfg *config.Config) *slog.Logger {
	return observability.NewBootstrapLogger(cfg)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(context.Background(), db, seedOptions(cfg)); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

// provideSettingsStore picks the backend from CONFIG_STORE and fronts it with
// the snapshot cache unless the TTL is zero.
func provideSettingsStore(cfg *config.Config, rows repository.SettingRepository, redisClient redis.UniversalClient) settings.Store {
	var base settings.Store
	if cfg.ConfigStore == config.StoreFiles {
		base = settings.NewFileStore(cfg.SettingsFile)
	} else {
		base = settings.NewDBStore(rows)
	}
	if cfg.SettingsCacheTTL <= 0 {
		return base
	}
	if cfg.SettingsCacheBackend == settings.CacheBackendRedis && redisClient != nil {
		return settings.NewCachedStore(base, settings.NewRedisCache(redisClient), settings.CacheBackendRedis, cfg.RedisPrefix+":settings:snapshot", cfg.SessionSecret, cfg.SettingsCacheTTL)
	}
	return settings.NewCachedStore(base, settings.NewMemoryCache(cfg.SettingsCacheTTL), settings.CacheBackendMemory, "settings:snapshot", cfg.SessionSecret, cfg.SettingsCacheTTL)
}

func provideImageStorage(cfg *config.Config) (service.ImageStorage, error) {
	if !cfg.StorageEnabled {
		return service.NewNoopImageStorage(), nil
	}
	return service.NewMinIOImageStorage(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
}

func provideFlashStore(cfg *config.Config, cookies *security.CookieManager, redisClient redis.UniversalClient) flash.Store {
	opts := flash.CookieOptions{
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		SameSite: cookies.SameSite,
		TTL:      cfg.FlashTTL,
	}
	if cfg.FlashStore == "redis" && redisClient != nil {
		return flash.NewRedisStore(redisClient, cfg.RedisPrefix, opts)
	}
	return flash.NewSessionStore(cfg.FlashSecret, opts)
}

// provideRateLimitBackend shares counters through redis when it is enabled.
// A nil limiter makes the router keep counters in process.
func provideRateLimitBackend(cfg *config.Config, redisClient redis.UniversalClient) middleware.Limiter {
	if redisClient == nil {
		return nil
	}
	return middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisPrefix+":ratelimit")
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.SessionIssuer, cfg.SessionSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideValidator(records validation.RecordChecker) *validation.Validator {
	return validation.New(validation.NewRegistry(records, security.VerifyPassword))
}

func provideMailer(cfg *config.Config, settingsSvc *service.SettingsService, logger *slog.Logger) *mail.SettingsMailer {
	return mail.NewSettingsMailer(settingsSvc, cfg.MailDryRun, logger)
}

func providePages(cfg *config.Config, store flash.Store, settingsSvc service.SettingsServiceInterface, cookies *security.CookieManager, logger *slog.Logger) *handler.Pages {
	return handler.NewPages(store, settingsSvc, cookies, cfg.SessionTTL, logger)
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	roleHandler *handler.RoleHandler,
	settingsHandler *handler.SettingsHandler,
	dashboardHandler *handler.DashboardHandler,
	pages *handler.Pages,
	jwt *security.JWTManager,
	principals middleware.PrincipalLoader,
	limiter middleware.Limiter,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:          authHandler,
		UserHandler:          userHandler,
		RoleHandler:          roleHandler,
		SettingsHandler:      settingsHandler,
		DashboardHandler:     dashboardHandler,
		Pages:                pages,
		JWTManager:           jwt,
		Principals:           principals,
		RateLimiter:          limiter,
		RateLimitFailureMode: middleware.FailOpen,
		LoginRateLimitRPM:    cfg.LoginRateLimitPerMin,
		RemindRateLimitRPM:   cfg.RemindRateLimitPerMin,
		APIRateLimitRPM:      cfg.APIRateLimitPerMin,
		Readiness:            readiness,
		EnableOTelHTTP:       cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(
	cfg *config.Config,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	store settings.Store,
	images service.ImageStorage,
) *health.ProbeRunner {
	checkers := []health.Checker{
		health.NewDBChecker(db),
		health.NewSettingsChecker(store),
	}
	if redisClient != nil {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	if p, ok := images.(health.Pinger); ok && images.Enabled() {
		checkers = append(checkers, health.NewPingChecker("storage", p))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}
