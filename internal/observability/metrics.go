package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"

	"github.com/sandeepkv93/cms-admin-backend/internal/config"
)

const meterName = "cms-admin-backend"

type AppMetrics struct {
	authLoginCounter         metric.Int64Counter
	authLogoutCounter        metric.Int64Counter
	authPasswordFlowCounter  metric.Int64Counter
	sessionValidationCounter metric.Int64Counter
	authReqDuration          metric.Float64Histogram
	adminMutationCounter     metric.Int64Counter
	adminListReqDuration     metric.Float64Histogram
	adminListPageSize        metric.Float64Histogram
	userProfileCounter       metric.Int64Counter
	validationFailureCounter metric.Int64Counter
	csrfValidationCounter    metric.Int64Counter
	httpMiddlewareValidation metric.Int64Counter
	rateLimitDecisionCounter metric.Int64Counter
	rateLimitRetryAfter      metric.Float64Histogram
	settingsEventCounter     metric.Int64Counter
	settingsCacheCounter     metric.Int64Counter
	flashEventCounter        metric.Int64Counter
	mailDeliveryCounter      metric.Int64Counter
	storageOperationCounter  metric.Int64Counter
	storageUploadBytes       metric.Float64Histogram
	healthCheckResultCounter metric.Int64Counter
	healthCheckDuration      metric.Float64Histogram
	databaseStartupCounter   metric.Int64Counter
	databaseStartupDuration  metric.Float64Histogram
	repositoryOpsCounter     metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg, "metric")
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "auth.request.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	var err error
	if m.authLoginCounter, err = meter.Int64Counter("auth.login.attempts"); err != nil {
		return nil, err
	}
	if m.authLogoutCounter, err = meter.Int64Counter("auth.logout.attempts"); err != nil {
		return nil, err
	}
	if m.authPasswordFlowCounter, err = meter.Int64Counter("auth.password.flow.events"); err != nil {
		return nil, err
	}
	if m.sessionValidationCounter, err = meter.Int64Counter("auth.session.validation.events"); err != nil {
		return nil, err
	}
	if m.authReqDuration, err = meter.Float64Histogram("auth.request.duration", metric.WithUnit("s"), metric.WithDescription("Duration of auth endpoint requests in seconds")); err != nil {
		return nil, err
	}
	if m.adminMutationCounter, err = meter.Int64Counter("admin.mutations"); err != nil {
		return nil, err
	}
	if m.adminListReqDuration, err = meter.Float64Histogram("admin.list.request.duration", metric.WithUnit("s"), metric.WithDescription("Duration of admin list endpoint requests in seconds")); err != nil {
		return nil, err
	}
	if m.adminListPageSize, err = meter.Float64Histogram("admin.list.page_size", metric.WithDescription("Requested page size for admin list endpoints")); err != nil {
		return nil, err
	}
	if m.userProfileCounter, err = meter.Int64Counter("user.profile.events"); err != nil {
		return nil, err
	}
	if m.validationFailureCounter, err = meter.Int64Counter("validation.failures"); err != nil {
		return nil, err
	}
	if m.csrfValidationCounter, err = meter.Int64Counter("security.csrf.validation.events"); err != nil {
		return nil, err
	}
	if m.httpMiddlewareValidation, err = meter.Int64Counter("http.middleware.validation.events"); err != nil {
		return nil, err
	}
	if m.rateLimitDecisionCounter, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
		return nil, err
	}
	if m.rateLimitRetryAfter, err = meter.Float64Histogram("http.rate_limit.retry_after", metric.WithUnit("s"), metric.WithDescription("Retry-after duration in seconds for throttled requests")); err != nil {
		return nil, err
	}
	if m.settingsEventCounter, err = meter.Int64Counter("settings.events"); err != nil {
		return nil, err
	}
	if m.settingsCacheCounter, err = meter.Int64Counter("settings.cache.events"); err != nil {
		return nil, err
	}
	if m.flashEventCounter, err = meter.Int64Counter("flash.events"); err != nil {
		return nil, err
	}
	if m.mailDeliveryCounter, err = meter.Int64Counter("mail.deliveries"); err != nil {
		return nil, err
	}
	if m.storageOperationCounter, err = meter.Int64Counter("storage.operations"); err != nil {
		return nil, err
	}
	if m.storageUploadBytes, err = meter.Float64Histogram("storage.upload.size", metric.WithUnit("By"), metric.WithDescription("Size of uploaded user images in bytes")); err != nil {
		return nil, err
	}
	if m.healthCheckResultCounter, err = meter.Int64Counter("health.check.results"); err != nil {
		return nil, err
	}
	if m.healthCheckDuration, err = meter.Float64Histogram("health.check.duration", metric.WithUnit("s"), metric.WithDescription("Duration of health dependency checks in seconds")); err != nil {
		return nil, err
	}
	if m.databaseStartupCounter, err = meter.Int64Counter("database.startup.events"); err != nil {
		return nil, err
	}
	if m.databaseStartupDuration, err = meter.Float64Histogram("database.startup.duration", metric.WithUnit("s"), metric.WithDescription("Duration of database startup phases in seconds")); err != nil {
		return nil, err
	}
	if m.repositoryOpsCounter, err = meter.Int64Counter("repository.operations"); err != nil {
		return nil, err
	}
	return m, nil
}

func loadedMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func RecordAuthLogout(ctx context.Context, status string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func RecordAuthPasswordFlowEvent(ctx context.Context, flow, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.authPasswordFlowCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

func RecordSessionValidation(ctx context.Context, outcome, source string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.sessionValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordAuthRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.authReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordAdminMutation(ctx context.Context, entity, action, status string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.adminMutationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

func RecordAdminListRequestDuration(ctx context.Context, endpoint, status string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.adminListReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	))
}

func RecordAdminListPageSize(ctx context.Context, endpoint string, pageSize int) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.adminListPageSize.Record(ctx, float64(pageSize), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

func RecordUserProfileEvent(ctx context.Context, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.userProfileCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func RecordValidationFailure(ctx context.Context, form string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.validationFailureCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("form", form),
	))
}

func RecordCSRFValidation(ctx context.Context, outcome, pathGroup string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.csrfValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("path_group", pathGroup),
	))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.httpMiddlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, retryAfter time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("reason", reason),
	))
}

func RecordSettingsEvent(ctx context.Context, store, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.settingsEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordSettingsCacheEvent(ctx context.Context, backend, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.settingsCacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	))
}

func RecordFlashEvent(ctx context.Context, store, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.flashEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordMailDelivery(ctx context.Context, driver, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.mailDeliveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("driver", driver),
		attribute.String("outcome", outcome),
	))
}

func RecordStorageOperation(ctx context.Context, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.storageOperationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordStorageUploadSize(ctx context.Context, contentType string, size int64) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.storageUploadBytes.Record(ctx, float64(size), metric.WithAttributes(
		attribute.String("content_type", contentType),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("check", check),
	))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("phase", phase),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := loadedMetrics()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
