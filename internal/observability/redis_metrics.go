package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentOnce sync.Once

// InstrumentRedisClient adds command metrics to client. Only the first client
// of a process is instrumented.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentOnce.Do(func() {
		hook, err := newRedisHook(otel.Meter(meterName), client)
		if err != nil {
			logger.Warn("redis instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
	})
}

// redisHook labels commands by key family: the segment after the configured
// prefix, e.g. "settings", "flash" or "ratelimit".
type redisHook struct {
	commands metric.Int64Counter
	duration metric.Float64Histogram
}

func newRedisHook(meter metric.Meter, client redis.UniversalClient) (*redisHook, error) {
	commands, err := meter.Int64Counter("redis.commands.total",
		metric.WithDescription("Redis commands by key family and outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency"))
	if err != nil {
		return nil, err
	}
	inUse, err := meter.Int64ObservableGauge("redis.pool.in_use",
		metric.WithDescription("Redis connections checked out of the pool"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if stats := client.PoolStats(); stats != nil {
			o.ObserveInt64(inUse, int64(stats.TotalConns)-int64(stats.IdleConns))
		}
		return nil
	}, inUse)
	if err != nil {
		return nil, err
	}
	return &redisHook{commands: commands, duration: duration}, nil
}

func (h *redisHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *redisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.record(ctx, cmd, err, time.Since(start))
		return err
	}
}

func (h *redisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)
		for _, cmd := range cmds {
			h.record(ctx, cmd, cmd.Err(), elapsed)
		}
		return err
	}
}

func (h *redisHook) record(ctx context.Context, cmd redis.Cmder, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("command", strings.ToLower(cmd.Name())),
		attribute.String("family", redisKeyFamily(cmd)),
		attribute.String("outcome", redisOutcome(err)),
	)
	h.commands.Add(ctx, 1, attrs)
	h.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func redisOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, redis.Nil):
		return "miss"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// redisKeyFamily reads the first key argument. Keys look like
// "<prefix>:<family>:..." or "<family>:...".
func redisKeyFamily(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "none"
	}
	key, ok := args[1].(string)
	if !ok {
		return "none"
	}
	parts := strings.SplitN(key, ":", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	for _, p := range parts {
		switch p {
		case "settings", "flash", "ratelimit":
			return p
		}
	}
	return "other"
}
