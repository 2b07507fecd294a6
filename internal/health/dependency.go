package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		return failed(res, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return failed(res, err)
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return failed(res, err)
	}
	return res
}

// SettingsChecker loads the configured settings store, which covers both a
// readable settings file and the settings table.
type SettingsChecker struct {
	store settings.Store
}

func NewSettingsChecker(store settings.Store) Checker {
	if store == nil {
		return nil
	}
	return &SettingsChecker{store: store}
}

func (c *SettingsChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "settings_" + string(c.store.Mode()), Healthy: true}
	if _, err := c.store.Load(ctx); err != nil {
		return failed(res, err)
	}
	return res
}

// Pinger is any dependency with a cheap reachability probe, such as the
// image bucket.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingChecker struct {
	name string
	p    Pinger
}

func NewPingChecker(name string, p Pinger) Checker {
	if p == nil {
		return nil
	}
	return &PingChecker{name: name, p: p}
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: c.name, Healthy: true}
	if err := c.p.Ping(ctx); err != nil {
		return failed(res, err)
	}
	return res
}

func failed(res CheckResult, err error) CheckResult {
	res.Healthy = false
	res.Error = err.Error()
	return res
}
