package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/cms-admin-backend/internal/config"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

// Open connects with the configured driver. Errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey on every driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "open", time.Since(start))
	}()

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "open", "error")
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	if cfg.DatabaseDriver == config.DriverSQLite {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "open", "success")
	return db, nil
}
