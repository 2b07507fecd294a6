package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

func models() []any {
	return []any{
		&domain.Role{},
		&domain.User{},
		&domain.PasswordReminder{},
		&domain.Setting{},
	}
}

func Migrate(db *gorm.DB) error {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	}()
	if err := db.AutoMigrate(models()...); err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}

type TableStatus struct {
	Table  string `json:"table"`
	Exists bool   `json:"exists"`
}

// Status reports which managed tables are present.
func Status(db *gorm.DB) ([]TableStatus, error) {
	out := make([]TableStatus, 0, len(models()))
	for _, m := range models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		out = append(out, TableStatus{Table: stmt.Schema.Table, Exists: db.Migrator().HasTable(m)})
	}
	return out, nil
}
