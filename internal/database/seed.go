package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
)

const (
	RoleAdministrator = "Administrator"
	RoleMember        = "Member"
)

var defaultRoles = []domain.Role{
	{Name: RoleAdministrator, Description: "Full access to the admin area"},
	{Name: RoleMember, Description: "Regular account"},
}

var errDryRun = errors.New("dry run")

type SeedOptions struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
	// Settings inserts default values for keys the settings table lacks.
	Settings bool
}

type SeedReport struct {
	CreatedRoles    int  `json:"created_roles"`
	CreatedAdmin    bool `json:"created_admin"`
	CreatedSettings int  `json:"created_settings"`
	Noop            bool `json:"noop"`
	DryRun          bool `json:"dry_run"`
}

func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	_, err := SeedSync(ctx, db, opts, false)
	return err
}

// SeedSync is idempotent: existing roles, users and settings are never
// modified. With dryRun the work runs in a transaction that is rolled back.
func SeedSync(ctx context.Context, db *gorm.DB, opts SeedOptions, dryRun bool) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report := &SeedReport{DryRun: dryRun}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedRoles(tx, report); err != nil {
			return err
		}
		if err := seedAdmin(tx, opts, report); err != nil {
			return err
		}
		if opts.Settings {
			if err := seedSettings(tx, report); err != nil {
				return err
			}
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	report.Noop = report.CreatedRoles == 0 && !report.CreatedAdmin && report.CreatedSettings == 0
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

func seedRoles(tx *gorm.DB, report *SeedReport) error {
	for _, r := range defaultRoles {
		role := r
		res := tx.Where("name = ?", role.Name).FirstOrCreate(&role)
		if res.Error != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			report.CreatedRoles++
		}
	}
	return nil
}

func seedAdmin(tx *gorm.DB, opts SeedOptions, report *SeedReport) error {
	if opts.AdminUsername == "" || opts.AdminPassword == "" {
		return nil
	}
	var existing domain.User
	err := tx.Where("username = ?", opts.AdminUsername).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find bootstrap admin: %w", err)
	}
	var admin domain.Role
	if err := tx.Where("name = ?", RoleAdministrator).First(&admin).Error; err != nil {
		return fmt.Errorf("find administrator role: %w", err)
	}
	hash, err := security.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	user := domain.User{
		Username:     opts.AdminUsername,
		PasswordHash: hash,
		RoleID:       admin.ID,
		Realname:     "Administrator",
		Email:        opts.AdminEmail,
		Active:       true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	report.CreatedAdmin = true
	return nil
}

func seedSettings(tx *gorm.DB, report *SeedReport) error {
	now := time.Now().UTC()
	for _, key := range settings.Keys() {
		row := domain.Setting{Key: key, Value: settings.Defaults().ToMap()[key], CreatedAt: now, UpdatedAt: now}
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("seed setting %s: %w", key, res.Error)
		}
		report.CreatedSettings += int(res.RowsAffected)
	}
	return nil
}
