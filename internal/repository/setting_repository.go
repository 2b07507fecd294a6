package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
)

type SettingRepository interface {
	List(ctx context.Context) ([]domain.Setting, error)
	// UpsertAll writes every pair in one transaction. Keys not present in
	// values are left untouched.
	UpsertAll(ctx context.Context, values map[string]string) error
}

type GormSettingRepository struct{ db *gorm.DB }

func NewSettingRepository(db *gorm.DB) SettingRepository { return &GormSettingRepository{db: db} }

func (r *GormSettingRepository) List(ctx context.Context) ([]domain.Setting, error) {
	rows := []domain.Setting{}
	err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error
	observe(ctx, "setting", "list", err)
	return rows, err
}

func (r *GormSettingRepository) UpsertAll(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	rows := make([]domain.Setting, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, domain.Setting{Key: k, Value: values[k], CreatedAt: now, UpdatedAt: now})
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	observe(ctx, "setting", "upsert_all", err)
	return err
}
