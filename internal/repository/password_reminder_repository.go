package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
)

type PasswordReminderRepository interface {
	Create(ctx context.Context, reminder *domain.PasswordReminder) error
	FindActiveByHash(ctx context.Context, hash string, now time.Time) (*domain.PasswordReminder, error)
	DeleteByUser(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormPasswordReminderRepository struct {
	db *gorm.DB
}

func NewPasswordReminderRepository(db *gorm.DB) PasswordReminderRepository {
	return &GormPasswordReminderRepository{db: db}
}

func (r *GormPasswordReminderRepository) Create(ctx context.Context, reminder *domain.PasswordReminder) error {
	err := r.db.WithContext(ctx).Create(reminder).Error
	observe(ctx, "password_reminder", "create", err)
	return err
}

func (r *GormPasswordReminderRepository) FindActiveByHash(ctx context.Context, hash string, now time.Time) (*domain.PasswordReminder, error) {
	var reminder domain.PasswordReminder
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hash, now).
		First(&reminder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrReminderNotFound
	}
	observe(ctx, "password_reminder", "find_active_by_hash", err)
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *GormPasswordReminderRepository) DeleteByUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.PasswordReminder{}).Error
	observe(ctx, "password_reminder", "delete_by_user", err)
	return err
}

func (r *GormPasswordReminderRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.PasswordReminder{})
	observe(ctx, "password_reminder", "delete_expired", res.Error)
	return res.RowsAffected, res.Error
}
