package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
)

type RoleRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	ListWithUsage(ctx context.Context) ([]domain.RoleWithUsage, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	DeleteByID(ctx context.Context, id uint) error
}

type GormRoleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &GormRoleRepository{db: db} }

func (r *GormRoleRepository) FindByID(ctx context.Context, id uint) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrRoleNotFound
	}
	observe(ctx, "role", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrRoleNotFound
	}
	observe(ctx, "role", "find_by_name", err)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	roles := []domain.Role{}
	err := r.db.WithContext(ctx).Order("name asc").Find(&roles).Error
	observe(ctx, "role", "list", err)
	return roles, err
}

func (r *GormRoleRepository) ListWithUsage(ctx context.Context) ([]domain.RoleWithUsage, error) {
	rows := []domain.RoleWithUsage{}
	err := r.db.WithContext(ctx).
		Model(&domain.Role{}).
		Select("roles.*, (SELECT COUNT(*) FROM users WHERE users.role_id = roles.id) AS user_count").
		Order("roles.id asc").
		Scan(&rows).Error
	observe(ctx, "role", "list_with_usage", err)
	return rows, err
}

func (r *GormRoleRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Role{}).Count(&total).Error
	observe(ctx, "role", "count", err)
	return total, err
}

func (r *GormRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	err := r.db.WithContext(ctx).Create(role).Error
	if IsUniqueViolation(err) {
		err = ErrRoleNameTaken
	}
	observe(ctx, "role", "create", err)
	return err
}

func (r *GormRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Role{ID: role.ID}).
		Select("name", "description").
		Updates(role)
	err := res.Error
	switch {
	case IsUniqueViolation(err):
		err = ErrRoleNameTaken
	case err == nil && res.RowsAffected == 0:
		err = ErrRoleNotFound
	}
	observe(ctx, "role", "update", err)
	return err
}

// DeleteByID refuses to remove a role that users still reference.
func (r *GormRoleRepository) DeleteByID(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&domain.User{}).Where("role_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrRoleInUse
		}
		res := tx.Delete(&domain.Role{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRoleNotFound
		}
		return nil
	})
	observe(ctx, "role", "delete_by_id", err)
	return err
}
