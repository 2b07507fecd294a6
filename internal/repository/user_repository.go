package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	ListActivePaged(ctx context.Context, req PageRequest) (PageResult[domain.User], error)
	Search(ctx context.Context, query string) ([]domain.User, error)
	CountActive(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	DeleteByID(ctx context.Context, id uint) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Role").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observe(ctx, "user", "find_by_id", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Role").Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observe(ctx, "user", "find_by_username", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? AND active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		Order("id asc").
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observe(ctx, "user", "find_active_by_email", err)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) ListActivePaged(ctx context.Context, req PageRequest) (PageResult[domain.User], error) {
	req = req.normalized()
	base := r.db.WithContext(ctx).Model(&domain.User{}).Where("active = ?", true).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		observe(ctx, "user", "list_active_paged", err)
		return PageResult[domain.User]{}, err
	}
	items := []domain.User{}
	err := base.Preload("Role").
		Order("id asc").
		Offset(req.offset()).
		Limit(req.PageSize).
		Find(&items).Error
	observe(ctx, "user", "list_active_paged", err)
	if err != nil {
		return PageResult[domain.User]{}, err
	}
	return newPageResult(req, items, total), nil
}

// Search matches query as a case-insensitive substring of username,
// realname or email. LIKE wildcards in query are matched literally.
func (r *GormUserRepository) Search(ctx context.Context, query string) ([]domain.User, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	users := []domain.User{}
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(realname) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
		Order("id asc").
		Find(&users).Error
	observe(ctx, "user", "search", err)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("active = ?", true).Count(&total).Error
	observe(ctx, "user", "count_active", err)
	return total, err
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Omit("Role").Create(user).Error
	if IsUniqueViolation(err) {
		err = ErrUsernameTaken
	}
	observe(ctx, "user", "create", err)
	return err
}

// Update overwrites every mutable column of user, including zero values.
func (r *GormUserRepository) Update(ctx context.Context, user *domain.User) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{ID: user.ID}).
		Select("username", "password_hash", "role_id", "realname", "email", "image", "active").
		Updates(user)
	err := res.Error
	switch {
	case IsUniqueViolation(err):
		err = ErrUsernameTaken
	case err == nil && res.RowsAffected == 0:
		err = ErrUserNotFound
	}
	observe(ctx, "user", "update", err)
	return err
}

func (r *GormUserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	observe(ctx, "user", "update_password", err)
	return err
}

func (r *GormUserRepository) DeleteByID(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.User{}, id)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		err = ErrUserNotFound
	}
	observe(ctx, "user", "delete_by_id", err)
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(v string) string {
	return likeEscaper.Replace(v)
}
