package service

import (
	"context"
	"io"
	"time"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/mail"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

type InputValidator interface {
	Validate(ctx context.Context, in validation.Input, rs validation.Ruleset) (*validation.Errors, error)
}

type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

type ImageStorage interface {
	Enabled() bool
	UploadUserImage(ctx context.Context, userID uint, file io.Reader, size int64, contentType string) (string, error)
	DeleteUserImage(ctx context.Context, key string) error
	ImageURL(ctx context.Context, key string) (string, error)
}

type UserServiceInterface interface {
	List(ctx context.Context, page int) (repository.PageResult[domain.User], error)
	Get(ctx context.Context, id uint) (*domain.User, error)
	Roles(ctx context.Context) ([]domain.Role, error)
	Create(ctx context.Context, in validation.Input) (*domain.User, error)
	Update(ctx context.Context, id uint, in validation.Input) (*UserUpdate, error)
	Delete(ctx context.Context, id uint) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uint, in validation.Input) error
	Search(ctx context.Context, in validation.Input) ([]domain.User, error)
	ImageURL(ctx context.Context, user *domain.User) string
}

type RoleServiceInterface interface {
	List(ctx context.Context) ([]domain.RoleWithUsage, error)
	Get(ctx context.Context, id uint) (*domain.Role, error)
	Create(ctx context.Context, in validation.Input) (*domain.Role, error)
	Update(ctx context.Context, id uint, in validation.Input) (*domain.Role, error)
	Delete(ctx context.Context, id uint) (*domain.Role, error)
}

type SettingsServiceInterface interface {
	Editable() bool
	Mode() settings.Mode
	Load(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, in validation.Input) error
}

type AuthServiceInterface interface {
	Login(ctx context.Context, in validation.Input) (*LoginResult, error)
	Principal(ctx context.Context, userID uint) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, in validation.Input) error
	ResetPassword(ctx context.Context, in validation.Input) error
	SessionTTL(remember bool) time.Duration
}

type DashboardServiceInterface interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
}
