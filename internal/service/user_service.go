package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/security"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

const msgUploadsUnavailable = "Image uploads are not available."

// UserUpdate carries the saved user and the username it had before the edit.
type UserUpdate struct {
	User             *domain.User
	PreviousUsername string
}

type UserService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	validator InputValidator
	images    ImageStorage
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	validator InputValidator,
	images ImageStorage,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, roles: roles, validator: validator, images: images, logger: logger}
}

func (s *UserService) List(ctx context.Context, page int) (repository.PageResult[domain.User], error) {
	return s.users.ListActivePaged(ctx, repository.PageRequest{Page: page, PageSize: repository.DefaultPageSize})
}

func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Roles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

func (s *UserService) Create(ctx context.Context, in validation.Input) (user *domain.User, err error) {
	defer func() { observability.RecordAdminMutation(ctx, "user", "create", mutationOutcome(err)) }()

	if in.HasFile("image") && !s.images.Enabled() {
		return nil, fieldError("image", msgUploadsUnavailable)
	}
	if err := validateInput(ctx, s.validator, "user_store", in, userRules(0)); err != nil {
		return nil, err
	}
	roleID, err := parseID(in.Get("role"))
	if err != nil {
		return nil, fieldError("role", "The selected Role is invalid.")
	}
	hash, err := security.HashPassword(in.Get("password"))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user = &domain.User{
		Username:     in.Trimmed("username"),
		PasswordHash: hash,
		RoleID:       roleID,
		Realname:     in.Trimmed("realname"),
		Email:        in.Trimmed("email"),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, fieldError("username", "The Username has already been taken.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if fh := in.File("image"); in.HasFile("image") {
		key, err := s.storeImage(ctx, user.ID, fh)
		if err != nil {
			if delErr := s.users.DeleteByID(ctx, user.ID); delErr != nil {
				s.logger.ErrorContext(ctx, "rollback user after failed upload", "user_id", user.ID, "error", delErr)
			}
			return nil, err
		}
		user.Image = key
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("attach user image: %w", err)
		}
	}
	return user, nil
}

// Update overwrites every field from the form. The password changes only
// when a new one was typed and the image only when a file was uploaded.
func (s *UserService) Update(ctx context.Context, id uint, in validation.Input) (result *UserUpdate, err error) {
	defer func() { observability.RecordAdminMutation(ctx, "user", "update", mutationOutcome(err)) }()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.HasFile("image") && !s.images.Enabled() {
		return nil, fieldError("image", msgUploadsUnavailable)
	}
	if err := validateInput(ctx, s.validator, "user_update", in, userRules(id)); err != nil {
		return nil, err
	}
	roleID, err := parseID(in.Get("role"))
	if err != nil {
		return nil, fieldError("role", "The selected Role is invalid.")
	}

	previous := user.Username
	user.Username = in.Trimmed("username")
	user.RoleID = roleID
	user.Role = nil
	user.Realname = in.Trimmed("realname")
	user.Email = in.Trimmed("email")
	if password := in.Get("password"); password != "" {
		hash, err := security.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	oldImage := user.Image
	newImage := ""
	if fh := in.File("image"); in.HasFile("image") {
		if newImage, err = s.storeImage(ctx, user.ID, fh); err != nil {
			return nil, err
		}
		user.Image = newImage
	}

	if err := s.users.Update(ctx, user); err != nil {
		if newImage != "" {
			s.removeImage(ctx, newImage)
		}
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, fieldError("username", "The Username has already been taken.")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if newImage != "" && oldImage != "" {
		s.removeImage(ctx, oldImage)
	}
	return &UserUpdate{User: user, PreviousUsername: previous}, nil
}

// Delete removes the user permanently and returns the record as it was.
func (s *UserService) Delete(ctx context.Context, id uint) (user *domain.User, err error) {
	defer func() { observability.RecordAdminMutation(ctx, "user", "delete", mutationOutcome(err)) }()

	user, err = s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	if user.Image != "" {
		s.removeImage(ctx, user.Image)
	}
	return user, nil
}

// ChangePassword lets the signed-in user replace their own password after
// proving they know the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, in validation.Input) (err error) {
	defer func() {
		outcome := mutationOutcome(err)
		observability.RecordUserProfileEvent(ctx, outcome)
	}()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := validateInput(ctx, s.validator, "profile", in, profileRules(user.PasswordHash)); err != nil {
		return err
	}
	hash, err := security.HashPassword(in.Get("password"))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserService) Search(ctx context.Context, in validation.Input) ([]domain.User, error) {
	if err := validateInput(ctx, s.validator, "user_search", in, searchRules()); err != nil {
		return nil, err
	}
	users, err := s.users.Search(ctx, in.Trimmed("query"))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// ImageURL returns a temporary link to the user's picture, or "" when there
// is none or it cannot be resolved.
func (s *UserService) ImageURL(ctx context.Context, user *domain.User) string {
	if user == nil || user.Image == "" || !s.images.Enabled() {
		return ""
	}
	u, err := s.images.ImageURL(ctx, user.Image)
	if err != nil {
		s.logger.WarnContext(ctx, "resolve user image", "user_id", user.ID, "error", err)
		return ""
	}
	return u
}

func (s *UserService) storeImage(ctx context.Context, userID uint, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key, err := s.images.UploadUserImage(ctx, userID, f, fh.Size, fh.Header.Get("Content-Type"))
	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, ErrFileTooBig):
		return "", fieldError("image", "The Profile Picture may not be greater than 1024 kilobytes.")
	case errors.Is(err, ErrInvalidFileType):
		return "", fieldError("image", "The Profile Picture must be a file of type: png, jpg, jpeg, gif.")
	case errors.Is(err, ErrStorageDisabled):
		return "", fieldError("image", msgUploadsUnavailable)
	}
	return "", fmt.Errorf("store user image: %w", err)
}

func (s *UserService) removeImage(ctx context.Context, key string) {
	if err := s.images.DeleteUserImage(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "remove user image", "key", key, "error", err)
	}
}
