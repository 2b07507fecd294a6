package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrRoleNotFound     = errors.New("role not found")
	ErrRoleNameTaken    = errors.New("role name already taken")
	ErrRoleInUse        = errors.New("role is assigned to users")
	ErrReminderNotFound = errors.New("password reminder not found")
)

// IsUniqueViolation reports whether err was raised by a unique index.
// Drivers that do not translate errors are matched on their message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

func observe(ctx context.Context, entity, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRoleNotFound), errors.Is(err, ErrReminderNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrRoleNameTaken), errors.Is(err, ErrRoleInUse):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	observability.RecordRepositoryOperation(ctx, entity, op, outcome)
}
