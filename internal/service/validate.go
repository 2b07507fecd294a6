package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

// validateInput returns *validation.Errors when the input is rejected and a
// wrapped error when validation itself could not run.
func validateInput(ctx context.Context, v InputValidator, form string, in validation.Input, rs validation.Ruleset) error {
	verrs, err := v.Validate(ctx, in, rs)
	if err != nil {
		return fmt.Errorf("validate %s: %w", form, err)
	}
	if verrs != nil {
		observability.RecordValidationFailure(ctx, form)
		return verrs
	}
	return nil
}

func fieldError(field, message string) *validation.Errors {
	errs := validation.NewErrors()
	errs.Add(field, message)
	return errs
}

// IsValidationError reports whether err carries field errors.
func IsValidationError(err error) (*validation.Errors, bool) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

func mutationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, repository.ErrRoleNotFound):
		return "not_found"
	}
	if _, ok := IsValidationError(err); ok {
		return "invalid"
	}
	return "error"
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
