package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/cms-admin-backend/internal/domain"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

type RoleService struct {
	roles     repository.RoleRepository
	validator InputValidator
}

func NewRoleService(roles repository.RoleRepository, validator InputValidator) *RoleService {
	return &RoleService{roles: roles, validator: validator}
}

func (s *RoleService) List(ctx context.Context) ([]domain.RoleWithUsage, error) {
	return s.roles.ListWithUsage(ctx)
}

func (s *RoleService) Get(ctx context.Context, id uint) (*domain.Role, error) {
	return s.roles.FindByID(ctx, id)
}

func (s *RoleService) Create(ctx context.Context, in validation.Input) (role *domain.Role, err error) {
	defer func() { observability.RecordAdminMutation(ctx, "role", "create", mutationOutcome(err)) }()

	if err := validateInput(ctx, s.validator, "role_store", in, roleRules(0)); err != nil {
		return nil, err
	}
	role = &domain.Role{Name: in.Trimmed("name"), Description: in.Trimmed("description")}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrRoleNameTaken) {
			return nil, fieldError("name", "The Name has already been taken.")
		}
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

func (s *RoleService) Update(ctx context.Context, id uint, in validation.Input) (role *domain.Role, err error) {
	defer func() { observability.RecordAdminMutation(ctx, "role", "update", mutationOutcome(err)) }()

	role, err = s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(ctx, s.validator, "role_update", in, roleRules(id)); err != nil {
		return nil, err
	}
	role.Name = in.Trimmed("name")
	role.Description = in.Trimmed("description")
	if err := s.roles.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoleNameTaken):
			return nil, fieldError("name", "The Name has already been taken.")
		case errors.Is(err, repository.ErrRoleNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return role, nil
}

// Delete refuses roles still assigned to users with repository.ErrRoleInUse.
func (s *RoleService) Delete(ctx context.Context, id uint) (role *domain.Role, err error) {
	defer func() { observability.RecordAdminMutation(ctx, "role", "delete", mutationOutcome(err)) }()

	role, err = s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.roles.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) || errors.Is(err, repository.ErrRoleInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("delete role: %w", err)
	}
	return role, nil
}
