package service

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
)

type DashboardSummary struct {
	ActiveUsers      int64  `json:"active_users"`
	ActiveUsersLabel string `json:"active_users_label"`
	Roles            int64  `json:"roles"`
	SettingsMode     string `json:"settings_mode"`
}

type DashboardService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	settings SettingsServiceInterface
}

func NewDashboardService(users repository.UserRepository, roles repository.RoleRepository, settings SettingsServiceInterface) *DashboardService {
	return &DashboardService{users: users, roles: roles, settings: settings}
}

func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	active, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	roles, err := s.roles.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count roles: %w", err)
	}
	return &DashboardSummary{
		ActiveUsers:      active,
		ActiveUsersLabel: humanize.Comma(active),
		Roles:            roles,
		SettingsMode:     string(s.settings.Mode()),
	}, nil
}
