package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/cms-admin-backend/internal/settings"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

// ErrSettingsReadOnly is returned by Save when settings live in files and
// cannot be edited from the admin.
var ErrSettingsReadOnly = errors.New("settings are not editable in the current store mode")

type SettingsService struct {
	store     settings.Store
	validator InputValidator
}

func NewSettingsService(store settings.Store, validator InputValidator) *SettingsService {
	return &SettingsService{store: store, validator: validator}
}

func (s *SettingsService) Mode() settings.Mode { return s.store.Mode() }

// Editable is true only for the database store.
func (s *SettingsService) Editable() bool { return s.store.Mode() == settings.ModeDatabase }

func (s *SettingsService) Load(ctx context.Context) (settings.Settings, error) {
	return s.store.Load(ctx)
}

// Save validates the form and rewrites the whole key set. A blank
// mailPassword keeps the stored one, since the form never echoes it.
func (s *SettingsService) Save(ctx context.Context, in validation.Input) error {
	if !s.Editable() {
		return ErrSettingsReadOnly
	}
	if err := validateInput(ctx, s.validator, "settings", in, settingsRules()); err != nil {
		return err
	}
	current, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	values := make(map[string]string, len(settings.Keys()))
	for _, key := range settings.Keys() {
		values[key] = in.Trimmed(key)
	}
	if values[settings.KeyMailPassword] == "" {
		values[settings.KeyMailPassword] = current.MailPassword
	} else {
		values[settings.KeyMailPassword] = in.Get(settings.KeyMailPassword)
	}
	if err := s.store.Save(ctx, settings.FromMap(values)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Import validates a full snapshot and writes it to the underlying store in
// either mode. It backs the operator tooling, not the admin form.
func (s *SettingsService) Import(ctx context.Context, in settings.Settings) error {
	if err := validateInput(ctx, s.validator, "settings_import", validation.NewInput(in.ToMap()), settingsRules()); err != nil {
		return err
	}
	if err := s.store.Save(ctx, in); err != nil {
		return fmt.Errorf("import settings: %w", err)
	}
	return nil
}
