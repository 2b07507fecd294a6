//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/sandeepkv93/cms-admin-backend/internal/app"
	"github.com/sandeepkv93/cms-admin-backend/internal/repository"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/validation"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ValidationSet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeMigrationRunner() (*MigrationRunner, error) {
	panic(wire.Build(
		ConfigSet,
		provideOpenDB,
		NewMigrationRunner,
	))
}

func InitializeSettingsTool() (*SettingsTool, error) {
	panic(wire.Build(
		ConfigSet,
		provideOpenDB,
		provideToolLogger,
		provideRedisClient,
		repository.NewSettingRepository,
		repository.NewRecordChecker,
		wire.Bind(new(validation.RecordChecker), new(*repository.GormRecordChecker)),
		provideSettingsStore,
		ValidationSet,
		service.NewSettingsService,
		NewSettingsTool,
	))
}
