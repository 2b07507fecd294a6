package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cms-admin-backend/internal/database"
	"github.com/sandeepkv93/cms-admin-backend/internal/di"
	"github.com/sandeepkv93/cms-admin-backend/internal/tools/common"
)

type options struct {
	envFile       string
	timeout       time.Duration
	adminUsername string
	adminEmail    string
	ci            bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().StringVar(&opts.adminUsername, "admin-username", "", "override bootstrap admin username")
	cmd.PersistentFlags().StringVar(&opts.adminEmail, "admin-email", "", "override bootstrap admin email")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Insert default roles, the bootstrap admin and default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "seed apply", false)
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would insert without keeping it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "seed dry-run", true)
		},
	}
}

func execute(opts *options, title string, dryRun bool) error {
	_, err := common.Run(opts.ci, opts.timeout, title, func(ctx context.Context) ([]string, error) {
		if err := common.LoadEnvFile(opts.envFile); err != nil {
			return nil, err
		}
		runner, err := di.InitializeMigrationRunner()
		if err != nil {
			return nil, err
		}
		defer func() { _ = runner.Close() }()

		seedOpts := applyOverrides(runner.SeedOptions(), opts)
		report, err := runner.Seed(ctx, seedOpts, dryRun)
		if err != nil {
			return nil, err
		}
		return summarize(report, seedOpts), nil
	})
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func applyOverrides(seedOpts database.SeedOptions, opts *options) database.SeedOptions {
	if v := strings.TrimSpace(opts.adminUsername); v != "" {
		seedOpts.AdminUsername = v
	}
	if v := strings.TrimSpace(strings.ToLower(opts.adminEmail)); v != "" {
		seedOpts.AdminEmail = v
	}
	return seedOpts
}

func summarize(report *database.SeedReport, seedOpts database.SeedOptions) []string {
	verb := "inserted"
	if report.DryRun {
		verb = "would insert"
	}
	if report.Noop {
		return []string{"nothing to seed: roles, admin and settings already present"}
	}
	details := []string{fmt.Sprintf("%s %d role(s)", verb, report.CreatedRoles)}
	if report.CreatedAdmin {
		details = append(details, fmt.Sprintf("%s administrator %q", verb, seedOpts.AdminUsername))
	} else if seedOpts.AdminUsername == "" {
		details = append(details, "no bootstrap administrator configured")
	}
	if seedOpts.Settings {
		details = append(details, fmt.Sprintf("%s %d default setting(s)", verb, report.CreatedSettings))
	}
	return details
}
