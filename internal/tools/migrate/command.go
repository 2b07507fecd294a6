package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cms-admin-backend/internal/database"
	"github.com/sandeepkv93/cms-admin-backend/internal/di"
	"github.com/sandeepkv93/cms-admin-backend/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "migrate up", func(ctx context.Context, runner *di.MigrationRunner) ([]string, error) {
				if err := runner.Up(); err != nil {
					return nil, err
				}
				tables, err := runner.Status()
				if err != nil {
					return nil, err
				}
				return append([]string{"schema migration applied"}, describe(tables)...), nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the tables the schema expects and whether they exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "migrate status", func(ctx context.Context, runner *di.MigrationRunner) ([]string, error) {
				tables, err := runner.Status()
				if err != nil {
					return nil, err
				}
				details := describe(tables)
				for _, t := range tables {
					if !t.Exists {
						return details, fmt.Errorf("schema incomplete: table %s is missing", t.Table)
					}
				}
				return details, nil
			})
		},
	}
}

func describe(tables []database.TableStatus) []string {
	details := make([]string, 0, len(tables))
	for _, t := range tables {
		state := "present"
		if !t.Exists {
			state = "missing"
		}
		details = append(details, fmt.Sprintf("%s: %s", t.Table, state))
	}
	return details
}

func execute(opts *options, title string, fn func(context.Context, *di.MigrationRunner) ([]string, error)) error {
	_, err := common.Run(opts.ci, opts.timeout, title, func(ctx context.Context) ([]string, error) {
		if err := common.LoadEnvFile(opts.envFile); err != nil {
			return nil, err
		}
		runner, err := di.InitializeMigrationRunner()
		if err != nil {
			return nil, err
		}
		defer func() { _ = runner.Close() }()
		return fn(ctx, runner)
	})
	if err != nil {
		os.Exit(3)
	}
	return nil
}
