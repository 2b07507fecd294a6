package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cms-admin-backend/internal/di"
	"github.com/sandeepkv93/cms-admin-backend/internal/service"
	"github.com/sandeepkv93/cms-admin-backend/internal/tools/common"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "settings", Short: "Export and import the site settings"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newExportCommand(opts), newImportCommand(opts))
	return cmd
}

func newExportCommand(opts *options) *cobra.Command {
	var out string
	var withSecrets bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current settings as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				// The document goes to stdout, so skip the spinner and CI summary.
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return err
				}
				tool, err := di.InitializeSettingsTool()
				if err != nil {
					return err
				}
				defer func() { _ = tool.Close() }()
				ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
				defer cancel()
				return tool.Export(ctx, cmd.OutOrStdout(), withSecrets)
			}
			return execute(opts, "settings export", func(ctx context.Context, tool *di.SettingsTool) ([]string, error) {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return nil, fmt.Errorf("open %s: %w", out, err)
				}
				if err := tool.Export(ctx, f, withSecrets); err != nil {
					_ = f.Close()
					return nil, err
				}
				if err := f.Close(); err != nil {
					return nil, err
				}
				return []string{"store: " + string(tool.Mode()), "written to " + out}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&withSecrets, "with-secrets", false, "include the mail server password")
	return cmd
}

func newImportCommand(opts *options) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a YAML settings document and write it to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "settings import", func(ctx context.Context, tool *di.SettingsTool) ([]string, error) {
				var r io.Reader = cmd.InOrStdin()
				if in != "-" {
					f, err := os.Open(in)
					if err != nil {
						return nil, fmt.Errorf("open %s: %w", in, err)
					}
					defer f.Close()
					r = f
				}
				imported, err := tool.Import(ctx, r)
				if err != nil {
					return rejected(err), err
				}
				return []string{
					"store: " + string(tool.Mode()),
					"site: " + imported.SiteName,
					"mail driver: " + imported.MailDriver,
				}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&in, "file", "f", "-", "input file, - for stdin")
	return cmd
}

// rejected lists the field errors of a failed import.
func rejected(err error) []string {
	verrs, ok := service.IsValidationError(err)
	if !ok {
		return nil
	}
	var details []string
	for _, field := range verrs.Fields() {
		details = append(details, field+": "+strings.Join(verrs.Get(field), "; "))
	}
	return details
}

func execute(opts *options, title string, fn func(context.Context, *di.SettingsTool) ([]string, error)) error {
	_, err := common.Run(opts.ci, opts.timeout, title, func(ctx context.Context) ([]string, error) {
		if err := common.LoadEnvFile(opts.envFile); err != nil {
			return nil, err
		}
		tool, err := di.InitializeSettingsTool()
		if err != nil {
			return nil, err
		}
		defer func() { _ = tool.Close() }()
		return fn(ctx, tool)
	})
	if err != nil {
		if _, ok := service.IsValidationError(err); ok {
			os.Exit(2)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			os.Exit(4)
		}
		os.Exit(3)
	}
	return nil
}
