package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/edupro-device-guard/internal/config"
	"github.com/sandeepkv93/edupro-device-guard/internal/database"
	"github.com/sandeepkv93/edupro-device-guard/internal/di"
	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
	"github.com/sandeepkv93/edupro-device-guard/internal/tools/common"
	"github.com/sandeepkv93/edupro-device-guard/internal/tools/ui"
)

type options struct {
	ci      bool
	timeout time.Duration
}

// initializer is swapped in tests.
var initializer = di.InitializeContainer

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "deviceguard",
		Short:         "Device sharing detection for course access",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "deadline for one-shot commands")
	cmd.AddCommand(newServeCommand(), newMigrateCommand(opts), newCleanupCommand(opts), newStatsCommand(opts))
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled device cleanup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, cleanup, err := initializer(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return c.App.Run(ctx)
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, opts, "migrate", func(ctx context.Context) ([]string, error) {
				cfg, err := config.Load()
				if err != nil {
					return nil, err
				}
				db, err := database.Open(cfg)
				if err != nil {
					return nil, err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer func() { _ = sqlDB.Close() }()
				}
				if err := database.Migrate(db, observability.NewLogger(os.Stderr, cfg.LogLevel, nil)); err != nil {
					return nil, err
				}
				return []string{"driver=" + cfg.DatabaseDriver}, nil
			})
		},
	}
}

func newCleanupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Deactivate devices with no recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, opts, "device cleanup", withContainer(func(ctx context.Context, c *di.Container) ([]string, error) {
				n, err := c.Scheduler.RunCleanup(ctx)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("deactivated=%d", n)}, nil
			}))
		},
	}
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print violation case counts and active devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, opts, "violation stats", withContainer(func(ctx context.Context, c *di.Container) ([]string, error) {
				stats, err := c.Violations.GetViolationStats(ctx)
				if err != nil {
					return nil, err
				}
				active, err := c.Devices.CountActive(ctx)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("total=%d", stats.Total),
					fmt.Sprintf("%s=%d", domain.ViolationStatusPending, stats.Pending),
					fmt.Sprintf("%s=%d", domain.ViolationStatusResolved, stats.Resolved),
					fmt.Sprintf("%s=%d", domain.ViolationStatusDismissed, stats.Dismissed),
					fmt.Sprintf("active_devices=%d", active),
				}, nil
			}))
		},
	}
}

func withContainer(fn func(context.Context, *di.Container) ([]string, error)) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		c, cleanup, err := initializer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		return fn(ctx, c)
	}
}

func oneShot(cmd *cobra.Command, opts *options, title string, fn func(context.Context) ([]string, error)) error {
	run := func(ctx context.Context) ([]string, error) {
		ctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		return fn(ctx)
	}

	var (
		details []string
		err     error
	)
	if opts.ci {
		details, err = run(cmd.Context())
		common.PrintCIResult(err == nil, title, details, err)
		return err
	}
	_, err = ui.Run(title, run)
	return err
}
