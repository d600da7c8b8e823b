// Command adminctl runs console maintenance tasks against the configured database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"superadmin/internal/app"
	"superadmin/internal/config"
	"superadmin/internal/db"
	"superadmin/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "adminctl",
		Short:        "SuperAdmin console maintenance",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.log = logger.Must(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.AddCommand(c.migrateCmd(), c.seedCmd(), c.remindersCmd())
	return root
}

// withApp builds the application, runs fn and releases connections.
func (c *cli) withApp(fn func(*app.App) error) error {
	a, err := app.New(c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			c.log.Warn("release resources", zap.Error(err))
		}
	}()
	return fn(a)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gormDB, err := db.Open(c.cfg.DBDriver, c.cfg.MySQLDSN, c.cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)
			if err := db.Migrate(gormDB); err != nil {
				return err
			}
			c.log.Info("migrations applied", zap.String("driver", c.cfg.DBDriver))
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		demo     bool
		email    string
		password string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create default roles, the superadmin account and default settings",
		Long: `Seed is idempotent: existing roles, users and settings are left untouched.
Credentials default to SEED_SUPERADMIN_EMAIL and SEED_SUPERADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(func(a *app.App) error {
				opts := a.SeedOptions()
				if cmd.Flags().Changed("demo") {
					opts.DemoUsers = demo
				}
				if email != "" {
					opts.SuperAdminEmail = email
				}
				if password != "" {
					opts.SuperAdminPassword = password
				}
				res, err := a.Seeder.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also create demo admin and user accounts")
	cmd.Flags().StringVar(&email, "email", "", "superadmin email")
	cmd.Flags().StringVar(&password, "password", "", "superadmin password")
	return cmd
}

func (c *cli) remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inactive-user reminder campaign",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Send reminders to every eligible inactive user now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(func(a *app.App) error {
				res, err := a.InactiveUsers.SendRemindersToAll(cmd.Context(), nil)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print reminder statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(func(a *app.App) error {
				res, err := a.InactiveUsers.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	var days int
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Refresh reminder statistics and prune old audit entries",
		Long:  "Without --days the AUDIT_RETENTION_DAYS setting applies; zero keeps every entry.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = c.cfg.AuditRetentionDays
			}
			if days < 0 {
				return fmt.Errorf("--days must not be negative, got %d", days)
			}
			return c.withApp(func(a *app.App) error {
				res, err := a.InactiveUsers.Cleanup(cmd.Context(), days)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cleanup.Flags().IntVar(&days, "days", 0, "audit retention in days")

	cmd.AddCommand(run, stats, cleanup)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
