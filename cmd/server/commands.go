package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/phrazzld/shelf-api/internal/config"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/platform/sqlstore"
	"github.com/spf13/cobra"
)

// ErrNoSQLStore is returned by migrate commands when the configured store
// driver has no schema.
var ErrNoSQLStore = errors.New("migrations require the postgres or sqlite store driver")

// newRootCommand builds the CLI. Running it without a subcommand serves.
func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "shelf-api",
		Short:         "Graph query server for an author and book catalogue",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "",
		"path to a config file (default: ./config.yaml if present)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configFile)
			},
		},
		newMigrateCommand(&configFile),
	)
	return root
}

func newMigrateCommand(configFile *string) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL store schema",
	}

	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrationTarget(cmd.Context(), *configFile, sqlstore.Migrate)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrationTarget(cmd.Context(), *configFile, sqlstore.MigrateDown)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrationTarget(cmd.Context(), *configFile,
					func(ctx context.Context, db *sql.DB, d sqlstore.Dialect, log *slog.Logger) error {
						statuses, err := sqlstore.Status(ctx, db, d, log)
						if err != nil {
							return err
						}
						return printStatus(cmd.OutOrStdout(), statuses)
					})
			},
		},
	)
	return migrate
}

// loadConfig reads configuration and installs the configured logger.
func loadConfig(configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runServe(ctx context.Context, configFile string) error {
	cfg, log, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return err
	}
	defer app.cleanup()

	return app.startHTTPServer(ctx, app.setupRouter())
}

type migrationFn func(ctx context.Context, db *sql.DB, d sqlstore.Dialect, log *slog.Logger) error

// withMigrationTarget opens the configured SQL database and runs fn against it.
func withMigrationTarget(ctx context.Context, configFile string, fn migrationFn) error {
	cfg, log, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.DriverMemory {
		return ErrNoSQLStore
	}

	d, err := sqlstore.ParseDialect(cfg.Store.Driver)
	if err != nil {
		return err
	}

	db, err := sqlstore.Open(ctx, d, cfg.Store.URL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("failed to close database", slog.String("error", cerr.Error()))
		}
	}()

	return fn(ctx, db, d, log)
}

func printStatus(w io.Writer, statuses []sqlstore.MigrationStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tSOURCE")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, state, s.Source)
	}
	return tw.Flush()
}
