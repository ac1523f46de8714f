package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/shelf-api/internal/config"
	"github.com/phrazzld/shelf-api/internal/events"
	"github.com/phrazzld/shelf-api/internal/platform/memory"
	"github.com/phrazzld/shelf-api/internal/platform/metrics"
	"github.com/phrazzld/shelf-api/internal/platform/sqlstore"
	"github.com/phrazzld/shelf-api/internal/query"
	"github.com/phrazzld/shelf-api/internal/resolve"
	"github.com/phrazzld/shelf-api/internal/seed"
	"github.com/phrazzld/shelf-api/internal/service"
	"github.com/phrazzld/shelf-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil for the memory driver.
	db *sql.DB

	store        store.EntityStore
	resolver     *resolve.Resolver
	catalogue    service.CatalogueService
	executor     *query.Executor
	eventEmitter *events.InMemoryEventEmitter
	metrics      *metrics.Metrics
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	if err := app.setupStore(ctx); err != nil {
		return nil, err
	}

	if cfg.Seed.Enabled {
		if err := app.seed(ctx); err != nil {
			app.cleanup()
			return nil, err
		}
	}

	app.resolver = resolve.New(app.store, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewAuditLogHandler(logger))
	app.eventEmitter.RegisterHandler(app.metrics)

	catalogue, err := service.NewCatalogueService(app.store, app.eventEmitter, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize catalogue service: %w", err)
	}
	app.catalogue = catalogue

	app.executor = query.NewExecutor(app.store, app.resolver, app.catalogue, app.metrics, query.Options{
		Limits: query.Limits{
			MaxDepth:  cfg.Query.MaxDepth,
			MaxFields: cfg.Query.MaxFields,
		},
		Parallelism: cfg.Query.Parallelism,
		Timeout:     cfg.Query.Timeout(),
	}, logger)

	logger.Info("application initialized",
		slog.String("store_driver", cfg.Store.Driver),
		slog.Bool("seeded", cfg.Seed.Enabled),
		slog.Int("max_depth", cfg.Query.MaxDepth),
		slog.Int("parallelism", cfg.Query.Parallelism))
	return app, nil
}

// setupStore builds the configured entity store. SQL stores are migrated
// before use.
func (app *application) setupStore(ctx context.Context) error {
	if app.config.Store.Driver == config.DriverMemory {
		app.store = memory.NewStore(app.logger)
		return nil
	}

	d, err := sqlstore.ParseDialect(app.config.Store.Driver)
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, d, app.config.Store.URL, app.logger)
	if err != nil {
		return err
	}
	app.db = db

	if err := sqlstore.Migrate(ctx, db, d, app.logger); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	app.store = sqlstore.NewStore(db, d, app.logger)
	return nil
}

// setupAppDatabase opens the database and configures its connection pool.
func setupAppDatabase(ctx context.Context, d sqlstore.Dialect, url string, logger *slog.Logger) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := sqlstore.Open(ctx, d, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d == sqlstore.DialectPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	logger.Info("database connection established", slog.String("dialect", string(d)))
	return db, nil
}

func (app *application) seed(ctx context.Context) error {
	fixture := seed.Default()
	if path := app.config.Seed.Path; path != "" {
		var err error
		if fixture, err = seed.Load(path); err != nil {
			return err
		}
	}
	return seed.Apply(ctx, app.store, fixture, app.logger)
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
		}
		app.db = nil
	}
}
