// Package database provides database connection and migration functionality.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"returnsdesk/internal/config"
	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	// Import PostgreSQL driver for database/sql
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // required for golang-migrate postgres driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// OpenTelemetry SQL instrumentation
	"go.nhat.io/otelsql"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ReturnsTable is the single table owned by the application
const ReturnsTable = "returns"

// columnSpec is a column that may be missing from tables created by older releases
type columnSpec struct {
	Name string
	DDL  string
}

// optionalReturnColumns are added at startup when absent, oldest first
var optionalReturnColumns = []columnSpec{
	{Name: "approved_by", DDL: "TEXT"},
	{Name: "created_at", DDL: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
}

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriverNameCache string
	otelDriverOnce      sync.Once
	otelDriverErr       error
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// InitDBWithConfig opens the pool, applies migrations and backfills missing columns
func (dm *Manager) InitDBWithConfig(ctx context.Context, cfg config.DatabaseConfig) (result0 *sqlx.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "InitDBWithConfig",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
		attribute.String("db.system", "postgresql"),
		attribute.Bool("migrations.enabled", true),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
		attribute.String("db.conn_max_lifetime", cfg.ConnMaxLifetime.String()),
	)
	defer observability.FinishSpan(span, &err)

	db, err := dm.InitDBWithoutMigrations(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := dm.RunMigrations(ctx, cfg.URL); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := dm.EnsureReturnColumns(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// extractDatabaseName extracts the database name from a PostgreSQL connection string
func extractDatabaseName(databaseURL string) string {
	if u, err := url.Parse(databaseURL); err == nil && u.Path != "" {
		if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
			return dbName
		}
	}

	// key=value DSN: look for dbname=
	for _, part := range strings.Fields(databaseURL) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}

	return "returns"
}

// InitDBWithoutMigrations opens an instrumented connection pool and verifies it with a ping
func (dm *Manager) InitDBWithoutMigrations(ctx context.Context, cfg config.DatabaseConfig) (result0 *sqlx.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "InitDBWithoutMigrations",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
	)
	defer observability.FinishSpan(span, &err)

	// Register the instrumented driver once per process and reuse the name
	otelDriverOnce.Do(func() {
		otelDriverNameCache, otelDriverErr = otelsql.Register("postgres",
			otelsql.WithDatabaseName(extractDatabaseName(cfg.URL)),
			otelsql.TraceQueryWithArgs(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
			otelsql.TraceRowsAffected(),
		)
	})
	if otelDriverErr != nil {
		return nil, contextutils.WrapWithCode(otelDriverErr, contextutils.ErrDatabaseConnection, "failed to register otelsql driver")
	}

	sqlDB, err := sql.Open(otelDriverNameCache, cfg.URL)
	if err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrDatabaseConnection, "failed to open database connection")
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.WrapWithCode(err, contextutils.ErrServiceUnavailable, "failed to ping database")
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"database":          contextutils.RedactURL(cfg.URL),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	// lib/pq uses $n placeholders
	return sqlx.NewDb(sqlDB, "postgres"), nil
}

// RunMigrations applies the embedded golang-migrate migrations on a dedicated connection
func (dm *Manager) RunMigrations(ctx context.Context, databaseURL string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.system", "postgresql"),
		attribute.String("migration.type", "golang_migrate"),
	)
	defer observability.FinishSpan(span, &err)

	m, err := dm.newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			dm.logger.Error(ctx, "Error closing migration", errors.Join(srcErr, dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "migrate up failed")
	}

	if version, dirty, verr := m.Version(); verr == nil {
		span.SetAttributes(attribute.Int64("migration.version", int64(version)))
		dm.logger.Info(ctx, "Migrations applied", map[string]interface{}{"version": version, "dirty": dirty})
	}
	return nil
}

// MigrateDown rolls back every migration; used by returnsctl db reset
func (dm *Manager) MigrateDown(ctx context.Context, databaseURL string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "MigrateDown")
	defer observability.FinishSpan(span, &err)

	m, err := dm.newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "migrate down failed")
	}
	dm.logger.Warn(ctx, "All migrations rolled back")
	return nil
}

func (dm *Manager) newMigrator(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrDatabaseConnection, "failed to initialize golang-migrate")
	}
	return m, nil
}

// EnsureReturnColumns adds optional columns missing from a returns table created outside
// the migration history. It returns the names of the columns it added.
func (dm *Manager) EnsureReturnColumns(ctx context.Context, db *sqlx.DB) (added []string, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "EnsureReturnColumns")
	defer observability.FinishSpan(span, &err)

	var existing []string
	if err := db.SelectContext(ctx, &existing,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`,
		ReturnsTable); err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "failed to inspect returns columns")
	}

	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[strings.ToLower(name)] = true
	}

	for _, col := range optionalReturnColumns {
		if present[col.Name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", ReturnsTable, col.Name, col.DDL)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return added, contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "failed to add column "+col.Name)
		}
		dm.logger.Warn(ctx, "Added missing column to returns table", map[string]interface{}{"column": col.Name})
		added = append(added, col.Name)
	}

	span.SetAttributes(attribute.Int("columns.added", len(added)))
	return added, nil
}
