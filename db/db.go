// Package db provides database connectivity and migration functionality for the postboard
// application. It opens the PostgreSQL connection pool that every repository receives
// explicitly, and applies the schema migrations embedded in the binary (or read from a
// directory on disk).
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	// Registers the "postgres://" database scheme with golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file" // For MIGRATIONS_DIR
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // database/sql driver used underneath migrate's postgres driver

	"github.com/user/postboard-go/apperror"
	"github.com/user/postboard-go/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Querier is the subset of the pgx API the repositories use. *pgxpool.Pool, *pgx.Conn
// and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// NewPool establishes the PostgreSQL connection pool described by cfg and verifies it
// with a ping. The caller owns the pool and must Close it on shutdown.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, apperror.NewDatabaseError("error parsing database connection string", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	// Every statement is prepared once per connection and reused afterwards.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	// Use a context with a timeout so an unreachable database cannot block startup forever.
	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(createCtx, poolConfig)
	if err != nil {
		return nil, apperror.NewDatabaseError("error creating connection pool", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close() // Clean up on connection failure
		return nil, apperror.NewDatabaseError("error connecting to the database", err)
	}

	return pool, nil
}

// Migrator wraps golang-migrate for the postboard schema.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator prepares a migrator against the database described by cfg. When dir is
// empty the SQL files embedded in this package are used, otherwise they are read from dir.
func NewMigrator(cfg *config.DatabaseConfig, dir string, logger *slog.Logger) (*Migrator, error) {
	var (
		m   *migrate.Migrate
		err error
	)
	if dir == "" {
		var src source.Driver
		src, err = iofs.New(migrationsFS, "migrations")
		if err != nil {
			return nil, apperror.NewMigrationError("failed to open embedded migrations", err)
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, cfg.DSN())
	} else {
		m, err = migrate.New("file://"+dir, cfg.DSN())
	}
	if err != nil {
		return nil, apperror.NewMigrationError("failed to create migrator", err)
	}
	if logger != nil {
		m.Log = &migrateLogger{logger: logger}
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. Having nothing to apply is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to run migrations", err)
	}
	return nil
}

// Down rolls back the given number of migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return apperror.NewMigrationError(fmt.Sprintf("invalid number of steps: %d", steps), nil)
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to roll back migrations", err)
	}
	return nil
}

// Version reports the current schema version. A database that was never migrated
// reports version 0.
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperror.NewMigrationError("failed to read migration version", err)
	}
	return version, dirty, nil
}

// Close releases the source and database handles held by golang-migrate.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// RunMigrations applies all pending migrations and closes the migrator.
func RunMigrations(cfg *config.DatabaseConfig, dir string, logger *slog.Logger) error {
	mg, err := NewMigrator(cfg, dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := mg.Close(); err != nil && logger != nil {
			logger.Warn("error closing migrator", "error", err)
		}
	}()
	return mg.Up()
}

// migrateLogger adapts slog to golang-migrate's Logger interface.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...), "component", "migrate")
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

// MigrationFiles lists the embedded migration file names, in order.
func MigrationFiles() ([]string, error) {
	return fs.Glob(migrationsFS, "migrations/*.sql")
}
