package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Register the "sqlite" driver

	"github.com/calendariko/calendariko/internal/logging"
)

//go:embed migrations
var migrationsFS embed.FS

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DB manages the database connection
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
	dbPath string
}

// New creates a new database connection using the provided options.
// PRAGMAs are part of the DSN so every pooled connection gets them.
func New(opts SQLiteOptions) (*DB, error) {
	connStr := opts.buildConnectionString()
	logger := logging.GetLogger("database").With().Str("db_path", opts.Path).Logger()
	logger.Info().Str("connection_string", connStr).Msg("Opening database connection")
	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to a private in-memory database is a new database.
	if opts.inMemory() {
		conn.SetMaxOpenConns(1)
	}

	if err = conn.Ping(); err != nil {
		logger.Error().Err(err).Msg("Failed to ping database")
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info().Msg("Database connection opened and configured successfully")

	return &DB{conn: conn, logger: logger, dbPath: opts.Path}, nil
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// beginTx starts a new database transaction with the given options (private method)
func (db *DB) beginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	db.logger.Debug().Msg("Starting database transaction")
	tx, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		db.logger.Error().Err(err).Msg("Failed to start database transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// WithTransaction executes fn within a database transaction. The
// transaction is rolled back when fn returns an error or panics.
func (db *DB) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.beginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			db.logger.Error().Interface("panic", p).Msg("Panic occurred during transaction, rolling back")
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				db.logger.Error().Err(rollbackErr).Msg("Failed to rollback transaction during panic recovery")
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		db.logger.Debug().Err(err).Msg("Transaction function returned error, rolling back")
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			db.logger.Error().Err(rollbackErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error().Err(err).Msg("Failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.logger.Debug().Msg("Transaction committed successfully")
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info().Msg("Closing database connection")
	if err := db.conn.Close(); err != nil {
		db.logger.Error().Err(err).Msg("Failed to close database connection")
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// MigrateDatabase applies the embedded migrations.
func (db *DB) MigrateDatabase() error {
	db.logger.Info().Msg("Starting database migration")
	driver, err := sqlite.WithInstance(db.conn, &sqlite.Config{})
	if err != nil {
		db.logger.Error().Err(err).Msg("Failed to create database driver for migration")
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	subFS, err := fs.Sub(migrationsFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem: %w", err)
	}

	sourceInstance, err := iofs.New(subFS, ".")
	if err != nil {
		db.logger.Error().Err(err).Msg("Failed to create embedded file source for migration")
		return fmt.Errorf("failed to create embedded file source: %w", err)
	}

	// The migrator is not closed: closing it would close db.conn.
	m, err := migrate.NewWithInstance("iofs", sourceInstance, "sqlite", driver)
	if err != nil {
		db.logger.Error().Err(err).Msg("Failed to create migrator instance")
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	db.logger.Info().Uint("current_version", currentVersion).Bool("dirty", dirty).Msg("Current database migration version")

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			db.logger.Info().Msg("No new migrations to apply")
			return nil
		}
		db.logger.Error().Err(err).Msg("Failed to apply migrations")
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, dirty, err := m.Version()
	if err != nil {
		db.logger.Warn().Err(err).Msg("Failed to get migration version after applying migrations")
		return nil
	}
	db.logger.Info().Uint("previous_version", currentVersion).Uint("new_version", newVersion).Bool("dirty", dirty).Msg("Migrations applied successfully")
	return nil
}
