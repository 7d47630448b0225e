package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Supported values for Options.Driver
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver is returned for driver names other than sqlite or postgres
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// sql.Open driver names registered by the imports above
var sqlDriverNames = map[string]string{
	DriverSQLite:   "sqlite",
	DriverPostgres: "pgx",
}

// IsSupportedDriver reports whether name can be passed as Options.Driver
func IsSupportedDriver(name string) bool {
	_, ok := sqlDriverNames[name]
	return ok
}

// Options configures a database connection pool
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps the timetable database connection pool
type DB struct {
	*sql.DB
	driver string
}

// New opens a connection pool and verifies it with a ping
func New(ctx context.Context, opts Options) (*DB, error) {
	sqlDriver, ok := sqlDriverNames[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}

	dsn := opts.DSN
	if opts.Driver == DriverSQLite && !strings.Contains(dsn, "?") {
		// WAL lets readers proceed while a seed import is writing
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	log.Debug().Str("driver", opts.Driver).Msg("Database connection established")

	return &DB{
		DB:     db,
		driver: opts.Driver,
	}, nil
}

// Driver returns the configured driver name
func (db *DB) Driver() string {
	return db.driver
}

// placeholder returns the bind marker for the n-th (1-based) query argument
func (db *DB) placeholder(n int) string {
	if db.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Transaction wraps a function in a database transaction
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
