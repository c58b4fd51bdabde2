package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"

	queryTimeout = 10 * time.Second
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record already exists")
	ErrInvalidReference = errors.New("referenced record does not exist")
)

func init() {
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// DB is the persistence store for users, tasks and tags.
type DB struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database named by databaseURL. Supported forms are
// postgres://... (or postgresql://...) and sqlite://<path>, where the path may be
// :memory:. SQLite connections are opened with foreign keys on.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	driver, dsn, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	switch driver {
	case driverSQLite:
		// One connection serializes writers and keeps an in-memory database alive.
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &DB{db: db, driver: driver}, nil
}

func parseURL(databaseURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return driverPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return "", "", errors.New("sqlite database URL has no path")
		}
		// Set per connection so every pooled connection enforces foreign keys.
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return driverSQLite, path + sep + "_pragma=foreign_keys(1)", nil
	default:
		return "", "", fmt.Errorf("unsupported database URL %q", databaseURL)
	}
}

// InitSchema creates the tables if they do not exist yet. It is called once,
// before the server starts accepting requests.
func (d *DB) InitSchema(ctx context.Context) error {
	stmts := sqliteSchema
	if d.driver == driverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Driver reports the database/sql driver in use ("pgx" or "sqlite").
func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) rebind(query string) string {
	return d.db.Rebind(query)
}

// classify maps driver errors onto the package's sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrConflict, liteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", ErrInvalidReference, liteErr.Error())
		}
		msg := liteErr.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		}
		if strings.Contains(msg, "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: %s", ErrInvalidReference, msg)
		}
	}
	return err
}

// now is the timestamp stored for created_at/updated_at. Postgres keeps
// microseconds, so truncate to keep returned records equal to stored ones.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
