package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// Dialect selects placeholder style and DDL for the connected database.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Open connects to the database named by databaseURL and pings it.
// Accepted forms are postgres://..., postgresql://... and sqlite://<path> (or sqlite:<path>).
func Open(databaseURL string) (*sql.DB, Dialect, error) {
	var (
		driver  string
		dsn     string
		dialect Dialect
	)
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		driver, dsn, dialect = "postgres", databaseURL, Postgres
	case strings.HasPrefix(databaseURL, "sqlite://"):
		driver, dsn, dialect = "sqlite", strings.TrimPrefix(databaseURL, "sqlite://"), SQLite
	case strings.HasPrefix(databaseURL, "sqlite:"):
		driver, dsn, dialect = "sqlite", strings.TrimPrefix(databaseURL, "sqlite:"), SQLite
	default:
		return nil, 0, fmt.Errorf("unsupported database URL scheme: %q", databaseURL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == SQLite {
		// A single connection keeps writes serialized on the file.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(defaultMaxOpenConns)
		db.SetMaxIdleConns(defaultMaxIdleConns)
		db.SetConnMaxLifetime(defaultConnMaxLifetime)
		db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
	}

	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, 0, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}

// Migrate creates the members table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	idColumn := "BIGSERIAL PRIMARY KEY"
	tsType := "TIMESTAMPTZ"
	if dialect == SQLite {
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
		tsType = "TIMESTAMP"
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS members (
		id %s,
		cedula TEXT NOT NULL UNIQUE,
		name_first TEXT NOT NULL,
		name_second TEXT NOT NULL DEFAULT '',
		surname_first TEXT NOT NULL,
		surname_second TEXT NOT NULL DEFAULT '',
		agency TEXT NOT NULL,
		company TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		delivered_at %s NULL,
		delivered_by TEXT NOT NULL DEFAULT ''
	)`, idColumn, tsType)

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to migrate members table: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
