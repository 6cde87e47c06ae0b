// Package sqldb opens the SQL databases used by the trust store and the
// result cache and hides the few dialect differences between them.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Supported dialects.
const (
	SQLite   = "sqlite"
	MySQL    = "mysql"
	Postgres = "postgres"
)

var drivers = map[string]string{
	SQLite:   "sqlite3",
	MySQL:    "mysql",
	Postgres: "postgres",
}

// DB is a database handle that knows its dialect.
type DB struct {
	*sql.DB
	dialect string
	logger  *zap.Logger
}

// Open connects to dsn using dialect and checks the connection.
func Open(ctx context.Context, dialect, dsn string, logger *zap.Logger) (*DB, error) {
	driver, ok := drivers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL dialect: %s", dialect)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// a single connection serializes writers and keeps ":memory:" databases shared
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	logger.Info("Connected to database", zap.String("dialect", dialect))
	return &DB{DB: db, dialect: dialect, logger: logger}, nil
}

// Dialect returns the dialect name.
func (d *DB) Dialect() string { return d.dialect }

// Rebind rewrites "?" placeholders for dialects that number them.
func (d *DB) Rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate runs each statement in order.
func (d *DB) Migrate(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s database: %w", d.dialect, err)
		}
	}
	return nil
}

// Close closes the database and logs failures.
func (d *DB) Close() error {
	if err := d.DB.Close(); err != nil {
		d.logger.Error("Failed to close database", zap.String("dialect", d.dialect), zap.Error(err))
		return err
	}
	return nil
}
