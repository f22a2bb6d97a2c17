// Package sqlite provides SQLite-based persistent storage for readgarden.
// Uses WAL mode for concurrent reads and crash-safe writes; the schema is
// managed by embedded goose migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// FileName is the database file created inside the storage directory.
const FileName = "readgarden.db"

// LatestSchema is the newest embedded migration version.
const LatestSchema int64 = 2

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

// Open creates or opens the SQLite database at dir/readgarden.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := raw.PingContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	raw.SetMaxOpenConns(1) // SQLite is single-writer
	raw.SetMaxIdleConns(1)

	if err := migrate(raw); err != nil {
		raw.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{
		db:   sqlx.NewDb(raw, "sqlite"),
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// SchemaVersion returns the applied goose migration version.
func (d *DB) SchemaVersion() (int64, error) {
	return goose.GetDBVersion(d.db.DB)
}

// migrate applies the embedded migrations.
func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// withTx runs fn inside a transaction, rolling back on error.
func (d *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// execBuilt runs a squirrel statement on a transaction or the pool.
func execBuilt(ctx context.Context, ex sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query: %w", err)
	}
	return ex.ExecContext(ctx, query, args...)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// Timestamps are stored as RFC 3339 text so the writer's UTC offset, and
// with it the calendar date, survives a round trip.

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func parseNullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// notFound maps sql.ErrNoRows to a domain lookup error.
func notFound(err, target error) error {
	if err == sql.ErrNoRows {
		return target
	}
	return err
}
