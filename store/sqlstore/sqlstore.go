// Package sqlstore implements authflow.ProfileStore and authflow.ActivitySink
// on database/sql. SQLite (modernc.org/sqlite) and PostgreSQL (pgx stdlib)
// are supported; the schema is applied with goose from embedded migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Dialect selects placeholder style and the goose dialect.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) gooseName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// Queries are written with $N placeholders; SQLite receives ?N.
func (d Dialect) rebind(query string) string {
	if d == DialectPostgres {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// goose keeps its FS and dialect in package globals.
var gooseMu sync.Mutex

// Store is safe for concurrent use.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	verifier store.PasswordVerifier
	now      func() time.Time
	newID    func() string
}

// New wraps an open database. Call Migrate before first use unless the
// schema is managed elsewhere.
func New(db *sql.DB, dialect Dialect, verifier store.PasswordVerifier) *Store {
	return &Store{
		db:       db,
		dialect:  dialect,
		verifier: verifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Open opens a SQLite file at path, applies migrations and returns the store.
func Open(ctx context.Context, path string, verifier store.PasswordVerifier) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlstore: path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return openWith(ctx, db, DialectSQLite, verifier)
}

// OpenPostgres connects through the pgx stdlib driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string, verifier store.PasswordVerifier) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	return openWith(ctx, db, DialectPostgres, verifier)
}

func openWith(ctx context.Context, db *sql.DB, dialect Dialect, verifier store.PasswordVerifier) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := New(db, dialect, verifier)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.dialect.gooseName()); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, "migrations")
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", authflow.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
