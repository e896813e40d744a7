// Package sqlstore implements library.Store on database/sql for SQLite and
// PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/hmans/catalog/internal/library"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store is a SQL-backed library.Store.
type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ library.Store = (*Store)(nil)

type dialect struct {
	name      string
	seqColumn string
	rebind    func(string) string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:      DriverSQLite,
		seqColumn: "seq INTEGER PRIMARY KEY AUTOINCREMENT",
		rebind:    func(q string) string { return q },
	},
	DriverPostgres: {
		name:      DriverPostgres,
		seqColumn: "seq BIGSERIAL PRIMARY KEY",
		rebind:    rebindDollar,
	},
}

// Open connects to the database, applies migrations and returns a store.
// For SQLite, dsn is a file path; the parent directory is created if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	if driver == DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY on upgrades.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS authors (
			` + s.dialect.seqColumn + `,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL UNIQUE,
			born INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			` + s.dialect.seqColumn + `,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			published INTEGER NOT NULL,
			author_id TEXT NOT NULL REFERENCES authors(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_author_id ON books(author_id)`,
		`CREATE TABLE IF NOT EXISTS book_genres (
			book_id TEXT NOT NULL REFERENCES books(id),
			position INTEGER NOT NULL,
			genre TEXT NOT NULL,
			PRIMARY KEY (book_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_book_genres_genre ON book_genres(genre)`,
		`CREATE TABLE IF NOT EXISTS users (
			` + s.dialect.seqColumn + `,
			id TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			favorite_genre TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// q rewrites placeholders for the active dialect.
func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// rebindDollar turns ? placeholders into $1, $2, ... for PostgreSQL.
func rebindDollar(query string) string {
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

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func bornPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
