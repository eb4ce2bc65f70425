// Package sqlite provides the SQLite Store backend over database/sql with
// the pure-Go modernc driver. It is the default relational engine for
// single-host deployments: one database file per tenant.
//
// Identity is the engine's native AUTOINCREMENT, which never reuses
// rowids; failed inserts may burn a value. Counters (likes, downloads)
// are incremented in SQL, never read-modify-written in Go.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register the "sqlite" driver

	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/user"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ user.Store     = (*Store)(nil)
	_ content.Store  = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
	_ commerce.Store = (*Store)(nil)
	_ firewall.Store = (*Store)(nil)
	_ site.Store     = (*Store)(nil)
)

// Store is a SQLite implementation of store.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens or creates the database file at the given path. Use the
// path ":memory:" for an ephemeral database.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("velocty/sqlite: database path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("velocty/sqlite: open %s: %w", path, err)
	}

	// The modernc driver serializes access per connection; a single
	// connection avoids SQLITE_BUSY on concurrent writers and still
	// keeps reads cheap for a per-tenant database.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applyPragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB creates a Store from an existing *sql.DB. The caller owns the
// db lifecycle; Close still closes it, matching Open's behavior.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) applyPragmas(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("velocty/sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

// Migrate runs all schema migrations in order, tracking applied names in
// the velocty_migrations table.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS velocty_migrations (
			name       TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM velocty_migrations WHERE name = ?)`, m.name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("velocty/sqlite: check migration %s: %w", m.name, err)
		}
		if applied {
			continue
		}

		for _, stmt := range m.stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("velocty/sqlite: migration %s: %w", m.name, err)
			}
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO velocty_migrations (name, applied_at) VALUES (?, ?)`,
			m.name, time.Now().UTC().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("velocty/sqlite: record migration %s: %w", m.name, err)
		}

		s.logger.Info("applied migration", "name", m.name)
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ── helpers ──────────────────────────────────────────────────────

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey checks if a SQLite error is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed: UNIQUE")
}

// readFailed logs a failed read. Reads degrade to empty results rather
// than surfacing backend errors; the site stays up, just emptier.
func (s *Store) readFailed(op string, err error) {
	s.logger.Warn("read degraded to empty result", "op", op, "error", err)
}

// toNS converts a time to stored form: UTC unix nanoseconds, zero time
// stored as 0.
func toNS(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

// fromNS converts stored unix nanoseconds back to a time.
func fromNS(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}
