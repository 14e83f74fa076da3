// Package opstore is the typed gateway to the operational store: the
// relational database holding Class and User rows (spec.md §3).
//
// The teacher's pkg/database package wraps an ent client generated from
// ent/schema. ent's generated code cannot be reproduced here without running
// `go generate`, so this package talks to PostgreSQL directly through
// jackc/pgx/v5, following the same "pool + embedded migrations" shape as the
// teacher (see DESIGN.md for the full justification).
package opstore

import (
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	stdctx "context"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for migrations
)

//go:embed migrations
var migrationsFS embed.FS

// Store is the typed gateway over the operational store's connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the operational store, runs pending migrations, and
// returns a ready-to-use Store. dsn is a standard PostgreSQL connection
// string (STORE_OPERATIONAL_DSN).
func Open(ctx stdctx.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("opstore: empty DSN")
	}

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("opstore: migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opstore: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("opstore: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool — used by tests that manage their own
// testcontainer-backed pool lifecycle.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity for the /health and /ready endpoints.
func (s *Store) Ping(ctx stdctx.Context) error {
	return s.pool.Ping(ctx)
}

func runMigrations(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open for migration: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "operational", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
