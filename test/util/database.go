// Package util provides shared test database setup, adapted from the
// teacher's test/util/database.go: one PostgreSQL testcontainer shared
// across a test package (started once via sync.Once), with each test
// getting its own schema for isolation. The teacher creates its schema via
// ent.Schema.Create against an ent driver; this module has no ent client,
// so NewOpStore runs the same golang-migrate migrations pkg/opstore.Open
// uses against a connection string scoped to the test's schema via the
// standard search_path query parameter.
package util

import (
	"context"
	stdsql "database/sql"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tulkka/lessonpipe/pkg/opstore"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// NewOpStore returns an opstore.Store backed by a uniquely-schemad
// connection into the package's shared PostgreSQL testcontainer, and
// registers t.Cleanup to close it and drop the schema.
func NewOpStore(t *testing.T) *opstore.Store {
	t.Helper()
	store, _ := NewOpStoreWithDSN(t)
	return store
}

// NewOpStoreWithDSN is like NewOpStore but also returns the schema-scoped
// DSN, for tests that need a second raw connection (e.g. a seeding pool, or
// extra connections racing concurrent writers against the same schema).
func NewOpStoreWithDSN(t *testing.T) (*opstore.Store, string) {
	t.Helper()
	ctx := context.Background()

	baseConnStr := getOrCreateSharedDatabase(t)
	schemaName := generateSchemaName(t)

	db, err := stdsql.Open("pgx", baseConnStr)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schemaName))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	connStrWithSchema := addSearchPath(baseConnStr, schemaName)

	store, err := opstore.Open(ctx, connStrWithSchema)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
		cleanupDB, err := stdsql.Open("pgx", baseConnStr)
		if err != nil {
			return
		}
		defer cleanupDB.Close()
		_, _ = cleanupDB.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
	})

	return store, connStrWithSchema
}

// getOrCreateSharedDatabase starts one PostgreSQL container per test
// package. It always starts a container; no external database URL from the
// environment is consulted.
func getOrCreateSharedDatabase(t *testing.T) string {
	t.Helper()
	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("starting postgres container: %w", err)
			return
		}
		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("connection string: %w", err)
			return
		}
		sharedConnStr = connStr
	})

	require.NoError(t, containerErr, "failed to set up shared test container")
	return sharedConnStr
}

func generateSchemaName(t *testing.T) string {
	t.Helper()
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}

	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	require.NoError(t, err)

	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(randomBytes))
}

func addSearchPath(connStr, schema string) string {
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", connStr, sep, schema)
}
