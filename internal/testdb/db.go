package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

var sqliteCounter atomic.Int64

// GetTestDatabaseURL returns the PostgreSQL URL for tests.
// It checks SHELF_TEST_DATABASE_URL and DATABASE_URL in that order,
// returning the first non-empty value.
func GetTestDatabaseURL() string {
	if url := os.Getenv("SHELF_TEST_DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("DATABASE_URL")
}

// IsIntegrationTestEnvironment reports whether a PostgreSQL test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// SQLiteURL returns a URL for a named in-memory SQLite database that is
// private to the current process.
func SQLiteURL(name string) string {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		name, sqliteCounter.Add(1))
}

// OpenSQLite opens a fresh, migrated in-memory SQLite database.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()
	return open(t, sqlstore.DialectSQLite, SQLiteURL(t.Name()))
}

// OpenPostgres opens the configured PostgreSQL test database, migrates it and
// removes every catalogue row. The test is skipped when no database is configured.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("SHELF_TEST_DATABASE_URL or DATABASE_URL not set - skipping integration test")
	}

	db := open(t, sqlstore.DialectPostgres, url)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	_, err := db.ExecContext(ctx, "TRUNCATE books, authors")
	require.NoError(t, err, "Failed to truncate catalogue tables")

	return db
}

func open(t *testing.T, d sqlstore.Dialect, url string) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlstore.Open(ctx, d, url)
	require.NoError(t, err, "Failed to open %s test database", d)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database connection: %v", err)
		}
	})

	err = sqlstore.Migrate(ctx, db, d, logger.Discard())
	require.NoError(t, err, "Failed to run migrations")

	return db
}
