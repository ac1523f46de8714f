// Package testdb provides database fixtures for tests.
//
// OpenSQLite returns a private, migrated in-memory SQLite database and is
// always available. OpenPostgres connects to the database named by
// SHELF_TEST_DATABASE_URL (or DATABASE_URL), migrates it, empties the
// catalogue tables, and skips the calling test when neither variable is set.
//
// Both register cleanup with t.Cleanup, so callers never close the handle.
package testdb
