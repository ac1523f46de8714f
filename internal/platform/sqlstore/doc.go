// Package sqlstore provides a durable implementation of store.EntityStore on
// database/sql. It supports PostgreSQL (through the pgx stdlib driver) and
// SQLite (through the cgo-free modernc driver), builds its statements with
// squirrel so placeholders match the dialect, and owns its schema as goose
// migrations embedded in the binary.
//
// Insertion order is recorded in a seq column rather than inferred from ids,
// because seeded ids need not be ascending.
package sqlstore
