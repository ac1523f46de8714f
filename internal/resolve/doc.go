// Package resolve follows the relationships between authors and books.
//
// A Resolver is stateless and safe for concurrent use. A Session wraps a
// Resolver for the lifetime of one query execution and memoizes lookups so
// that repeated references to the same author or book list hit the store once.
package resolve
