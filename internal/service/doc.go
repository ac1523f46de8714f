// Package service provides application-level services for the catalogue.
//
// CatalogueService is the only path by which authors and books are created
// after startup. It validates input, serializes writers per entity type,
// verifies that a new book's author exists, delegates the append to the
// store and emits an events.EntityCreated once the write has succeeded.
//
// Error handling principles:
//  1. Invalid input is returned as a *domain.ValidationError and nothing is written
//  2. Unexpected errors are wrapped in ServiceError
//  3. Callers use errors.Is/errors.As to check for specific error conditions
package service
