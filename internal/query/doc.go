// Package query parses, validates and executes graph queries over the
// author/book catalogue.
//
// The accepted language is a subset of GraphQL: query and mutation
// operations, optional operation names and variable definitions, fields,
// aliases, arguments (Int, String, Boolean, null and $variables), comments and
// __typename. Query text is parsed with gqlparser and narrowed to that subset:
// fragments, directives, subscriptions, list and object values are rejected
// at parse time.
//
// Execution is a single pass per request. Parse and validation failures are
// request-level: no data is resolved and the failure is the only error.
// Resolution failures are field-level: the field becomes null, an error with
// its response path is recorded and sibling fields still resolve. A request
// deadline aborts the pass and is reported once at the top level. Mutation
// results already written when the deadline expires stay in the response.
package query
