// Package domain contains the core entities of the library catalogue (authors
// and books), the enumeration of entity kinds, and the error taxonomy shared by
// the store, resolver, query and service layers. It has no dependencies on any
// infrastructure or delivery mechanism.
package domain
