// Package memory provides the in-memory implementation of store.EntityStore.
//
// Each collection is held in an immutable snapshot published through an
// atomic pointer. Readers load the current snapshot and never take a lock;
// writers build the next snapshot under the collection's writer lock and
// publish it in one step, so a reader sees either the whole insert or none of
// it. Book inserts hold the author collection's read lock across validation
// and append, which keeps a concurrent author writer from racing the
// referential check.
package memory
