// Package store defines the Entity Store contract: typed lookup, insertion-ordered
// listing and validated insertion for each entity kind. These interfaces abstract
// the backing storage (in-memory snapshots or a SQL database) from the resolver,
// executor and mutation coordinator, so a durable backend can be swapped in
// without changing them.
package store
