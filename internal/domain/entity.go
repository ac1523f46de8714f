package domain

import "strings"

// EntityKind identifies one of the fixed entity collections.
type EntityKind string

// Known entity kinds
const (
	KindAuthor EntityKind = "Author"
	KindBook   EntityKind = "Book"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []EntityKind{KindAuthor, KindBook}

// String returns the kind name.
func (k EntityKind) String() string {
	return string(k)
}

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindAuthor, KindBook:
		return true
	default:
		return false
	}
}

// Entity is implemented by every stored record.
type Entity interface {
	EntityKind() EntityKind
	EntityID() int
}

// isBlank reports whether s is empty or contains only whitespace.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
