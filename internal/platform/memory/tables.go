package memory

import (
	"maps"

	"github.com/phrazzld/shelf-api/internal/domain"
)

// authorTable is an immutable snapshot of the author collection.
type authorTable struct {
	records []domain.Author // insertion order
	byID    map[int]int     // id -> position in records
	maxID   int
}

// bookTable is an immutable snapshot of the book collection, including the
// authorId -> positions index derived from it.
type bookTable struct {
	records  []domain.Book
	byID     map[int]int
	byAuthor map[int][]int
	maxID    int
}

func emptyAuthorTable() *authorTable {
	return &authorTable{byID: map[int]int{}}
}

func emptyBookTable() *bookTable {
	return &bookTable{byID: map[int]int{}, byAuthor: map[int][]int{}}
}

func (t *authorTable) get(id int) (domain.Author, bool) {
	pos, ok := t.byID[id]
	if !ok {
		return domain.Author{}, false
	}
	return t.records[pos], true
}

// with returns a new table containing t's records followed by added.
// t is left untouched.
func (t *authorTable) with(added ...domain.Author) *authorTable {
	next := &authorTable{
		records: make([]domain.Author, len(t.records), len(t.records)+len(added)),
		byID:    maps.Clone(t.byID),
		maxID:   t.maxID,
	}
	copy(next.records, t.records)

	for _, a := range added {
		next.byID[a.ID] = len(next.records)
		next.records = append(next.records, a)
		next.maxID = max(next.maxID, a.ID)
	}
	return next
}

func (t *bookTable) get(id int) (domain.Book, bool) {
	pos, ok := t.byID[id]
	if !ok {
		return domain.Book{}, false
	}
	return t.records[pos], true
}

// with returns a new table containing t's records followed by added, with
// the author index extended to match.
func (t *bookTable) with(added ...domain.Book) *bookTable {
	next := &bookTable{
		records:  make([]domain.Book, len(t.records), len(t.records)+len(added)),
		byID:     maps.Clone(t.byID),
		byAuthor: make(map[int][]int, len(t.byAuthor)+len(added)),
		maxID:    t.maxID,
	}
	copy(next.records, t.records)

	// Position slices are shared with t only up to their length; the full
	// slice expression forces append to copy.
	for authorID, positions := range t.byAuthor {
		next.byAuthor[authorID] = positions[:len(positions):len(positions)]
	}

	for _, b := range added {
		pos := len(next.records)
		next.byID[b.ID] = pos
		next.byAuthor[b.AuthorID] = append(next.byAuthor[b.AuthorID], pos)
		next.records = append(next.records, b)
		next.maxID = max(next.maxID, b.ID)
	}
	return next
}
