package store

import (
	"context"

	"github.com/phrazzld/shelf-api/internal/domain"
)

// AuthorStore defines persistence operations for authors.
type AuthorStore interface {
	// GetAuthor retrieves an author by id.
	// Returns ErrAuthorNotFound if the author does not exist.
	GetAuthor(ctx context.Context, id int) (*domain.Author, error)

	// ListAuthors returns every author in insertion order.
	// Returns an empty slice when there are none.
	ListAuthors(ctx context.Context) ([]*domain.Author, error)

	// InsertAuthor assigns the next id (current max + 1), appends the author and
	// returns the stored copy. The ID of the argument is ignored.
	// Returns a *domain.ValidationError if the name is blank.
	InsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error)
}

// BookStore defines persistence operations for books.
type BookStore interface {
	// GetBook retrieves a book by id.
	// Returns ErrBookNotFound if the book does not exist.
	GetBook(ctx context.Context, id int) (*domain.Book, error)

	// ListBooks returns every book in insertion order.
	ListBooks(ctx context.Context) ([]*domain.Book, error)

	// InsertBook assigns the next id, appends the book and returns the stored copy.
	// Returns a *domain.ValidationError if the name is blank or AuthorID does
	// not reference an existing author; nothing is written in that case.
	InsertBook(ctx context.Context, book *domain.Book) (*domain.Book, error)
}

// EntityStore is the full store contract consumed by the resolver, executor
// and mutation coordinator.
type EntityStore interface {
	AuthorStore
	BookStore
}

// BookIndex is implemented by stores that maintain an authorId -> books index.
// Results must be identical to filtering ListBooks by AuthorID.
type BookIndex interface {
	ListBooksByAuthor(ctx context.Context, authorID int) ([]*domain.Book, error)
}

// Seeder is implemented by stores that accept initial records with
// predetermined ids.
type Seeder interface {
	// Seed loads authors then books in the given order. Ids must be positive
	// and unique per kind, names non-blank, and every book must reference a
	// seeded or already stored author. Seeding is all-or-nothing.
	Seed(ctx context.Context, authors []domain.Author, books []domain.Book) error
}
