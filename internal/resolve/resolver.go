package resolve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/store"
	"github.com/samber/lo"
)

// Resolver navigates entity relationships over a store.EntityStore.
type Resolver struct {
	store  store.EntityStore
	index  store.BookIndex
	logger *slog.Logger
}

// New creates a Resolver. If s implements store.BookIndex, BooksOf uses it.
// If logger is nil, a default logger will be used.
func New(s store.EntityStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resolver{
		store:  s,
		logger: logger.With(slog.String("component", "resolver")),
	}
	if idx, ok := s.(store.BookIndex); ok {
		r.index = idx
	}
	return r
}

// AuthorOf returns the author referenced by book. A missing author yields a
// *domain.IntegrityError rather than nil.
func (r *Resolver) AuthorOf(ctx context.Context, book *domain.Book) (*domain.Author, error) {
	author, err := r.store.GetAuthor(ctx, book.AuthorID)
	if errors.Is(err, store.ErrNotFound) {
		logger.FromContextOrDefault(ctx, r.logger).Error("book references missing author",
			slog.Int("book_id", book.ID),
			slog.Int("author_id", book.AuthorID))
		return nil, &domain.IntegrityError{
			Kind:    domain.KindBook,
			ID:      book.ID,
			RefKind: domain.KindAuthor,
			RefID:   book.AuthorID,
		}
	}
	if err != nil {
		return nil, err
	}
	return author, nil
}

// BooksOf returns the books written by author in insertion order. It never
// returns nil on success.
func (r *Resolver) BooksOf(ctx context.Context, author *domain.Author) ([]*domain.Book, error) {
	if r.index != nil {
		books, err := r.index.ListBooksByAuthor(ctx, author.ID)
		if err != nil {
			return nil, err
		}
		if books == nil {
			books = []*domain.Book{}
		}
		return books, nil
	}

	all, err := r.store.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(b *domain.Book, _ int) bool {
		return b.AuthorID == author.ID
	}), nil
}

// Session returns a request-scoped memoizing view of r.
func (r *Resolver) Session() *Session {
	return newSession(r)
}
