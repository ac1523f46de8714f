package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/store"
	"github.com/samber/lo"
)

// Store is the in-memory entity store. The zero value is not usable; call NewStore.
type Store struct {
	// Writer locks. Lock order is bookMu before authorMu.
	authorMu sync.RWMutex
	bookMu   sync.Mutex

	authors atomic.Pointer[authorTable]
	books   atomic.Pointer[bookTable]

	logger *slog.Logger
}

// NewStore creates an empty store.
// If logger is nil, a default logger will be used.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{logger: logger.With(slog.String("component", "memory_store"))}
	s.authors.Store(emptyAuthorTable())
	s.books.Store(emptyBookTable())
	return s
}

// Ensure Store implements the store interfaces
var (
	_ store.EntityStore = (*Store)(nil)
	_ store.BookIndex   = (*Store)(nil)
	_ store.Seeder      = (*Store)(nil)
)

// GetAuthor implements store.AuthorStore.
func (s *Store) GetAuthor(_ context.Context, id int) (*domain.Author, error) {
	a, ok := s.authors.Load().get(id)
	if !ok {
		return nil, store.ErrAuthorNotFound
	}
	return &a, nil
}

// ListAuthors implements store.AuthorStore.
func (s *Store) ListAuthors(_ context.Context) ([]*domain.Author, error) {
	return lo.Map(s.authors.Load().records, func(a domain.Author, _ int) *domain.Author {
		return &a
	}), nil
}

// InsertAuthor implements store.AuthorStore.
func (s *Store) InsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := author.ValidateFields(); err != nil {
		log.Warn("author validation failed during insert", slog.String("error", err.Error()))
		return nil, err
	}

	s.authorMu.Lock()
	cur := s.authors.Load()
	stored := domain.Author{ID: cur.maxID + 1, Name: author.Name}
	s.authors.Store(cur.with(stored))
	s.authorMu.Unlock()

	log.Info("author inserted",
		slog.Int("author_id", stored.ID),
		slog.Int("author_count", len(cur.records)+1))
	return &stored, nil
}

// GetBook implements store.BookStore.
func (s *Store) GetBook(_ context.Context, id int) (*domain.Book, error) {
	b, ok := s.books.Load().get(id)
	if !ok {
		return nil, store.ErrBookNotFound
	}
	return &b, nil
}

// ListBooks implements store.BookStore.
func (s *Store) ListBooks(_ context.Context) ([]*domain.Book, error) {
	return lo.Map(s.books.Load().records, func(b domain.Book, _ int) *domain.Book {
		return &b
	}), nil
}

// ListBooksByAuthor implements store.BookIndex.
func (s *Store) ListBooksByAuthor(_ context.Context, authorID int) ([]*domain.Book, error) {
	t := s.books.Load()
	positions := t.byAuthor[authorID]

	books := make([]*domain.Book, 0, len(positions))
	for _, pos := range positions {
		b := t.records[pos]
		books = append(books, &b)
	}
	return books, nil
}

// InsertBook implements store.BookStore. The author collection is read-locked
// from the existence check until the new snapshot is published.
func (s *Store) InsertBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := book.ValidateFields(); err != nil {
		log.Warn("book validation failed during insert", slog.String("error", err.Error()))
		return nil, err
	}

	s.bookMu.Lock()
	defer s.bookMu.Unlock()
	s.authorMu.RLock()
	defer s.authorMu.RUnlock()

	if _, ok := s.authors.Load().get(book.AuthorID); !ok {
		log.Warn("book references unknown author",
			slog.Int("author_id", book.AuthorID))
		return nil, domain.NewValidationError("authorId",
			fmt.Sprintf("author %d does not exist", book.AuthorID), domain.ErrUnknownAuthor)
	}

	cur := s.books.Load()
	stored := domain.Book{ID: cur.maxID + 1, Name: book.Name, AuthorID: book.AuthorID}
	s.books.Store(cur.with(stored))

	log.Info("book inserted",
		slog.Int("book_id", stored.ID),
		slog.Int("author_id", stored.AuthorID),
		slog.Int("book_count", len(cur.records)+1))
	return &stored, nil
}

// Seed implements store.Seeder.
func (s *Store) Seed(ctx context.Context, authors []domain.Author, books []domain.Book) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.bookMu.Lock()
	defer s.bookMu.Unlock()
	s.authorMu.Lock()
	defer s.authorMu.Unlock()

	curAuthors := s.authors.Load()
	curBooks := s.books.Load()

	seen := map[int]bool{}
	for i := range authors {
		a := authors[i]
		if err := a.Validate(); err != nil {
			return fmt.Errorf("seed author %d: %w", i, err)
		}
		if _, exists := curAuthors.get(a.ID); exists || seen[a.ID] {
			return fmt.Errorf("seed author %d: %w: id %d", i, store.ErrDuplicate, a.ID)
		}
		seen[a.ID] = true
	}
	nextAuthors := curAuthors.with(authors...)

	seen = map[int]bool{}
	for i := range books {
		b := books[i]
		if err := b.Validate(); err != nil {
			return fmt.Errorf("seed book %d: %w", i, err)
		}
		if _, exists := curBooks.get(b.ID); exists || seen[b.ID] {
			return fmt.Errorf("seed book %d: %w: id %d", i, store.ErrDuplicate, b.ID)
		}
		if _, ok := nextAuthors.get(b.AuthorID); !ok {
			return fmt.Errorf("seed book %d: %w", i, domain.NewValidationError("authorId",
				fmt.Sprintf("author %d does not exist", b.AuthorID), domain.ErrUnknownAuthor))
		}
		seen[b.ID] = true
	}

	// Authors first so no reader can observe a book before its author.
	s.authors.Store(nextAuthors)
	s.books.Store(curBooks.with(books...))

	log.Info("store seeded",
		slog.Int("authors", len(authors)),
		slog.Int("books", len(books)))
	return nil
}
