package memory_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/platform/memory"
	"github.com/phrazzld/shelf-api/internal/store"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	seedAuthors = []domain.Author{
		{ID: 1, Name: "J. K. Rowling"},
		{ID: 2, Name: "J. R. R. Tolkien"},
		{ID: 3, Name: "Brent Weeks"},
	}
	seedBooks = []domain.Book{
		{ID: 1, Name: "Harry Potter and the Chamber of Secrets", AuthorID: 1},
		{ID: 2, Name: "Harry Potter and the Prisoner of Azkaban", AuthorID: 1},
		{ID: 3, Name: "Harry Potter and the Goblet of Fire", AuthorID: 1},
		{ID: 4, Name: "The Fellowship of the Ring", AuthorID: 2},
		{ID: 5, Name: "The Two Towers", AuthorID: 2},
		{ID: 6, Name: "The Return of the King", AuthorID: 2},
		{ID: 7, Name: "The Way of Shadows", AuthorID: 3},
		{ID: 8, Name: "Beyond the Shadows", AuthorID: 3},
	}
)

func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore(logger.Discard())
	require.NoError(t, s.Seed(context.Background(), seedAuthors, seedBooks))
	return s
}

func bookNames(books []*domain.Book) []string {
	return lo.Map(books, func(b *domain.Book, _ int) string { return b.Name })
}

func TestStore_GetAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	author, err := s.GetAuthor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "J. R. R. Tolkien", author.Name)

	book, err := s.GetBook(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, book.AuthorID)

	_, err = s.GetAuthor(ctx, 99)
	assert.ErrorIs(t, err, store.ErrAuthorNotFound)
	_, err = s.GetBook(ctx, 99)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
	assert.True(t, store.IsNotFoundError(err))

	authors, err := s.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Len(t, authors, 3)

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, bookNames(lo.ToSlicePtr(seedBooks)), bookNames(books))
}

func TestStore_EmptyLists(t *testing.T) {
	t.Parallel()
	s := memory.NewStore(nil)

	authors, err := s.ListAuthors(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, authors)
	assert.Empty(t, authors)

	books, err := s.ListBooksByAuthor(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestStore_InsertAssignsNextID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	author, err := s.InsertAuthor(ctx, &domain.Author{ID: 42, Name: "Ursula K. Le Guin"})
	require.NoError(t, err)
	assert.Equal(t, 4, author.ID, "caller-supplied id must be ignored")

	book, err := s.InsertBook(ctx, &domain.Book{Name: "A Wizard of Earthsea", AuthorID: author.ID})
	require.NoError(t, err)
	assert.Equal(t, 9, book.ID)

	got, err := s.GetBook(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, *book, *got)
}

func TestStore_InsertionOrderAcrossSeedAndAdds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewStore(logger.Discard())

	// Seed ids deliberately out of numeric order.
	require.NoError(t, s.Seed(ctx,
		[]domain.Author{{ID: 5, Name: "Late"}, {ID: 2, Name: "Early"}},
		nil))

	added, err := s.InsertAuthor(ctx, &domain.Author{Name: "Newest"})
	require.NoError(t, err)
	assert.Equal(t, 6, added.ID, "next id is current max + 1")

	authors, err := s.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Late", "Early", "Newest"},
		lo.Map(authors, func(a *domain.Author, _ int) string { return a.Name }))
}

func TestStore_InsertBookUnknownAuthor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	_, err := s.InsertBook(ctx, &domain.Book{Name: "Orphan", AuthorID: 77})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownAuthor)
	assert.True(t, domain.IsValidationError(err))

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, len(seedBooks), "failed insert must not append")

	next, err := s.InsertBook(ctx, &domain.Book{Name: "Adopted", AuthorID: 1})
	require.NoError(t, err)
	assert.Equal(t, 9, next.ID, "failed insert must not consume an id")
}

func TestStore_InsertBlankName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	_, err := s.InsertAuthor(ctx, &domain.Author{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrBlankName)

	_, err = s.InsertBook(ctx, &domain.Book{Name: "", AuthorID: 1})
	assert.ErrorIs(t, err, domain.ErrBlankName)

	authors, _ := s.ListAuthors(ctx)
	assert.Len(t, authors, 3)
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	book, err := s.GetBook(ctx, 1)
	require.NoError(t, err)
	book.Name = "tampered"
	book.AuthorID = 3

	again, err := s.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Harry Potter and the Chamber of Secrets", again.Name)
	assert.Equal(t, 1, again.AuthorID)

	list, _ := s.ListBooksByAuthor(ctx, 1)
	list[0].Name = "tampered"
	list, _ = s.ListBooksByAuthor(ctx, 1)
	assert.Equal(t, "Harry Potter and the Chamber of Secrets", list[0].Name)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	before, err := s.ListBooksByAuthor(ctx, 3)
	require.NoError(t, err)

	_, err = s.InsertBook(ctx, &domain.Book{Name: "Shadow's Edge", AuthorID: 3})
	require.NoError(t, err)

	assert.Len(t, before, 2, "earlier reads are unaffected by later writes")

	after, err := s.ListBooksByAuthor(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Way of Shadows", "Beyond the Shadows", "Shadow's Edge"}, bookNames(after))
}

func TestStore_IndexMatchesFilterScan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	for i := 0; i < 20; i++ {
		_, err := s.InsertBook(ctx, &domain.Book{Name: "Extra", AuthorID: i%3 + 1})
		require.NoError(t, err)
	}

	all, err := s.ListBooks(ctx)
	require.NoError(t, err)

	for _, a := range seedAuthors {
		indexed, err := s.ListBooksByAuthor(ctx, a.ID)
		require.NoError(t, err)
		scanned := lo.Filter(all, func(b *domain.Book, _ int) bool { return b.AuthorID == a.ID })
		assert.Equal(t, scanned, indexed, "author %d", a.ID)
	}
}

func TestStore_SeedValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name    string
		authors []domain.Author
		books   []domain.Book
		wantErr error
	}{
		{
			name:    "duplicate author id",
			authors: []domain.Author{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}},
			wantErr: store.ErrDuplicate,
		},
		{
			name:    "author id collides with stored",
			authors: []domain.Author{{ID: 3, Name: "Again"}},
			wantErr: store.ErrDuplicate,
		},
		{
			name:    "blank author name",
			authors: []domain.Author{{ID: 10, Name: ""}},
			wantErr: domain.ErrBlankName,
		},
		{
			name:    "book with unknown author",
			authors: []domain.Author{{ID: 10, Name: "New"}},
			books:   []domain.Book{{ID: 20, Name: "Lost", AuthorID: 11}},
			wantErr: domain.ErrUnknownAuthor,
		},
		{
			name:    "book id zero",
			books:   []domain.Book{{ID: 0, Name: "Nope", AuthorID: 1}},
			wantErr: domain.ErrInvalidID,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newSeededStore(t)

			err := s.Seed(ctx, tc.authors, tc.books)
			assert.ErrorIs(t, err, tc.wantErr)

			authors, _ := s.ListAuthors(ctx)
			books, _ := s.ListBooks(ctx)
			assert.Len(t, authors, len(seedAuthors), "seed is all-or-nothing")
			assert.Len(t, books, len(seedBooks), "seed is all-or-nothing")
		})
	}

	t.Run("book may reference author from same seed", func(t *testing.T) {
		t.Parallel()
		s := newSeededStore(t)
		err := s.Seed(ctx,
			[]domain.Author{{ID: 10, Name: "New"}},
			[]domain.Book{{ID: 20, Name: "Found", AuthorID: 10}})
		require.NoError(t, err)

		book, err := s.InsertBook(ctx, &domain.Book{Name: "Next", AuthorID: 10})
		require.NoError(t, err)
		assert.Equal(t, 21, book.ID)
	})
}

func TestStore_ConcurrentInsertBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	const writers = 50
	ids := make([]int, writers)
	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := s.InsertBook(ctx, &domain.Book{Name: "Concurrent", AuthorID: 2})
			if assert.NoError(t, err) {
				ids[i] = b.ID
			}
		}(i)
	}

	// Readers run alongside writers and must always see a consistent snapshot.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				books, err := s.ListBooks(ctx)
				assert.NoError(t, err)
				for k, b := range books {
					assert.Equal(t, k+1, b.ID, "ids follow insertion order")
				}
			}
		}()
	}
	wg.Wait()

	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, len(seedBooks)+i+1, id, "ids are distinct and gapless")
	}

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, len(seedBooks)+writers)

	tolkien, err := s.ListBooksByAuthor(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, tolkien, 3+writers)
}

func TestStore_ConcurrentAuthorAndBookWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSeededStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a, err := s.InsertAuthor(ctx, &domain.Author{Name: "Parallel"})
			if assert.NoError(t, err) {
				_, err = s.InsertBook(ctx, &domain.Book{Name: "Debut", AuthorID: a.ID})
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			books, _ := s.ListBooks(ctx)
			for _, b := range books {
				_, err := s.GetAuthor(ctx, b.AuthorID)
				assert.NoError(t, err, "every visible book has a visible author")
			}
		}()
	}
	wg.Wait()

	authors, _ := s.ListAuthors(ctx)
	books, _ := s.ListBooks(ctx)
	assert.Len(t, authors, 23)
	assert.Len(t, books, 28)
}
