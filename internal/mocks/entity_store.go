package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/store"
)

// MockEntityStore implements store.EntityStore for testing.
// Each method calls its function field when set, otherwise returns the
// matching default value together with Err.
type MockEntityStore struct {
	// Custom behavior functions
	GetAuthorFn    func(ctx context.Context, id int) (*domain.Author, error)
	ListAuthorsFn  func(ctx context.Context) ([]*domain.Author, error)
	InsertAuthorFn func(ctx context.Context, author *domain.Author) (*domain.Author, error)
	GetBookFn      func(ctx context.Context, id int) (*domain.Book, error)
	ListBooksFn    func(ctx context.Context) ([]*domain.Book, error)
	InsertBookFn   func(ctx context.Context, book *domain.Book) (*domain.Book, error)

	// Default response values
	Author  *domain.Author
	Authors []*domain.Author
	Book    *domain.Book
	Books   []*domain.Book
	Err     error

	mu    sync.Mutex
	calls map[string]int
}

// Ensure MockEntityStore implements store.EntityStore
var _ store.EntityStore = (*MockEntityStore)(nil)

func (m *MockEntityStore) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method has been invoked.
func (m *MockEntityStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// GetAuthor implements store.AuthorStore
func (m *MockEntityStore) GetAuthor(ctx context.Context, id int) (*domain.Author, error) {
	m.record("GetAuthor")
	if m.GetAuthorFn != nil {
		return m.GetAuthorFn(ctx, id)
	}
	return m.Author, m.Err
}

// ListAuthors implements store.AuthorStore
func (m *MockEntityStore) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	m.record("ListAuthors")
	if m.ListAuthorsFn != nil {
		return m.ListAuthorsFn(ctx)
	}
	return m.Authors, m.Err
}

// InsertAuthor implements store.AuthorStore
func (m *MockEntityStore) InsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	m.record("InsertAuthor")
	if m.InsertAuthorFn != nil {
		return m.InsertAuthorFn(ctx, author)
	}
	return m.Author, m.Err
}

// GetBook implements store.BookStore
func (m *MockEntityStore) GetBook(ctx context.Context, id int) (*domain.Book, error) {
	m.record("GetBook")
	if m.GetBookFn != nil {
		return m.GetBookFn(ctx, id)
	}
	return m.Book, m.Err
}

// ListBooks implements store.BookStore
func (m *MockEntityStore) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	m.record("ListBooks")
	if m.ListBooksFn != nil {
		return m.ListBooksFn(ctx)
	}
	return m.Books, m.Err
}

// InsertBook implements store.BookStore
func (m *MockEntityStore) InsertBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	m.record("InsertBook")
	if m.InsertBookFn != nil {
		return m.InsertBookFn(ctx, book)
	}
	return m.Book, m.Err
}

// MockIndexedStore adds store.BookIndex to MockEntityStore.
type MockIndexedStore struct {
	MockEntityStore

	ListBooksByAuthorFn func(ctx context.Context, authorID int) ([]*domain.Book, error)
}

// Ensure MockIndexedStore implements store.BookIndex
var _ store.BookIndex = (*MockIndexedStore)(nil)

// ListBooksByAuthor implements store.BookIndex
func (m *MockIndexedStore) ListBooksByAuthor(ctx context.Context, authorID int) ([]*domain.Book, error) {
	m.record("ListBooksByAuthor")
	if m.ListBooksByAuthorFn != nil {
		return m.ListBooksByAuthorFn(ctx, authorID)
	}
	return m.Books, m.Err
}
