package resolve

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/phrazzld/shelf-api/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Session memoizes AuthorOf and BooksOf for one query execution. It is safe
// for concurrent use by the goroutines of that execution and must not outlive
// it: results are never invalidated.
type Session struct {
	r *Resolver

	authors *memo[*domain.Author]
	books   *memo[[]*domain.Book]
}

func newSession(r *Resolver) *Session {
	return &Session{
		r:       r,
		authors: newMemo[*domain.Author](),
		books:   newMemo[[]*domain.Book](),
	}
}

// AuthorOf is Resolver.AuthorOf, memoized by book.AuthorID. An integrity
// failure is reported against the book that triggered the first lookup, so
// it is recomputed per book.
func (s *Session) AuthorOf(ctx context.Context, book *domain.Book) (*domain.Author, error) {
	author, err := s.authors.do(ctx, book.AuthorID, func() (*domain.Author, error) {
		return s.r.AuthorOf(ctx, book)
	})
	var ie *domain.IntegrityError
	if errors.As(err, &ie) && ie.ID != book.ID {
		cp := *ie
		cp.ID = book.ID
		return nil, &cp
	}
	return author, err
}

// BooksOf is Resolver.BooksOf, memoized by author id. Callers must not modify
// the returned slice.
func (s *Session) BooksOf(ctx context.Context, author *domain.Author) ([]*domain.Book, error) {
	return s.books.do(ctx, author.ID, func() ([]*domain.Book, error) {
		return s.r.BooksOf(ctx, author)
	})
}

// memo remembers completed lookups by id. Concurrent lookups of the same id
// share one call through a singleflight.Group.
type memo[T any] struct {
	group singleflight.Group

	mu   sync.Mutex
	done map[int]result[T]
}

type result[T any] struct {
	val T
	err error
}

func newMemo[T any]() *memo[T] {
	return &memo[T]{done: make(map[int]result[T])}
}

func (m *memo[T]) get(key int) (result[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.done[key]
	return r, ok
}

// do runs fn once per key. A caller whose context ends while waiting returns
// ctx.Err(). Context errors are not memoized.
func (m *memo[T]) do(ctx context.Context, key int, fn func() (T, error)) (T, error) {
	if r, ok := m.get(key); ok {
		return r.val, r.err
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	ch := m.group.DoChan(strconv.Itoa(key), func() (any, error) {
		// The group forgets a key once its call returns, so a call that
		// finished in between is found here instead of being repeated.
		if r, ok := m.get(key); ok {
			return r.val, r.err
		}

		val, err := fn()
		if err == nil || ctx.Err() == nil {
			m.mu.Lock()
			m.done[key] = result[T]{val: val, err: err}
			m.mu.Unlock()
		}
		return val, err
	})

	select {
	case res := <-ch:
		val, _ := res.Val.(T)
		return val, res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
