package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL error codes
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Store implements store.EntityStore on a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	logger  *slog.Logger
}

// NewStore creates a Store on an open, migrated database.
// If logger is nil, a default logger will be used.
func NewStore(db *sql.DB, d Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:      db,
		dialect: d,
		sb:      sq.StatementBuilder.PlaceholderFormat(d.placeholders()),
		logger: logger.With(
			slog.String("component", "sql_store"),
			slog.String("dialect", string(d)),
		),
	}
}

// Ensure Store implements the store interfaces
var (
	_ store.EntityStore = (*Store)(nil)
	_ store.BookIndex   = (*Store)(nil)
	_ store.Seeder      = (*Store)(nil)
)

// GetAuthor implements store.AuthorStore.
func (s *Store) GetAuthor(ctx context.Context, id int) (*domain.Author, error) {
	query, args, err := s.sb.Select("id", "name").From("authors").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, store.NewStoreError(domain.KindAuthor, "get", "failed to build query", err)
	}

	var a domain.Author
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAuthorNotFound
	}
	if err != nil {
		s.log(ctx).Error("failed to get author",
			slog.Int("author_id", id),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError(domain.KindAuthor, "get", "query failed", err)
	}
	return &a, nil
}

// ListAuthors implements store.AuthorStore.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	query, args, err := s.sb.Select("id", "name").From("authors").OrderBy("seq").ToSql()
	if err != nil {
		return nil, store.NewStoreError(domain.KindAuthor, "list", "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log(ctx).Error("failed to list authors", slog.String("error", err.Error()))
		return nil, store.NewStoreError(domain.KindAuthor, "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	authors := []*domain.Author{}
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, store.NewStoreError(domain.KindAuthor, "list", "scan failed", err)
		}
		authors = append(authors, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError(domain.KindAuthor, "list", "row iteration failed", err)
	}
	return authors, nil
}

// InsertAuthor implements store.AuthorStore.
func (s *Store) InsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	log := s.log(ctx)

	if err := author.ValidateFields(); err != nil {
		log.Warn("author validation failed during insert", slog.String("error", err.Error()))
		return nil, err
	}

	var stored domain.Author
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.lockTable(ctx, tx, "authors"); err != nil {
			return err
		}

		id, seq, err := s.nextKeys(ctx, tx, "authors")
		if err != nil {
			return err
		}

		query, args, err := s.sb.Insert("authors").
			Columns("id", "seq", "name").
			Values(id, seq, author.Name).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		stored = domain.Author{ID: id, Name: author.Name}
		return nil
	})
	if err != nil {
		log.Error("failed to insert author", slog.String("error", err.Error()))
		return nil, s.mapWriteError(domain.KindAuthor, "insert", err)
	}

	log.Info("author inserted", slog.Int("author_id", stored.ID))
	return &stored, nil
}

// GetBook implements store.BookStore.
func (s *Store) GetBook(ctx context.Context, id int) (*domain.Book, error) {
	query, args, err := s.sb.Select("id", "name", "author_id").
		From("books").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, store.NewStoreError(domain.KindBook, "get", "failed to build query", err)
	}

	var b domain.Book
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.Name, &b.AuthorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		s.log(ctx).Error("failed to get book",
			slog.Int("book_id", id),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError(domain.KindBook, "get", "query failed", err)
	}
	return &b, nil
}

// ListBooks implements store.BookStore.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.listBooks(ctx, s.sb.Select("id", "name", "author_id").From("books").OrderBy("seq"))
}

// ListBooksByAuthor implements store.BookIndex.
func (s *Store) ListBooksByAuthor(ctx context.Context, authorID int) ([]*domain.Book, error) {
	return s.listBooks(ctx, s.sb.Select("id", "name", "author_id").
		From("books").
		Where(sq.Eq{"author_id": authorID}).
		OrderBy("seq"))
}

func (s *Store) listBooks(ctx context.Context, b sq.SelectBuilder) ([]*domain.Book, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, store.NewStoreError(domain.KindBook, "list", "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log(ctx).Error("failed to list books", slog.String("error", err.Error()))
		return nil, store.NewStoreError(domain.KindBook, "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	books := []*domain.Book{}
	for rows.Next() {
		var bk domain.Book
		if err := rows.Scan(&bk.ID, &bk.Name, &bk.AuthorID); err != nil {
			return nil, store.NewStoreError(domain.KindBook, "list", "scan failed", err)
		}
		books = append(books, &bk)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError(domain.KindBook, "list", "row iteration failed", err)
	}
	return books, nil
}

// InsertBook implements store.BookStore. The referenced author row is
// share-locked on PostgreSQL until the transaction commits.
func (s *Store) InsertBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	log := s.log(ctx)

	if err := book.ValidateFields(); err != nil {
		log.Warn("book validation failed during insert", slog.String("error", err.Error()))
		return nil, err
	}

	var stored domain.Book
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.lockTable(ctx, tx, "books"); err != nil {
			return err
		}

		exists, err := s.authorExists(ctx, tx, book.AuthorID)
		if err != nil {
			return err
		}
		if !exists {
			return unknownAuthor(book.AuthorID)
		}

		id, seq, err := s.nextKeys(ctx, tx, "books")
		if err != nil {
			return err
		}

		query, args, err := s.sb.Insert("books").
			Columns("id", "seq", "name", "author_id").
			Values(id, seq, book.Name, book.AuthorID).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		stored = domain.Book{ID: id, Name: book.Name, AuthorID: book.AuthorID}
		return nil
	})
	if err != nil {
		if domain.IsValidationError(err) {
			log.Warn("book references unknown author", slog.Int("author_id", book.AuthorID))
			return nil, err
		}
		log.Error("failed to insert book", slog.String("error", err.Error()))
		return nil, s.mapWriteError(domain.KindBook, "insert", err)
	}

	log.Info("book inserted",
		slog.Int("book_id", stored.ID),
		slog.Int("author_id", stored.AuthorID))
	return &stored, nil
}

// Seed implements store.Seeder. A database that already holds authors is left
// untouched, so seeding on every start is safe.
func (s *Store) Seed(ctx context.Context, authors []domain.Author, books []domain.Book) error {
	log := s.log(ctx)

	if err := validateSeed(authors, books); err != nil {
		return err
	}

	seeded := false
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.lockTable(ctx, tx, "authors"); err != nil {
			return err
		}
		if err := s.lockTable(ctx, tx, "books"); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM authors").Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if len(authors) > 0 {
			ins := s.sb.Insert("authors").Columns("id", "seq", "name")
			for i, a := range authors {
				ins = ins.Values(a.ID, i+1, a.Name)
			}
			query, args, err := ins.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		if len(books) > 0 {
			_, bookSeq, err := s.nextKeys(ctx, tx, "books")
			if err != nil {
				return err
			}
			ins := s.sb.Insert("books").Columns("id", "seq", "name", "author_id")
			for i, b := range books {
				ins = ins.Values(b.ID, bookSeq+i, b.Name, b.AuthorID)
			}
			query, args, err := ins.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		seeded = true
		return nil
	})
	if err != nil {
		log.Error("failed to seed store", slog.String("error", err.Error()))
		return s.mapWriteError(domain.KindAuthor, "seed", err)
	}

	if !seeded {
		log.Info("store already populated, skipping seed")
		return nil
	}
	log.Info("store seeded",
		slog.Int("authors", len(authors)),
		slog.Int("books", len(books)))
	return nil
}

// validateSeed checks seed records before any statement runs so that bad
// input surfaces as a domain error rather than a driver error.
func validateSeed(authors []domain.Author, books []domain.Book) error {
	authorIDs := make(map[int]bool, len(authors))
	for i := range authors {
		a := authors[i]
		if err := a.Validate(); err != nil {
			return fmt.Errorf("seed author %d: %w", i, err)
		}
		if authorIDs[a.ID] {
			return fmt.Errorf("seed author %d: %w: id %d", i, store.ErrDuplicate, a.ID)
		}
		authorIDs[a.ID] = true
	}

	bookIDs := make(map[int]bool, len(books))
	for i := range books {
		b := books[i]
		if err := b.Validate(); err != nil {
			return fmt.Errorf("seed book %d: %w", i, err)
		}
		if bookIDs[b.ID] {
			return fmt.Errorf("seed book %d: %w: id %d", i, store.ErrDuplicate, b.ID)
		}
		if !authorIDs[b.AuthorID] {
			return fmt.Errorf("seed book %d: %w", i, unknownAuthor(b.AuthorID))
		}
		bookIDs[b.ID] = true
	}
	return nil
}

// lockTable serializes writers on PostgreSQL so MAX+1 id assignment cannot
// race. SQLite already serializes through its single connection.
func (s *Store) lockTable(ctx context.Context, q store.DBTX, table string) error {
	if s.dialect != DialectPostgres {
		return nil
	}
	_, err := q.ExecContext(ctx, "LOCK TABLE "+table+" IN SHARE ROW EXCLUSIVE MODE")
	return err
}

// nextKeys returns the next id and seq for table.
func (s *Store) nextKeys(ctx context.Context, q store.DBTX, table string) (int, int, error) {
	query, args, err := s.sb.
		Select("COALESCE(MAX(id), 0) + 1", "COALESCE(MAX(seq), 0) + 1").
		From(table).
		ToSql()
	if err != nil {
		return 0, 0, err
	}

	var id, seq int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id, &seq); err != nil {
		return 0, 0, err
	}
	return id, seq, nil
}

func (s *Store) authorExists(ctx context.Context, q store.DBTX, id int) (bool, error) {
	b := s.sb.Select("1").From("authors").Where(sq.Eq{"id": id})
	if s.dialect == DialectPostgres {
		b = b.Suffix("FOR SHARE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mapWriteError converts driver constraint failures into domain and store
// errors. Anything else is wrapped in a StoreError.
func (s *Store) mapWriteError(kind domain.EntityKind, op string, err error) error {
	if domain.IsValidationError(err) || errors.Is(err, store.ErrDuplicate) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return domain.NewValidationError("authorId", "referenced author does not exist", domain.ErrUnknownAuthor)
		case pgUniqueViolation:
			return store.NewStoreError(kind, op, "duplicate id", store.ErrDuplicate)
		}
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return domain.NewValidationError("authorId", "referenced author does not exist", domain.ErrUnknownAuthor)
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return store.NewStoreError(kind, op, "duplicate id", store.ErrDuplicate)
		}
	}

	return store.NewStoreError(kind, op, "write failed", err)
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

func unknownAuthor(id int) error {
	return domain.NewValidationError("authorId",
		fmt.Sprintf("author %d does not exist", id), domain.ErrUnknownAuthor)
}
