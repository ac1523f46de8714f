package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/events"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/store"
)

// CatalogueService creates authors and books.
type CatalogueService interface {
	// AddAuthor stores a new author and returns it with its assigned id.
	AddAuthor(ctx context.Context, name string) (*domain.Author, error)

	// AddBook stores a new book by an existing author and returns it with its
	// assigned id. An unknown authorID is a *domain.ValidationError.
	AddBook(ctx context.Context, name string, authorID int) (*domain.Book, error)
}

// AddAuthorInput is the validated input of AddAuthor.
type AddAuthorInput struct {
	Name string `json:"name" validate:"required,notblank"`
}

// AddBookInput is the validated input of AddBook.
type AddBookInput struct {
	Name     string `json:"name"     validate:"required,notblank"`
	AuthorID int    `json:"authorId" validate:"gt=0"`
}

// catalogueServiceImpl implements the CatalogueService interface
type catalogueServiceImpl struct {
	store        store.EntityStore
	eventEmitter events.EventEmitter
	validate     *validator.Validate
	logger       *slog.Logger

	// Writer locks per entity type. Lock order is booksMu before authorsMu.
	authorsMu sync.RWMutex
	booksMu   sync.Mutex
}

// Ensure catalogueServiceImpl implements CatalogueService
var _ CatalogueService = (*catalogueServiceImpl)(nil)

// NewCatalogueService creates a new CatalogueService.
// It returns an error if the store is nil. eventEmitter may be nil.
func NewCatalogueService(
	s store.EntityStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (CatalogueService, error) {
	if s == nil {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   "store cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return nil, NewServiceError("create_service", "failed to register validator", err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &catalogueServiceImpl{
		store:        s,
		eventEmitter: eventEmitter,
		validate:     validate,
		logger:       logger.With(slog.String("component", "catalogue_service")),
	}, nil
}

// AddAuthor implements CatalogueService.
func (s *catalogueServiceImpl) AddAuthor(ctx context.Context, name string) (*domain.Author, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validateInput(AddAuthorInput{Name: name}); err != nil {
		log.Warn("invalid author input", slog.String("error", err.Error()))
		return nil, err
	}

	author, err := domain.NewAuthor(name)
	if err != nil {
		return nil, err
	}

	s.authorsMu.Lock()
	author, err = s.store.InsertAuthor(ctx, author)
	s.authorsMu.Unlock()
	if err != nil {
		return nil, NewServiceError("add_author", "failed to insert author", err)
	}

	log.Info("author added", slog.Int("author_id", author.ID))
	s.emit(ctx, events.NewEntityCreated(author, author.Name))
	return author, nil
}

// AddBook implements CatalogueService. The author collection is read-locked
// from the existence check until the book has been appended.
func (s *catalogueServiceImpl) AddBook(ctx context.Context, name string, authorID int) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.validateInput(AddBookInput{Name: name, AuthorID: authorID}); err != nil {
		log.Warn("invalid book input", slog.String("error", err.Error()))
		return nil, err
	}

	book, err := s.insertBook(ctx, name, authorID)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("book rejected",
				slog.Int("author_id", authorID),
				slog.String("error", err.Error()))
		}
		return nil, NewServiceError("add_book", "failed to insert book", err)
	}

	log.Info("book added",
		slog.Int("book_id", book.ID),
		slog.Int("author_id", book.AuthorID))
	s.emit(ctx, events.NewEntityCreated(book, book.Name))
	return book, nil
}

func (s *catalogueServiceImpl) insertBook(ctx context.Context, name string, authorID int) (*domain.Book, error) {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	s.authorsMu.RLock()
	defer s.authorsMu.RUnlock()

	if _, err := s.store.GetAuthor(ctx, authorID); err != nil {
		if store.IsNotFoundError(err) {
			return nil, domain.NewValidationError("authorId",
				fmt.Sprintf("author %d does not exist", authorID), domain.ErrUnknownAuthor)
		}
		return nil, err
	}

	book, err := domain.NewBook(name, authorID)
	if err != nil {
		return nil, err
	}
	return s.store.InsertBook(ctx, book)
}

// validateInput runs struct validation and converts the first failure into a
// *domain.ValidationError.
func (s *catalogueServiceImpl) validateInput(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("", err.Error(), nil)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return domain.NewValidationError(fe.Field(), "name cannot be blank", domain.ErrBlankName)
	case "gt":
		return domain.NewValidationError(fe.Field(),
			fmt.Sprintf("%s must be positive", fe.Field()), domain.ErrInvalidID)
	default:
		return domain.NewValidationError(fe.Field(),
			fmt.Sprintf("failed on the '%s' rule", fe.Tag()), nil)
	}
}

func (s *catalogueServiceImpl) emit(ctx context.Context, event *events.EntityCreated) {
	if s.eventEmitter == nil {
		return
	}
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to emit entity created event",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}
