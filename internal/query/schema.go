package query

import (
	"context"
	"errors"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/store"
	"github.com/samber/lo"
)

// Input and output scalar type names
const (
	TypeInt     = "Int"
	TypeString  = "String"
	TypeBoolean = "Boolean"
)

// typenameField is answered on every object type without a resolver.
const typenameField = "__typename"

// resolverFunc produces the raw value of a field. parent is nil for root
// fields, *domain.Book or *domain.Author otherwise. Object lists are returned
// as []any, a missing object as untyped nil.
type resolverFunc func(ctx context.Context, e *execution, parent any, args map[string]any) (any, error)

// ArgumentDef describes an argument accepted by a field.
type ArgumentDef struct {
	Name string
	Type TypeRef
}

// FieldDef describes a field of an object type.
type FieldDef struct {
	Name        string
	Description string
	// Type is the named result type: a scalar or an object type name.
	Type    string
	List    bool
	NonNull bool
	Args    []ArgumentDef

	resolve resolverFunc
}

func (f *FieldDef) arg(name string) (ArgumentDef, bool) {
	return lo.Find(f.Args, func(a ArgumentDef) bool { return a.Name == name })
}

// ObjectType describes an output object and its fields in declaration order.
type ObjectType struct {
	Name        string
	Description string
	Fields      []*FieldDef

	byName map[string]*FieldDef
}

// Field returns the named field definition.
func (o *ObjectType) Field(name string) (*FieldDef, bool) {
	f, ok := o.byName[name]
	return f, ok
}

func newObjectType(name, description string, fields ...*FieldDef) *ObjectType {
	return &ObjectType{
		Name:        name,
		Description: description,
		Fields:      fields,
		byName:      lo.KeyBy(fields, func(f *FieldDef) string { return f.Name }),
	}
}

// Schema is the fixed set of object types served by the executor.
type Schema struct {
	Query    *ObjectType
	Mutation *ObjectType
	types    map[string]*ObjectType
}

// Type returns the object type with the given name.
func (s *Schema) Type(name string) (*ObjectType, bool) {
	t, ok := s.types[name]
	return t, ok
}

func (s *Schema) isScalar(name string) bool {
	return name == TypeInt || name == TypeString || name == TypeBoolean
}

// Catalogue is the author/book schema:
//
//	type Book     { id: Int!, name: String!, authorId: Int!, author: Author }
//	type Author   { id: Int!, name: String!, books: [Book] }
//	type Query    { book(id: Int): Book, books: [Book], author(id: Int): Author, authors: [Author] }
//	type Mutation { addBook(name: String!, authorId: Int!): Book, addAuthor(name: String!): Author }
var Catalogue = newCatalogue()

func newCatalogue() *Schema {
	book := newObjectType(string(domain.KindBook), "A book written by an author",
		&FieldDef{Name: "id", Type: TypeInt, NonNull: true, resolve: bookAttr(func(b *domain.Book) any { return b.ID })},
		&FieldDef{Name: "name", Type: TypeString, NonNull: true, resolve: bookAttr(func(b *domain.Book) any { return b.Name })},
		&FieldDef{Name: "authorId", Type: TypeInt, NonNull: true, resolve: bookAttr(func(b *domain.Book) any { return b.AuthorID })},
		&FieldDef{
			Name:        "author",
			Description: "The author of the book",
			Type:        string(domain.KindAuthor),
			resolve: func(ctx context.Context, e *execution, parent any, _ map[string]any) (any, error) {
				return nilIfAbsent(e.session.AuthorOf(ctx, parent.(*domain.Book)))
			},
		},
	)

	author := newObjectType(string(domain.KindAuthor), "An author of books",
		&FieldDef{Name: "id", Type: TypeInt, NonNull: true, resolve: authorAttr(func(a *domain.Author) any { return a.ID })},
		&FieldDef{Name: "name", Type: TypeString, NonNull: true, resolve: authorAttr(func(a *domain.Author) any { return a.Name })},
		&FieldDef{
			Name:        "books",
			Description: "Books written by the author, in insertion order",
			Type:        string(domain.KindBook),
			List:        true,
			resolve: func(ctx context.Context, e *execution, parent any, _ map[string]any) (any, error) {
				books, err := e.session.BooksOf(ctx, parent.(*domain.Author))
				if err != nil {
					return nil, err
				}
				return lo.ToAnySlice(books), nil
			},
		},
	)

	idArg := ArgumentDef{Name: "id", Type: TypeRef{Name: TypeInt}}
	nameArg := ArgumentDef{Name: "name", Type: TypeRef{Name: TypeString, NonNull: true}}

	queryType := newObjectType("Query", "Root query",
		&FieldDef{
			Name:        "book",
			Description: "A single book",
			Type:        book.Name,
			Args:        []ArgumentDef{idArg},
			resolve: func(ctx context.Context, e *execution, _ any, args map[string]any) (any, error) {
				id, ok := args["id"].(int)
				if !ok {
					return nil, nil
				}
				return nilIfAbsent(e.ex.store.GetBook(ctx, id))
			},
		},
		&FieldDef{
			Name:        "books",
			Description: "List of books",
			Type:        book.Name,
			List:        true,
			resolve: func(ctx context.Context, e *execution, _ any, _ map[string]any) (any, error) {
				books, err := e.ex.store.ListBooks(ctx)
				if err != nil {
					return nil, err
				}
				return lo.ToAnySlice(books), nil
			},
		},
		&FieldDef{
			Name:        "author",
			Description: "A single author",
			Type:        author.Name,
			Args:        []ArgumentDef{idArg},
			resolve: func(ctx context.Context, e *execution, _ any, args map[string]any) (any, error) {
				id, ok := args["id"].(int)
				if !ok {
					return nil, nil
				}
				return nilIfAbsent(e.ex.store.GetAuthor(ctx, id))
			},
		},
		&FieldDef{
			Name:        "authors",
			Description: "List of authors",
			Type:        author.Name,
			List:        true,
			resolve: func(ctx context.Context, e *execution, _ any, _ map[string]any) (any, error) {
				authors, err := e.ex.store.ListAuthors(ctx)
				if err != nil {
					return nil, err
				}
				return lo.ToAnySlice(authors), nil
			},
		},
	)

	mutationType := newObjectType("Mutation", "Root mutation",
		&FieldDef{
			Name:        "addBook",
			Description: "Add a book",
			Type:        book.Name,
			Args: []ArgumentDef{
				nameArg,
				{Name: "authorId", Type: TypeRef{Name: TypeInt, NonNull: true}},
			},
			resolve: func(ctx context.Context, e *execution, _ any, args map[string]any) (any, error) {
				return nilIfAbsent(e.ex.mutator.AddBook(ctx, args["name"].(string), args["authorId"].(int)))
			},
		},
		&FieldDef{
			Name:        "addAuthor",
			Description: "Add an author",
			Type:        author.Name,
			Args:        []ArgumentDef{nameArg},
			resolve: func(ctx context.Context, e *execution, _ any, args map[string]any) (any, error) {
				return nilIfAbsent(e.ex.mutator.AddAuthor(ctx, args["name"].(string)))
			},
		},
	)

	return &Schema{
		Query:    queryType,
		Mutation: mutationType,
		types: lo.KeyBy([]*ObjectType{book, author, queryType, mutationType},
			func(t *ObjectType) string { return t.Name }),
	}
}

func bookAttr(get func(*domain.Book) any) resolverFunc {
	return func(_ context.Context, _ *execution, parent any, _ map[string]any) (any, error) {
		return get(parent.(*domain.Book)), nil
	}
}

func authorAttr(get func(*domain.Author) any) resolverFunc {
	return func(_ context.Context, _ *execution, parent any, _ map[string]any) (any, error) {
		return get(parent.(*domain.Author)), nil
	}
}

// nilIfAbsent turns a typed nil pointer or a not-found error into untyped nil.
func nilIfAbsent[T any](v *T, err error) (any, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}
