package query

import (
	"errors"
	"testing"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Shorthand(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`{ book(id: 1) { name author { name } } }`)
	require.NoError(t, err)
	require.Len(t, doc.Operations, 1)

	op := doc.Operations[0]
	assert.Equal(t, OperationQuery, op.Type)
	assert.Empty(t, op.Name)
	require.Len(t, op.Selections, 1)

	book := op.Selections[0]
	assert.Equal(t, "book", book.Name)
	require.Len(t, book.Arguments, 1)
	assert.Equal(t, "id", book.Arguments[0].Name)
	assert.Equal(t, &Value{Kind: ValueInt, Raw: "1", Pos: Position{Line: 1, Column: 12}}, book.Arguments[0].Value)

	require.Len(t, book.Selections, 2)
	assert.Equal(t, "name", book.Selections[0].Name)
	assert.Equal(t, "author", book.Selections[1].Name)
	assert.Equal(t, "name", book.Selections[1].Selections[0].Name)
}

func TestParse_FullOperation(t *testing.T) {
	t.Parallel()

	src := `
# adds a book
mutation AddOne($name: String!, $author: Int = 1) {
  created: addBook(name: $name, authorId: $author) {
    id, name
    __typename
  }
}`
	doc, err := Parse(src)
	require.NoError(t, err)

	op := doc.Operations[0]
	assert.Equal(t, OperationMutation, op.Type)
	assert.Equal(t, "AddOne", op.Name)
	assert.Equal(t, Position{Line: 3, Column: 1}, op.Pos)

	require.Len(t, op.Variables, 2)
	assert.Equal(t, "name", op.Variables[0].Name)
	assert.Equal(t, TypeRef{Name: "String", NonNull: true}, op.Variables[0].Type)
	assert.Nil(t, op.Variables[0].Default)
	assert.Equal(t, TypeRef{Name: "Int"}, op.Variables[1].Type)
	require.NotNil(t, op.Variables[1].Default)
	assert.Equal(t, "1", op.Variables[1].Default.Raw)

	f := op.Selections[0]
	assert.Equal(t, "created", f.Alias)
	assert.Equal(t, "addBook", f.Name)
	assert.Equal(t, "created", f.ResponseKey())
	require.Len(t, f.Arguments, 2)
	assert.Equal(t, ValueVariable, f.Arguments[0].Value.Kind)
	assert.Equal(t, "name", f.Arguments[0].Value.Raw)
	assert.Len(t, f.Selections, 3)
}

func TestParse_Literals(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`{ f(a: -12, b: "x\"yé\n", c: true, d: null, e: 1.5e3, g: RED) }`)
	require.NoError(t, err)

	args := doc.Operations[0].Selections[0].Arguments
	require.Len(t, args, 6)
	assert.Equal(t, ValueInt, args[0].Value.Kind)
	assert.Equal(t, "-12", args[0].Value.Raw)
	assert.Equal(t, ValueString, args[1].Value.Kind)
	assert.Equal(t, "x\"yé\n", args[1].Value.Raw)
	assert.Equal(t, ValueBoolean, args[2].Value.Kind)
	assert.True(t, args[2].Value.Boolean)
	assert.Equal(t, ValueNull, args[3].Value.Kind)
	assert.Equal(t, ValueFloat, args[4].Value.Kind)
	assert.Equal(t, ValueEnum, args[5].Value.Kind)
}

func TestParse_MultipleOperations(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`query A { books { id } } query B { authors { id } }`)
	require.NoError(t, err)
	require.Len(t, doc.Operations, 2)
	assert.Equal(t, "A", doc.Operations[0].Name)
	assert.Equal(t, "B", doc.Operations[1].Name)
}

func TestParse_SyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"empty document", ""},
		{"only comment", "# nothing"},
		{"unclosed selection", "{ books { id }"},
		{"empty selection", "{ }"},
		{"unterminated string", `{ book(name: "abc) { id } }`},
		{"bad escape", `{ book(name: "\q") { id } }`},
		{"leading zero", "{ book(id: 01) { id } }"},
		{"missing value", "{ book(id: ) { id } }"},
		{"empty arguments", "{ book() { id } }"},
		{"stray character", "{ book ? }"},
		{"variable in default", "query ($a: Int = $b) { book(id: $a) { id } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse(tt.src)
			assert.Nil(t, doc)
			require.Error(t, err)

			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			assert.Equal(t, 1, se.Pos.Line, se.Message)
			assert.Positive(t, se.Pos.Column, se.Message)
			assert.NotEmpty(t, se.Message)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestParse_UnsupportedConstructs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		src         string
		wantMessage string
	}{
		{"fragment spread", "{ books { ...F } }", "fragments are not supported"},
		{"inline fragment", "{ books { ... on Book { id } } }", "fragments are not supported"},
		{"fragment definition", "{ books { id } } fragment F on Book { id }", "fragments are not supported"},
		{"subscription", "subscription { books { id } }", "subscriptions are not supported"},
		{"field directive", "{ books @include(if: true) { id } }", "directives are not supported"},
		{"list value", "{ book(id: [1]) { id } }", "list and object values are not supported"},
		{"object value", "{ book(id: {a: 1}) { id } }", "list and object values are not supported"},
		{"list variable type", "query ($a: [Int]) { books { id } }", "list variable types are not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse(tt.src)
			assert.Nil(t, doc)

			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			assert.Equal(t, tt.wantMessage, se.Message)
			assert.Equal(t, 1, se.Pos.Line)
			assert.Positive(t, se.Pos.Column)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestParse_BlockString(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`mutation { addAuthor(name: """Ursula""") { id } }`)
	require.NoError(t, err)

	v := doc.Operations[0].Selections[0].Arguments[0].Value
	assert.Equal(t, ValueString, v.Kind)
	assert.Equal(t, "Ursula", v.Raw)
}
