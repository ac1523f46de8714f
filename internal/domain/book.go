package domain

// Book is a single title written by exactly one Author. AuthorID is fixed at
// creation.
type Book struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	AuthorID int    `json:"authorId" yaml:"authorId"`
}

// NewBook creates an unsaved Book. Whether authorID refers to an existing
// author is checked by the store, not here.
// Returns an error if validation fails.
func NewBook(name string, authorID int) (*Book, error) {
	book := &Book{
		Name:     name,
		AuthorID: authorID,
	}

	if err := book.ValidateFields(); err != nil {
		return nil, err
	}

	return book, nil
}

// ValidateFields checks caller-supplied fields, ignoring the ID.
func (b *Book) ValidateFields() error {
	if isBlank(b.Name) {
		return NewValidationError("name", "cannot be blank", ErrBlankName)
	}
	if b.AuthorID <= 0 {
		return NewValidationError("authorId", "must be positive", ErrInvalidID)
	}
	return nil
}

// Validate checks a stored Book, including its ID.
func (b *Book) Validate() error {
	if b.ID <= 0 {
		return NewValidationError("id", "must be positive", ErrInvalidID)
	}
	return b.ValidateFields()
}

// EntityKind implements Entity.
func (b *Book) EntityKind() EntityKind { return KindBook }

// EntityID implements Entity.
func (b *Book) EntityID() int { return b.ID }
