package domain

// Author is a writer of zero or more books. The relation to books is a
// back-reference: an Author never holds book ids itself.
type Author struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// NewAuthor creates an unsaved Author with the given name. The ID is assigned
// by the store on insert.
// Returns an error if validation fails.
func NewAuthor(name string) (*Author, error) {
	author := &Author{Name: name}

	if err := author.ValidateFields(); err != nil {
		return nil, err
	}

	return author, nil
}

// ValidateFields checks caller-supplied fields, ignoring the ID.
func (a *Author) ValidateFields() error {
	if isBlank(a.Name) {
		return NewValidationError("name", "cannot be blank", ErrBlankName)
	}
	return nil
}

// Validate checks a stored Author, including its ID.
func (a *Author) Validate() error {
	if a.ID <= 0 {
		return NewValidationError("id", "must be positive", ErrInvalidID)
	}
	return a.ValidateFields()
}

// EntityKind implements Entity.
func (a *Author) EntityKind() EntityKind { return KindAuthor }

// EntityID implements Entity.
func (a *Author) EntityID() int { return a.ID }
