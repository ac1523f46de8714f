package query

// OperationType distinguishes reads from writes.
type OperationType string

// Operation types
const (
	OperationQuery    OperationType = "query"
	OperationMutation OperationType = "mutation"
)

// Document is a parsed query text. It holds one or more operations.
type Document struct {
	Operations []*Operation
}

// Operation is a single query or mutation with its root selection set.
type Operation struct {
	Type       OperationType
	Name       string
	Variables  []*VariableDefinition
	Selections []*Field
	Pos        Position
}

// VariableDefinition declares a $variable and its type, e.g. `$id: Int!`.
type VariableDefinition struct {
	Name    string
	Type    TypeRef
	Default *Value
	Pos     Position
}

// TypeRef is a named input type, optionally non-null. List input types are
// not part of the language.
type TypeRef struct {
	Name    string
	NonNull bool
}

func (t TypeRef) String() string {
	if t.NonNull {
		return t.Name + "!"
	}
	return t.Name
}

// Field is one entry of a selection set.
type Field struct {
	Alias      string
	Name       string
	Arguments  []*Argument
	Selections []*Field
	Pos        Position
}

// ResponseKey is the key the field's value is written under.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Argument is a name: value pair on a field.
type Argument struct {
	Name  string
	Value *Value
	Pos   Position
}

// ValueKind identifies the literal form of a Value.
type ValueKind int

// Value kinds
const (
	ValueNull ValueKind = iota
	ValueInt
	ValueFloat
	ValueString
	ValueBoolean
	ValueEnum
	ValueVariable
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueInt:
		return "Int"
	case ValueFloat:
		return "Float"
	case ValueString:
		return "String"
	case ValueBoolean:
		return "Boolean"
	case ValueEnum:
		return "enum"
	case ValueVariable:
		return "variable"
	default:
		return "value"
	}
}

// Value is an argument or default value literal. Raw holds the source text
// for numbers and enums, the decoded text for strings and the name (without
// $) for variables.
type Value struct {
	Kind    ValueKind
	Raw     string
	Boolean bool
	Pos     Position
}
