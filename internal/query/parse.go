package query

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Position is a 1-based line and column in the query text.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func positionOf(p *ast.Position) Position {
	if p == nil {
		return Position{Line: 1, Column: 1}
	}
	return Position{Line: p.Line, Column: p.Column}
}

// Parse parses query text into a Document. The returned error is a
// *SyntaxError.
//
// Parsing is done by gqlparser; the result is then narrowed to the supported
// subset. Fragments, directives, subscriptions, list and object values and
// list variable types are rejected.
func Parse(src string) (*Document, error) {
	qd, err := parser.ParseQuery(&ast.Source{Name: "query", Input: src})
	if err != nil {
		return nil, fromParseError(err)
	}

	if len(qd.Fragments) > 0 {
		return nil, syntaxErrorf(positionOf(qd.Fragments[0].Position), "fragments are not supported")
	}
	if len(qd.Operations) == 0 {
		return nil, syntaxErrorf(positionOf(qd.Position), "document contains no operations")
	}

	doc := &Document{Operations: make([]*Operation, 0, len(qd.Operations))}
	for _, def := range qd.Operations {
		op, err := convertOperation(def)
		if err != nil {
			return nil, err
		}
		doc.Operations = append(doc.Operations, op)
	}
	return doc, nil
}

func fromParseError(err error) error {
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) {
		return syntaxErrorf(Position{Line: 1, Column: 1}, "%s", err.Error())
	}

	pos := Position{Line: 1, Column: 1}
	if len(gqlErr.Locations) > 0 {
		pos = Position{Line: gqlErr.Locations[0].Line, Column: gqlErr.Locations[0].Column}
	}
	return syntaxErrorf(pos, "%s", gqlErr.Message)
}

func convertOperation(def *ast.OperationDefinition) (*Operation, error) {
	op := &Operation{Name: def.Name, Pos: positionOf(def.Position)}

	switch def.Operation {
	case ast.Query:
		op.Type = OperationQuery
	case ast.Mutation:
		op.Type = OperationMutation
	default:
		return nil, syntaxErrorf(op.Pos, "%ss are not supported", def.Operation)
	}

	if err := rejectDirectives(def.Directives); err != nil {
		return nil, err
	}

	for _, v := range def.VariableDefinitions {
		vd, err := convertVariable(v)
		if err != nil {
			return nil, err
		}
		op.Variables = append(op.Variables, vd)
	}

	sels, err := convertSelections(def.SelectionSet)
	if err != nil {
		return nil, err
	}
	op.Selections = sels
	return op, nil
}

func convertVariable(v *ast.VariableDefinition) (*VariableDefinition, error) {
	if err := rejectDirectives(v.Directives); err != nil {
		return nil, err
	}
	if v.Type == nil || v.Type.Elem != nil {
		var pos *ast.Position
		if v.Type != nil {
			pos = v.Type.Position
		}
		return nil, syntaxErrorf(positionOf(pos), "list variable types are not supported")
	}

	vd := &VariableDefinition{
		Name: v.Variable,
		Type: TypeRef{Name: v.Type.NamedType, NonNull: v.Type.NonNull},
		Pos:  positionOf(v.Position),
	}
	if v.DefaultValue != nil {
		def, err := convertValue(v.DefaultValue)
		if err != nil {
			return nil, err
		}
		vd.Default = def
	}
	return vd, nil
}

func convertSelections(set ast.SelectionSet) ([]*Field, error) {
	fields := make([]*Field, 0, len(set))
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			f, err := convertField(s)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		case *ast.FragmentSpread:
			return nil, syntaxErrorf(positionOf(s.Position), "fragments are not supported")
		case *ast.InlineFragment:
			return nil, syntaxErrorf(positionOf(s.Position), "fragments are not supported")
		default:
			return nil, syntaxErrorf(Position{Line: 1, Column: 1}, "unsupported selection %T", sel)
		}
	}
	return fields, nil
}

func convertField(f *ast.Field) (*Field, error) {
	if err := rejectDirectives(f.Directives); err != nil {
		return nil, err
	}

	out := &Field{Name: f.Name, Pos: positionOf(f.Position)}
	if f.Alias != "" && f.Alias != f.Name {
		out.Alias = f.Alias
	}

	for _, a := range f.Arguments {
		v, err := convertValue(a.Value)
		if err != nil {
			return nil, err
		}
		out.Arguments = append(out.Arguments, &Argument{Name: a.Name, Value: v, Pos: positionOf(a.Position)})
	}

	if len(f.SelectionSet) > 0 {
		sels, err := convertSelections(f.SelectionSet)
		if err != nil {
			return nil, err
		}
		out.Selections = sels
	}
	return out, nil
}

func convertValue(v *ast.Value) (*Value, error) {
	out := &Value{Raw: v.Raw, Pos: positionOf(v.Position)}

	switch v.Kind {
	case ast.Variable:
		out.Kind = ValueVariable
	case ast.IntValue:
		out.Kind = ValueInt
	case ast.FloatValue:
		out.Kind = ValueFloat
	case ast.StringValue, ast.BlockValue:
		out.Kind = ValueString
	case ast.BooleanValue:
		out.Kind = ValueBoolean
		out.Boolean = v.Raw == "true"
	case ast.NullValue:
		out.Kind = ValueNull
	case ast.EnumValue:
		out.Kind = ValueEnum
	default:
		return nil, syntaxErrorf(out.Pos, "list and object values are not supported")
	}
	return out, nil
}

func rejectDirectives(dirs ast.DirectiveList) error {
	if len(dirs) == 0 {
		return nil
	}
	return syntaxErrorf(positionOf(dirs[0].Position), "directives are not supported")
}
