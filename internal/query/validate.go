package query

import (
	"errors"
	"fmt"

	"github.com/phrazzld/shelf-api/internal/domain"
)

// Limits bounds the size of an accepted selection tree. Zero means unlimited.
type Limits struct {
	MaxDepth  int
	MaxFields int
}

// plan is a validated operation with its arguments resolved.
type plan struct {
	op     *Operation
	root   *ObjectType
	args   map[*Field]map[string]any
	fields int
	depth  int
}

// selectOperation picks the operation to run from doc.
func selectOperation(doc *Document, name string) (*Operation, error) {
	names := make(map[string]bool, len(doc.Operations))
	for _, op := range doc.Operations {
		if op.Name == "" && len(doc.Operations) > 1 {
			return nil, invalidf(op.Pos, "this anonymous operation must be the only defined operation")
		}
		if op.Name != "" && names[op.Name] {
			return nil, invalidf(op.Pos, "there can be only one operation named %q", op.Name)
		}
		names[op.Name] = true
	}

	if name == "" {
		if len(doc.Operations) > 1 {
			return nil, invalidf(doc.Operations[0].Pos, "must provide operation name if query contains multiple operations")
		}
		return doc.Operations[0], nil
	}

	for _, op := range doc.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, invalidf(Position{Line: 1, Column: 1}, "unknown operation named %q", name)
}

// validate checks op against schema and limits and resolves every argument.
// Any failure rejects the whole request.
func validate(schema *Schema, op *Operation, vars map[string]any, limits Limits, mutationsEnabled bool) (*plan, error) {
	root := schema.Query
	if op.Type == OperationMutation {
		if !mutationsEnabled || schema.Mutation == nil {
			return nil, invalidf(op.Pos, "schema is not configured for mutations")
		}
		root = schema.Mutation
	}

	p := &plan{
		op:   op,
		root: root,
		args: make(map[*Field]map[string]any),
	}
	v := &validator{schema: schema, plan: p, vars: vars, limits: limits}
	if err := v.selections(root, op.Selections, 1); err != nil {
		return nil, err
	}
	return p, nil
}

type validator struct {
	schema *Schema
	plan   *plan
	vars   map[string]any
	limits Limits
}

func (v *validator) selections(parent *ObjectType, fields []*Field, depth int) error {
	if v.limits.MaxDepth > 0 && depth > v.limits.MaxDepth {
		return invalidf(fields[0].Pos, "query exceeds maximum depth of %d", v.limits.MaxDepth)
	}
	if depth > v.plan.depth {
		v.plan.depth = depth
	}

	keys := make(map[string]*Field, len(fields))
	for _, f := range fields {
		v.plan.fields++
		if v.limits.MaxFields > 0 && v.plan.fields > v.limits.MaxFields {
			return invalidf(f.Pos, "query exceeds maximum of %d selected fields", v.limits.MaxFields)
		}

		key := f.ResponseKey()
		if prev, dup := keys[key]; dup {
			return invalidf(f.Pos, "fields %q conflict: response key already used by field %q at %s",
				key, prev.Name, prev.Pos)
		}
		keys[key] = f

		if err := v.field(parent, f, depth); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) field(parent *ObjectType, f *Field, depth int) error {
	if f.Name == typenameField {
		if len(f.Arguments) > 0 {
			return invalidf(f.Arguments[0].Pos, "unknown argument %q on field \"%s.%s\"",
				f.Arguments[0].Name, parent.Name, f.Name)
		}
		if len(f.Selections) > 0 {
			return invalidf(f.Pos, "field %q must not have a selection since type \"String!\" has no subfields", f.Name)
		}
		return nil
	}

	def, ok := parent.Field(f.Name)
	if !ok {
		return invalidf(f.Pos, "cannot query field %q on type %q", f.Name, parent.Name)
	}

	args, err := v.arguments(parent, def, f)
	if err != nil {
		return err
	}
	v.plan.args[f] = args

	typeName := outputTypeName(def)
	if v.schema.isScalar(def.Type) {
		if len(f.Selections) > 0 {
			return invalidf(f.Pos, "field %q must not have a selection since type %q has no subfields", f.Name, typeName)
		}
		return nil
	}

	if len(f.Selections) == 0 {
		return invalidf(f.Pos, "field %q of type %q must have a selection of subfields", f.Name, typeName)
	}

	child, ok := v.schema.Type(def.Type)
	if !ok {
		return fmt.Errorf("schema references undefined type %q", def.Type)
	}
	return v.selections(child, f.Selections, depth+1)
}

func (v *validator) arguments(parent *ObjectType, def *FieldDef, f *Field) (map[string]any, error) {
	args := make(map[string]any, len(f.Arguments))
	given := make(map[string]bool, len(f.Arguments))

	for _, a := range f.Arguments {
		argDef, ok := def.arg(a.Name)
		if !ok {
			return nil, invalidf(a.Pos, "unknown argument %q on field \"%s.%s\"", a.Name, parent.Name, def.Name)
		}
		if given[a.Name] {
			return nil, invalidf(a.Pos, "there can be only one argument named %q", a.Name)
		}
		given[a.Name] = true

		val, present, err := coerceArgument(argDef, a.Value, v.plan.op, v.vars)
		if err != nil {
			return nil, invalidf(a.Value.Pos, "argument %q on field \"%s.%s\": %s",
				a.Name, parent.Name, def.Name, err)
		}
		if present {
			args[a.Name] = val
		}
	}

	for _, argDef := range def.Args {
		if argDef.Type.NonNull && !given[argDef.Name] {
			return nil, invalidf(f.Pos, "field \"%s.%s\" argument %q of type %q is required, but it was not provided",
				parent.Name, def.Name, argDef.Name, argDef.Type)
		}
	}
	return args, nil
}

func outputTypeName(def *FieldDef) string {
	name := def.Type
	if def.NonNull {
		name += "!"
	}
	if def.List {
		name = "[" + name + "]"
	}
	return name
}

// validationMessage returns the client-facing text and location of a
// request-level failure.
func validationMessage(err error) (string, *Position) {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.Error(), &se.Pos
	}

	var pos *Position
	var pe *positionedError
	if errors.As(err, &pe) {
		pos = &pe.pos
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, pos
	}
	return err.Error(), pos
}
