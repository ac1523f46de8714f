package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// coerceVariables checks the operation's variable definitions and converts
// the supplied JSON values to Go values (int, string, bool or nil).
func coerceVariables(schema *Schema, op *Operation, supplied map[string]any) (map[string]any, error) {
	vars := make(map[string]any, len(op.Variables))
	seen := make(map[string]bool, len(op.Variables))

	for _, def := range op.Variables {
		if seen[def.Name] {
			return nil, invalidf(def.Pos, "there can be only one variable named \"$%s\"", def.Name)
		}
		seen[def.Name] = true

		if !schema.isScalar(def.Type.Name) {
			return nil, invalidf(def.Pos, "variable \"$%s\" cannot be of non-input type %q", def.Name, def.Type)
		}

		if def.Default != nil {
			if def.Default.Kind == ValueNull && def.Type.NonNull {
				return nil, invalidf(def.Default.Pos,
					"variable \"$%s\" of type %q cannot default to null", def.Name, def.Type)
			}
			if def.Default.Kind != ValueNull {
				if _, err := coerceLiteral(def.Type, def.Default); err != nil {
					return nil, invalidf(def.Default.Pos,
						"variable \"$%s\" has invalid default value: %s", def.Name, err)
				}
			}
		}

		raw, provided := supplied[def.Name]
		switch {
		case provided:
			v, err := coerceJSON(def.Type, raw)
			if err != nil {
				return nil, invalidf(def.Pos, "variable \"$%s\" got invalid value: %s", def.Name, err)
			}
			vars[def.Name] = v
		case def.Default != nil:
			v, _ := coerceLiteral(def.Type, def.Default)
			vars[def.Name] = v
		case def.Type.NonNull:
			return nil, invalidf(def.Pos,
				"variable \"$%s\" of required type %q was not provided", def.Name, def.Type)
		}
	}
	return vars, nil
}

// coerceArgument resolves an argument literal or variable reference against
// the argument's declared type. The second result is false when the argument
// resolves to no value at all (an unset nullable variable).
func coerceArgument(arg ArgumentDef, v *Value, op *Operation, vars map[string]any) (any, bool, error) {
	if v.Kind != ValueVariable {
		out, err := coerceLiteral(arg.Type, v)
		return out, true, err
	}

	var def *VariableDefinition
	for _, d := range op.Variables {
		if d.Name == v.Raw {
			def = d
			break
		}
	}
	if def == nil {
		return nil, false, fmt.Errorf("variable \"$%s\" is not defined", v.Raw)
	}

	if def.Type.Name != arg.Type.Name {
		return nil, false, fmt.Errorf("variable \"$%s\" of type %q used in position expecting type %q",
			def.Name, def.Type, arg.Type)
	}
	hasNonNullDefault := def.Default != nil && def.Default.Kind != ValueNull
	if arg.Type.NonNull && !def.Type.NonNull && !hasNonNullDefault {
		return nil, false, fmt.Errorf("variable \"$%s\" of type %q used in position expecting type %q",
			def.Name, def.Type, arg.Type)
	}

	val, ok := vars[def.Name]
	if arg.Type.NonNull && val == nil {
		return nil, false, fmt.Errorf("argument %q of non-null type %q must not be null", arg.Name, arg.Type)
	}
	return val, ok, nil
}

func coerceLiteral(t TypeRef, v *Value) (any, error) {
	if v.Kind == ValueNull {
		if t.NonNull {
			return nil, fmt.Errorf("expected value of type %q, found null", t)
		}
		return nil, nil
	}

	switch t.Name {
	case TypeInt:
		if v.Kind != ValueInt {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", literalText(v))
		}
		n, err := strconv.ParseInt(v.Raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %s", v.Raw)
		}
		return int(n), nil
	case TypeString:
		if v.Kind != ValueString {
			return nil, fmt.Errorf("String cannot represent a non string value: %s", literalText(v))
		}
		return v.Raw, nil
	case TypeBoolean:
		if v.Kind != ValueBoolean {
			return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %s", literalText(v))
		}
		return v.Boolean, nil
	default:
		return nil, fmt.Errorf("unknown input type %q", t.Name)
	}
}

func literalText(v *Value) string {
	switch v.Kind {
	case ValueString:
		return strconv.Quote(v.Raw)
	case ValueBoolean:
		return strconv.FormatBool(v.Boolean)
	case ValueVariable:
		return "$" + v.Raw
	default:
		return v.Raw
	}
}

// coerceJSON converts a decoded JSON value to the Go value for t.
func coerceJSON(t TypeRef, raw any) (any, error) {
	if raw == nil {
		if t.NonNull {
			return nil, fmt.Errorf("expected non-nullable type %q not to be null", t)
		}
		return nil, nil
	}

	switch t.Name {
	case TypeInt:
		return coerceJSONInt(raw)
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("String cannot represent a non string value: %v", raw)
		}
		return s, nil
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown input type %q", t.Name)
	}
}

func coerceJSONInt(raw any) (any, error) {
	var f float64
	switch n := raw.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			f = float64(i)
			break
		}
		// JSON has a single number type, so 1.0 and 1e3 are integral.
		v, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", n)
		}
		f = v
	default:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", raw)
	}

	if f != math.Trunc(f) {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", raw)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", raw)
	}
	return int(f), nil
}
