package query

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a response object whose keys keep selection order when encoded
// as JSON. Values are int, string, bool, nil, *Object or []any.
type Object struct {
	fields *orderedmap.OrderedMap[string, any]
}

// newObject creates an object holding a null for every field's response key.
func newObject(fields []*Field) *Object {
	o := &Object{fields: orderedmap.New[string, any](len(fields))}
	for _, f := range fields {
		o.fields.Set(f.ResponseKey(), nil)
	}
	return o
}

func (o *Object) set(key string, value any) {
	o.fields.Set(key, value)
}

// Keys returns the response keys in order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.fields.Len())
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	return o.fields.Get(key)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return o.fields.Len()
}

// ToMap converts the object tree to plain maps and slices, losing key order.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, o.fields.Len())
	for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
		m[pair.Key] = plain(pair.Value)
	}
	return m
}

func plain(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	return o.fields.MarshalJSON()
}

// Response is the result of executing one request.
type Response struct {
	Data   *Object  `json:"data"`
	Errors []*Error `json:"errors,omitempty"`
}
