package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// PropertyOwner identifies which entity table a property belongs to
type PropertyOwner string

const (
	OwnerOrganization PropertyOwner = "organization"
	OwnerUser         PropertyOwner = "user"
	OwnerRole         PropertyOwner = "role"
)

// Valid reports whether the owner kind is known
func (o PropertyOwner) Valid() bool {
	switch o {
	case OwnerOrganization, OwnerUser, OwnerRole:
		return true
	}
	return false
}

// Property is a named JSON value attached to an organization, user or role.
// Hidden properties are omitted from listings unless explicitly requested.
type Property struct {
	Name      string    `json:"name" db:"name"`
	Value     Value     `json:"value" db:"value"`
	Hidden    bool      `json:"hidden" db:"hidden"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewProperty creates a new Property instance
func NewProperty(name string, value Value, hidden bool) *Property {
	now := time.Now().UTC()
	return &Property{
		Name:      name,
		Value:     value,
		Hidden:    hidden,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValueKind is the tag of a Value
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func NullValue() Value            { return Value{} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }
func StringValue(s string) Value  { return Value{kind: KindString, s: s} }
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}
func ObjectValue(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the tag of the value
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is JSON null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether the value is a bool
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload and whether the value is a number
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload and whether the value is a string
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the elements and whether the value is an array
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the fields and whether the value is an object
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Equal reports deep equality of two values
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, fv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown value kind %s", v.kind)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := valueFromRaw(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue decodes JSON text into a Value
func ParseValue(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, fmt.Errorf("failed to parse property value: %w", err)
	}
	return v, nil
}

func valueFromRaw(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return NumberValue(f), nil
	case float64:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			iv, err := valueFromRaw(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, iv)
		}
		return ArrayValue(items...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fv, err := valueFromRaw(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = fv
		}
		return ObjectValue(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON type %T", raw)
	}
}
