// Package models defines the core domain models for agent and workflow execution.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindList
)

// Value is a tagged union for open context payloads. Workflow and agent
// contexts are maps of string keys to Value, so any node can add any key
// while the engine keeps a closed set of representable shapes.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	obj  Object
	list []Value
}

// Object is an open key-value payload threaded through executions.
type Object map[string]Value

func Null() Value                { return Value{kind: KindNull} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func Number(n float64) Value     { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func ObjectValue(o Object) Value { return Value{kind: KindObject, obj: o} }
func ListValue(l []Value) Value  { return Value{kind: KindList, list: l} }

func (v Value) Kind() ValueKind    { return v.kind }
func (v Value) StringVal() string  { return v.str }
func (v Value) NumberVal() float64 { return v.num }
func (v Value) BoolVal() bool      { return v.b }
func (v Value) ObjectVal() Object  { return v.obj }
func (v Value) ListVal() []Value   { return v.list }

// FromAny converts a decoded-JSON style value (string, float64, bool, nil,
// map[string]any, []any) into a Value. Unknown Go types are stringified.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case bool:
		return Bool(t)
	case map[string]any:
		obj := make(Object, len(t))
		for k, val := range t {
			obj[k] = FromAny(val)
		}

		return ObjectValue(obj)
	case []any:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			list = append(list, FromAny(item))
		}

		return ListValue(list)
	case Object:
		return ObjectValue(t)
	case Value:
		return t
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// ObjectFromAny converts a map of decoded-JSON values into an Object.
func ObjectFromAny(raw map[string]any) Object {
	obj := make(Object, len(raw))
	for k, v := range raw {
		obj[k] = FromAny(v)
	}

	return obj
}

// ToAny converts a Value back into its decoded-JSON representation.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, val := range v.obj {
			out[k] = val.ToAny()
		}

		return out
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.ToAny())
		}

		return out
	default:
		return nil
	}
}

// ToAny converts an Object into a plain map for template rendering and JSON.
func (o Object) ToAny() map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = v.ToAny()
	}

	return out
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindObject:
		return ObjectValue(v.obj.Clone())
	case KindList:
		list := make([]Value, len(v.list))
		for i, item := range v.list {
			list[i] = item.Clone()
		}

		return ListValue(list)
	default:
		return v
	}
}

// Clone returns a deep copy of the object.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}

	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v.Clone()
	}

	return out
}

// Merge deep-merges src into dst and returns dst. Object values merge
// recursively; every other kind replaces. Keys absent from src are left
// untouched, so merging an empty object is the identity.
func Merge(dst, src Object) Object {
	if dst == nil {
		dst = make(Object, len(src))
	}

	for k, sv := range src {
		dv, exists := dst[k]
		if exists && dv.kind == KindObject && sv.kind == KindObject {
			dst[k] = ObjectValue(Merge(dv.obj.Clone(), sv.obj))

			continue
		}

		dst[k] = sv.Clone()
	}

	return dst
}

// Keys returns the object's keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Equal reports deep equality between two values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}

		for k, val := range v.obj {
			o, ok := other.obj[k]
			if !ok || !val.Equal(o) {
				return false
			}
		}

		return true
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}

		for i, item := range v.list {
			if !item.Equal(other.list[i]) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// MarshalJSON encodes the value as its plain JSON representation, so stored
// context snapshots round-trip without a wrapper envelope.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = FromAny(raw)

	return nil
}
