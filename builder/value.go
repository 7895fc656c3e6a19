// Package builder materializes token streams into in-memory values.  It
// is the inverse of the tokenizer: a value is emitted only once complete,
// and a partially-built tree is never observable from outside.
package builder

import (
	gojson "github.com/goccy/go-json"
)

// A Value is a materialized JSON value: one of
//
//	string, float64, bool, nil, *Object, []Value
type Value = any

// A Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// An Object is a JSON object preserving insertion order.  Keys are
// unique: setting an existing key replaces its value in place, keeping
// the key's original position.
type Object struct {
	members []Member
	index   map[string]int
}

func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

func (o *Object) Set(key string, value Value) {
	if i, ok := o.index[key]; ok {
		o.members[i].Value = value
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: value})
}

func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.members[i].Value, true
}

func (o *Object) Len() int {
	return len(o.members)
}

// Members returns the key/value pairs in insertion order.  The slice is
// shared, callers must not modify it.
func (o *Object) Members() []Member {
	return o.members
}

// MarshalJSON encodes the object with its members in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, m := range o.members {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := gojson.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		value, err := gojson.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, value...)
	}
	return append(buf, '}'), nil
}

// Equal reports structural equality of two values.  Object members are
// compared in order, since insertion order is part of the value.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *Object:
		y, ok := b.(*Object)
		if !ok || len(x.members) != len(y.members) {
			return false
		}
		for i, m := range x.members {
			if m.Key != y.members[i].Key || !Equal(m.Value, y.members[i].Value) {
				return false
			}
		}
		return true
	case []Value:
		y, ok := b.([]Value)
		if !ok || len(x) != len(y) {
			return false
		}
		for i, v := range x {
			if !Equal(v, y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ToGo converts a value to the shapes encoding/json-style decoders
// produce (map[string]any, []any, primitives), losing member order.
// Useful for comparing against a reference decoder in tests.
func ToGo(v Value) any {
	switch x := v.(type) {
	case *Object:
		m := make(map[string]any, len(x.members))
		for _, member := range x.members {
			m[member.Key] = ToGo(member.Value)
		}
		return m
	case []Value:
		s := make([]any, len(x))
		for i, item := range x {
			s[i] = ToGo(item)
		}
		return s
	default:
		return v
	}
}
