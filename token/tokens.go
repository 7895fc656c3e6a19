// Package token defines the chunk vocabulary shared by every stage of a
// jsonsift pipeline, together with the tokenizer producing it and the
// encoder turning it back into JSON text.
package token

import (
	"fmt"
	"strconv"
)

// A Token is one item in a stream that encodes a JSON value.  For example
// the JSON text
//
//	{"id": 123, "tags": ["new"]}
//
// arriving in a single input fragment is represented by the stream (in
// pseudocode for clarity):
//
//	{        -> StartObject
//	"id":    -> StartString(key) StringChunk(key, "id") EndString(key)
//	123,     -> Number(123)
//	"tags":  -> StartString(key) StringChunk(key, "tags") EndString(key)
//	[        -> StartArray
//	"new"    -> StartString StringChunk("new") EndString
//	]        -> EndArray
//	}        -> EndObject
//
// Strings are split into Start/Chunk/End because their content may span
// several input fragments; a long string arriving in three fragments
// produces three StringChunk tokens between its StartString and EndString.
//
// Every Start token has exactly one matching End token and nesting follows
// a stack discipline.
type Token interface {
	fmt.Stringer
}

// StartObject represents the start of a JSON object (introduced by '{').
type StartObject struct{}

func (s *StartObject) String() string {
	return "StartObject"
}

var _ Token = &StartObject{}

// EndObject represents the end of a JSON object (introduced by '}').
type EndObject struct{}

func (e *EndObject) String() string {
	return "EndObject"
}

var _ Token = &EndObject{}

// StartArray represents the start of a JSON array (introduced by '[').
type StartArray struct{}

func (s *StartArray) String() string {
	return "StartArray"
}

var _ Token = &StartArray{}

// EndArray represents the end of a JSON array (introduced by ']').
type EndArray struct{}

func (e *EndArray) String() string {
	return "EndArray"
}

var _ Token = &EndArray{}

// StartString represents the opening quote of a JSON string.  Key is true
// when the string is an object key rather than a value.
type StartString struct {
	Key bool
}

func (s *StartString) String() string {
	if s.Key {
		return "StartString(key)"
	}
	return "StartString"
}

var _ Token = &StartString{}

// A StringChunk carries a run of decoded string content.  Bytes holds
// UTF-8 text with all escape sequences already resolved.  The chunks of
// one string never interleave with tokens of another role.
type StringChunk struct {
	Key   bool
	Bytes []byte
}

func (s *StringChunk) String() string {
	if s.Key {
		return fmt.Sprintf("StringChunk(key, %q)", s.Bytes)
	}
	return fmt.Sprintf("StringChunk(%q)", s.Bytes)
}

var _ Token = &StringChunk{}

// EndString represents the closing quote of a JSON string.
type EndString struct {
	Key bool
}

func (e *EndString) String() string {
	if e.Key {
		return "EndString(key)"
	}
	return "EndString"
}

var _ Token = &EndString{}

// A Number carries a complete JSON number.  Bytes is the literal exactly
// as it appeared in the input, so re-serializing loses no precision.
type Number struct {
	Bytes []byte
}

func (n *Number) String() string {
	return fmt.Sprintf("Number(%s)", n.Bytes)
}

// Float64 converts the literal to a float64.
func (n *Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n.Bytes), 64)
}

var _ Token = &Number{}

// A Boolean carries a complete JSON boolean.
type Boolean struct {
	Value bool
}

func (b *Boolean) String() string {
	if b.Value {
		return "Boolean(true)"
	}
	return "Boolean(false)"
}

var _ Token = &Boolean{}

// Null represents the JSON null value.
type Null struct{}

func (n *Null) String() string {
	return "Null"
}

var _ Token = &Null{}

// Shared instances for the tokens that carry no varying data.  Tokens are
// immutable once handed downstream so sharing is safe.
var (
	startObjectInstance = &StartObject{}
	endObjectInstance   = &EndObject{}
	startArrayInstance  = &StartArray{}
	endArrayInstance    = &EndArray{}
	nullInstance        = &Null{}
	trueInstance        = &Boolean{Value: true}
	falseInstance       = &Boolean{Value: false}

	startKeyInstance      = &StartString{Key: true}
	endKeyInstance        = &EndString{Key: true}
	startValueStrInstance = &StartString{}
	endValueStrInstance   = &EndString{}
)

// StringTokens builds the token run for a complete string, which is
// convenient when assembling streams by hand in tests.
func StringTokens(s string, key bool) []Token {
	return []Token{
		&StartString{Key: key},
		&StringChunk{Key: key, Bytes: []byte(s)},
		&EndString{Key: key},
	}
}

// Float64Number builds a Number token from a float64.
func Float64Number(x float64) *Number {
	return &Number{Bytes: []byte(strconv.FormatFloat(x, 'g', -1, 64))}
}

// Int64Number builds a Number token from an int64.
func Int64Number(n int64) *Number {
	return &Number{Bytes: []byte(strconv.FormatInt(n, 10))}
}

// IsStart reports whether the token opens a container.
func IsStart(tok Token) bool {
	switch tok.(type) {
	case *StartObject, *StartArray:
		return true
	}
	return false
}

// IsEnd reports whether the token closes a container.
func IsEnd(tok Token) bool {
	switch tok.(type) {
	case *EndObject, *EndArray:
		return true
	}
	return false
}
