package jsonpath

import (
	"io"

	"github.com/jsonsift/jsonsift/stream"
	"github.com/jsonsift/jsonsift/token"
)

// A Selector filters a located stream down to the subtrees matching a
// pattern, keeping structural completeness: once a container's opening
// boundary matches, every descendant token is forwarded up to and
// including the matching closing boundary, whatever its own depth.
//
// The selector holds only a match flag and a depth counter.  Tokens of
// non-matching subtrees are dropped one at a time, never buffered.  Its
// output is zero or more disjoint boundary-balanced runs, one per matched
// subtree occurrence.
type Selector struct {
	pattern Pattern

	inMatch  bool
	depth    int
	inString bool
}

func NewSelector(pattern Pattern) *Selector {
	return &Selector{pattern: pattern}
}

// Accept reports whether the token should be forwarded downstream.
func (s *Selector) Accept(lt Located) bool {
	if s.inMatch {
		if s.inString {
			if end, ok := lt.Token.(*token.EndString); ok && !end.Key {
				s.inMatch = false
				s.inString = false
			}
			return true
		}
		switch lt.Token.(type) {
		case *token.StartObject, *token.StartArray:
			s.depth++
		case *token.EndObject, *token.EndArray:
			s.depth--
			if s.depth == 0 {
				s.inMatch = false
			}
		}
		return true
	}
	if !s.pattern.Matches(lt.Path) {
		return false
	}
	switch v := lt.Token.(type) {
	case *token.StartObject, *token.StartArray:
		s.inMatch = true
		s.depth = 1
		return true
	case *token.StartString:
		// Outside a matched region a matching string start is always a
		// value: key tokens carry their object's path, and a matching
		// object path would have opened a region at its StartObject.
		if v.Key {
			return false
		}
		s.inMatch = true
		s.inString = true
		return true
	case *token.Number, *token.Boolean, *token.Null:
		// A matched primitive is a complete single-token run.
		return true
	}
	return false
}

// Select is the pipeline stage form of the Selector.
func Select(in stream.ReadStream[Located], pattern Pattern) stream.CancelReader[Located] {
	return stream.Transform(in, func(in stream.ReadStream[Located], out stream.WriteStream[Located]) error {
		s := NewSelector(pattern)
		for {
			lt, err := in.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if !s.Accept(lt) {
				continue
			}
			if err := out.Put(lt); err != nil {
				return err
			}
		}
	})
}
