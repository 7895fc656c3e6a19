// Package jsonpath locates tokens in the document tree.  It defines paths
// (where a token lives), patterns (which subtrees a caller wants), the
// tracker annotating a token stream with paths and the selector filtering
// it down to the matching subtrees.
package jsonpath

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jsonsift/jsonsift/stream"
	"github.com/jsonsift/jsonsift/token"
)

// A Segment is one step in a path: an object key or an array index.
type Segment interface {
	isSegment()
	fmt.Stringer
}

// Key is an object-key path segment.
type Key string

func (k Key) isSegment() {}

func (k Key) String() string {
	return fmt.Sprintf("[%q]", string(k))
}

// Index is an array-index path segment.
type Index int

func (i Index) isSegment() {}

func (i Index) String() string {
	return fmt.Sprintf("[%d]", int(i))
}

// A Path locates a position in the document tree, read root to leaf.  The
// empty path is the document root.  Paths attached to tokens are never
// mutated after being handed downstream.
type Path []Segment

func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		b.WriteString(seg.String())
	}
	return b.String()
}

func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i, seg := range p {
		if seg != q[i] {
			return false
		}
	}
	return true
}

// A PatternSegment matches a single path segment.  Key and Index match
// themselves literally; Wildcard matches any segment.
type PatternSegment interface {
	matchesSegment(Segment) bool
	fmt.Stringer
}

func (k Key) matchesSegment(seg Segment) bool {
	other, ok := seg.(Key)
	return ok && other == k
}

func (i Index) matchesSegment(seg Segment) bool {
	other, ok := seg.(Index)
	return ok && other == i
}

type wildcard struct{}

// Wildcard matches any single segment at its depth.
var Wildcard PatternSegment = wildcard{}

func (wildcard) matchesSegment(Segment) bool {
	return true
}

func (wildcard) String() string {
	return "[*]"
}

// A Pattern selects subtrees by their path.  Matching is a prefix test: a
// pattern of length n matches any path of length at least n whose first n
// segments match segment by segment.  A path shorter than the pattern does
// not match.
type Pattern []PatternSegment

func (p Pattern) Matches(path Path) bool {
	if len(path) < len(p) {
		return false
	}
	for i, seg := range p {
		if !seg.matchesSegment(path[i]) {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		b.WriteString(seg.String())
	}
	return b.String()
}

// ParsePattern parses the textual pattern form used by the jsift command:
// dot-separated segments where '*' is a wildcard, a run of decimal digits
// is an array index and anything else is an object key.  Keys containing
// dots, digits only or a literal '*' can be double-quoted.  "$" and the
// empty string denote the root pattern, which matches every value.
func ParsePattern(s string) (Pattern, error) {
	if s == "" || s == "$" {
		return Pattern{}, nil
	}
	s = strings.TrimPrefix(s, "$.")
	var pattern Pattern
	for _, part := range splitSegments(s) {
		switch {
		case part == "":
			return nil, fmt.Errorf("invalid pattern: empty segment in %q", s)
		case part == "*":
			pattern = append(pattern, Wildcard)
		case strings.HasPrefix(part, `"`):
			key, err := strconv.Unquote(part)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern segment %s: %w", part, err)
			}
			pattern = append(pattern, Key(key))
		case isDigits(part):
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern segment %q: %w", part, err)
			}
			pattern = append(pattern, Index(n))
		default:
			pattern = append(pattern, Key(part))
		}
	}
	return pattern, nil
}

// splitSegments splits on dots outside double-quoted sections, so that
// quoted keys may contain dots.
func splitSegments(s string) []string {
	var parts []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '\\':
			if inQuote {
				i++
			}
		case '.':
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// A Located pairs a token with the path at which it occurs.  The path is
// where the token lives, not what it opens: the StartObject of a value at
// $["a"] itself carries $["a"].
type Located struct {
	Token token.Token
	Path  Path
}

func (l Located) String() string {
	return fmt.Sprintf("%s @ %s", l.Token, l.Path)
}

// Tokens strips the paths off a located stream, for stages that only care
// about the tokens, such as the text encoder.
func Tokens(in stream.ReadStream[Located]) stream.CancelReader[token.Token] {
	return stream.Transform(in, func(in stream.ReadStream[Located], out stream.WriteStream[token.Token]) error {
		for {
			lt, err := in.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := out.Put(lt.Token); err != nil {
				return err
			}
		}
	})
}
