package token

import "fmt"

// A ParseError reports malformed JSON input.  It is terminal for the
// input sequence that produced it: every stage downstream of the tokenizer
// relays it unchanged to every consumer still attached.
type ParseError struct {
	// Offset is the byte offset of the offending byte, counted over the
	// whole input, across fragment boundaries.
	Offset int64

	// Reason is a human-readable description of what went wrong.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Reason)
}

func (t *Tokenizer) syntaxError(reason string) error {
	return &ParseError{Offset: t.offset, Reason: reason}
}

func (t *Tokenizer) syntaxErrorf(format string, args ...any) error {
	return &ParseError{Offset: t.offset, Reason: fmt.Sprintf(format, args...)}
}
