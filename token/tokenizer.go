package token

import (
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/jsonsift/jsonsift/stream"
)

// A Tokenizer turns JSON text arriving in arbitrary fragments into a
// stream of tokens.  Fragment boundaries carry no meaning: a boundary may
// fall in the middle of a string, a number, an escape sequence or a
// keyword and no byte is ever lost or read twice.  All state lives in the
// Tokenizer itself (a stack of open containers plus a small scanner
// state), never on the call stack, so feeding can stop and resume at any
// byte.
//
// The input may contain any number of concatenated top-level values; no
// separator is required beyond each value's own terminator.
type Tokenizer struct {
	state scanState
	stack []byte // open containers, each '{' or '['

	// Byte offset of the next input byte, counted over all fragments.
	offset int64

	// String scanning.  strbuf holds decoded content not yet emitted as a
	// StringChunk; pendingSurrogate holds a high surrogate from a \uXXXX
	// escape waiting for its partner.
	keyString        bool
	strbuf           []byte
	pendingSurrogate rune
	hex              rune
	hexCount         int

	// Number scanning.
	numbuf   []byte
	numState numScanState

	// Keyword scanning: the remainder of the literal being matched and the
	// token to emit once it is complete.
	kwTail  string
	kwIndex int
	kwToken Token
}

type scanState uint8

const (
	scanValue       scanState = iota // expecting the start of a value
	scanObjectFirst                  // just after '{': a key or '}'
	scanObjectKey                    // after ',' in an object: a key
	scanObjectColon                  // between a key and its value
	scanArrayFirst                   // just after '[': a value or ']'
	scanComma                        // after a value inside a container
	scanString                       // inside a string
	scanEscape                       // just after a backslash
	scanUnicode                      // inside the hex digits of \uXXXX
	scanNumber                       // inside a number literal
	scanKeyword                      // inside true, false or null
)

type numScanState uint8

const (
	numNeg numScanState = iota // after '-'
	numZero                    // after a leading '0'
	numInt                     // in integer digits
	numDot                     // after '.'
	numFrac                    // in fraction digits
	numExp                     // after 'e' or 'E'
	numExpSign                 // after the exponent sign
	numExpDigits               // in exponent digits
)

func NewTokenizer() *Tokenizer {
	return &Tokenizer{state: scanValue}
}

// Feed scans one input fragment, sending the tokens it completes to out.
// Decoded string content pending at the end of the fragment is flushed as
// a StringChunk, so a consumer never waits on a boundary that has already
// arrived.  On malformed input Feed returns a *ParseError and the
// Tokenizer must not be fed again.
func (t *Tokenizer) Feed(fragment []byte, out stream.WriteStream[Token]) error {
	for i := 0; i < len(fragment); i++ {
		b := fragment[i]
		redo, err := t.scanByte(b, out)
		if err != nil {
			return err
		}
		if redo {
			// A number ended on this byte; scan it again in the new state.
			i--
			continue
		}
		t.offset++
	}
	if t.state == scanString && len(t.strbuf) > 0 {
		return t.flushStringChunk(out)
	}
	return nil
}

// Finish signals the end of the input.  It completes a trailing number if
// one is pending and verifies that no container, string or literal is left
// open.
func (t *Tokenizer) Finish(out stream.WriteStream[Token]) error {
	if t.state == scanNumber {
		if !t.numTerminal() {
			return t.syntaxError("unexpected end of input in number")
		}
		if err := t.emitNumber(out); err != nil {
			return err
		}
	}
	switch {
	case t.state == scanString || t.state == scanEscape || t.state == scanUnicode:
		return t.syntaxError("unterminated string")
	case t.state == scanKeyword:
		return t.syntaxError("unexpected end of input in literal")
	case len(t.stack) > 0:
		return t.syntaxError("unexpected end of input: unclosed container")
	case t.state != scanValue:
		return t.syntaxError("unexpected end of input")
	}
	return nil
}

// scanByte processes a single byte.  It reports redo=true when the byte
// terminated a number and must be scanned again under the new state.
func (t *Tokenizer) scanByte(b byte, out stream.WriteStream[Token]) (redo bool, err error) {
	switch t.state {
	case scanValue:
		if isSpace(b) {
			return false, nil
		}
		return false, t.startValue(b, out)

	case scanObjectFirst:
		if isSpace(b) {
			return false, nil
		}
		if b == '}' {
			return false, t.endContainer('{', endObjectInstance, out)
		}
		return false, t.startKey(b, out)

	case scanObjectKey:
		if isSpace(b) {
			return false, nil
		}
		return false, t.startKey(b, out)

	case scanObjectColon:
		if isSpace(b) {
			return false, nil
		}
		if b != ':' {
			return false, t.syntaxErrorf("expected ':', got %q", b)
		}
		t.state = scanValue
		return false, nil

	case scanArrayFirst:
		if isSpace(b) {
			return false, nil
		}
		if b == ']' {
			return false, t.endContainer('[', endArrayInstance, out)
		}
		return false, t.startValue(b, out)

	case scanComma:
		if isSpace(b) {
			return false, nil
		}
		open := t.stack[len(t.stack)-1]
		switch {
		case b == ',' && open == '{':
			t.state = scanObjectKey
		case b == ',' && open == '[':
			t.state = scanValue
		case b == '}' && open == '{':
			return false, t.endContainer('{', endObjectInstance, out)
		case b == ']' && open == '[':
			return false, t.endContainer('[', endArrayInstance, out)
		default:
			if open == '{' {
				return false, t.syntaxErrorf("expected ',' or '}', got %q", b)
			}
			return false, t.syntaxErrorf("expected ',' or ']', got %q", b)
		}
		return false, nil

	case scanString:
		return false, t.scanStringByte(b, out)

	case scanEscape:
		return false, t.scanEscapeByte(b)

	case scanUnicode:
		return false, t.scanUnicodeByte(b)

	case scanNumber:
		return t.scanNumberByte(b, out)

	case scanKeyword:
		if t.kwIndex >= len(t.kwTail) || b != t.kwTail[t.kwIndex] {
			return false, t.syntaxErrorf("invalid literal, expected %q", t.kwTail)
		}
		t.kwIndex++
		if t.kwIndex == len(t.kwTail) {
			if err := out.Put(t.kwToken); err != nil {
				return false, err
			}
			t.afterValue()
		}
		return false, nil
	}
	panic("invalid scanner state")
}

func (t *Tokenizer) startValue(b byte, out stream.WriteStream[Token]) error {
	switch {
	case b == '{':
		t.stack = append(t.stack, '{')
		t.state = scanObjectFirst
		return out.Put(startObjectInstance)
	case b == '[':
		t.stack = append(t.stack, '[')
		t.state = scanArrayFirst
		return out.Put(startArrayInstance)
	case b == '"':
		t.keyString = false
		t.state = scanString
		return out.Put(startValueStrInstance)
	case b == 't':
		t.startKeyword("rue", trueInstance)
		return nil
	case b == 'f':
		t.startKeyword("alse", falseInstance)
		return nil
	case b == 'n':
		t.startKeyword("ull", nullInstance)
		return nil
	case b == '-':
		t.startNumber(b, numNeg)
		return nil
	case b == '0':
		t.startNumber(b, numZero)
		return nil
	case b >= '1' && b <= '9':
		t.startNumber(b, numInt)
		return nil
	}
	return t.syntaxErrorf("invalid value starting with %q", b)
}

func (t *Tokenizer) startKey(b byte, out stream.WriteStream[Token]) error {
	if b != '"' {
		return t.syntaxErrorf("expected '\"', got %q", b)
	}
	t.keyString = true
	t.state = scanString
	return out.Put(startKeyInstance)
}

func (t *Tokenizer) startKeyword(tail string, tok Token) {
	t.kwTail = tail
	t.kwIndex = 0
	t.kwToken = tok
	t.state = scanKeyword
}

func (t *Tokenizer) startNumber(b byte, st numScanState) {
	t.numbuf = append(t.numbuf[:0], b)
	t.numState = st
	t.state = scanNumber
}

func (t *Tokenizer) endContainer(open byte, end Token, out stream.WriteStream[Token]) error {
	if len(t.stack) == 0 || t.stack[len(t.stack)-1] != open {
		// Unreachable from the scanner itself, kept as a consistency check.
		panic("container stack out of step")
	}
	t.stack = t.stack[:len(t.stack)-1]
	if err := out.Put(end); err != nil {
		return err
	}
	t.afterValue()
	return nil
}

// afterValue sets the state following a completed value: another top-level
// value may follow at depth 0, a separator otherwise.
func (t *Tokenizer) afterValue() {
	if len(t.stack) == 0 {
		t.state = scanValue
	} else {
		t.state = scanComma
	}
}

func (t *Tokenizer) scanStringByte(b byte, out stream.WriteStream[Token]) error {
	switch {
	case b == '"':
		t.flushSurrogate()
		if len(t.strbuf) > 0 {
			if err := t.flushStringChunk(out); err != nil {
				return err
			}
		}
		var end Token = endValueStrInstance
		if t.keyString {
			end = endKeyInstance
		}
		if err := out.Put(end); err != nil {
			return err
		}
		if t.keyString {
			t.state = scanObjectColon
		} else {
			t.afterValue()
		}
		return nil
	case b == '\\':
		t.state = scanEscape
		return nil
	case b < 0x20:
		return t.syntaxErrorf("invalid control character %q in string", b)
	default:
		t.flushSurrogate()
		t.strbuf = append(t.strbuf, b)
		return nil
	}
}

func (t *Tokenizer) scanEscapeByte(b byte) error {
	var decoded byte
	switch b {
	case '"', '\\', '/':
		decoded = b
	case 'b':
		decoded = '\b'
	case 'f':
		decoded = '\f'
	case 'n':
		decoded = '\n'
	case 'r':
		decoded = '\r'
	case 't':
		decoded = '\t'
	case 'u':
		t.hex = 0
		t.hexCount = 0
		t.state = scanUnicode
		return nil
	default:
		return t.syntaxErrorf("invalid escape character %q", b)
	}
	t.flushSurrogate()
	t.strbuf = append(t.strbuf, decoded)
	t.state = scanString
	return nil
}

func (t *Tokenizer) scanUnicodeByte(b byte) error {
	var d rune
	switch {
	case b >= '0' && b <= '9':
		d = rune(b - '0')
	case b >= 'a' && b <= 'f':
		d = rune(b-'a') + 10
	case b >= 'A' && b <= 'F':
		d = rune(b-'A') + 10
	default:
		return t.syntaxErrorf("expected hex digit, got %q", b)
	}
	t.hex = t.hex<<4 | d
	t.hexCount++
	if t.hexCount < 4 {
		return nil
	}
	r := t.hex
	switch {
	case utf16.IsSurrogate(r) && r < 0xDC00:
		// High surrogate: hold it until the next \u escape.
		t.flushSurrogate()
		t.pendingSurrogate = r
	case utf16.IsSurrogate(r):
		if t.pendingSurrogate != 0 {
			t.strbuf = utf8.AppendRune(t.strbuf, utf16.DecodeRune(t.pendingSurrogate, r))
			t.pendingSurrogate = 0
		} else {
			t.strbuf = utf8.AppendRune(t.strbuf, utf8.RuneError)
		}
	default:
		t.flushSurrogate()
		t.strbuf = utf8.AppendRune(t.strbuf, r)
	}
	t.state = scanString
	return nil
}

// flushSurrogate replaces a high surrogate that never got its partner,
// like encoding/json does.
func (t *Tokenizer) flushSurrogate() {
	if t.pendingSurrogate != 0 {
		t.strbuf = utf8.AppendRune(t.strbuf, utf8.RuneError)
		t.pendingSurrogate = 0
	}
}

func (t *Tokenizer) flushStringChunk(out stream.WriteStream[Token]) error {
	chunk := &StringChunk{Key: t.keyString, Bytes: t.strbuf}
	t.strbuf = nil
	return out.Put(chunk)
}

func (t *Tokenizer) scanNumberByte(b byte, out stream.WriteStream[Token]) (redo bool, err error) {
	digit := b >= '0' && b <= '9'
	switch t.numState {
	case numNeg:
		switch {
		case b == '0':
			t.numState = numZero
		case digit:
			t.numState = numInt
		default:
			return false, t.syntaxError("invalid number: expected digit after '-'")
		}
	case numZero:
		switch {
		case b == '.':
			t.numState = numDot
		case b == 'e' || b == 'E':
			t.numState = numExp
		default:
			return true, t.emitNumber(out)
		}
	case numInt:
		switch {
		case digit:
		case b == '.':
			t.numState = numDot
		case b == 'e' || b == 'E':
			t.numState = numExp
		default:
			return true, t.emitNumber(out)
		}
	case numDot:
		if !digit {
			return false, t.syntaxError("invalid number: expected digit after '.'")
		}
		t.numState = numFrac
	case numFrac:
		switch {
		case digit:
		case b == 'e' || b == 'E':
			t.numState = numExp
		default:
			return true, t.emitNumber(out)
		}
	case numExp:
		switch {
		case b == '+' || b == '-':
			t.numState = numExpSign
		case digit:
			t.numState = numExpDigits
		default:
			return false, t.syntaxError("invalid number: expected exponent")
		}
	case numExpSign:
		if !digit {
			return false, t.syntaxError("invalid number: expected exponent")
		}
		t.numState = numExpDigits
	case numExpDigits:
		if !digit {
			return true, t.emitNumber(out)
		}
	}
	t.numbuf = append(t.numbuf, b)
	return false, nil
}

func (t *Tokenizer) numTerminal() bool {
	switch t.numState {
	case numZero, numInt, numFrac, numExpDigits:
		return true
	}
	return false
}

func (t *Tokenizer) emitNumber(out stream.WriteStream[Token]) error {
	tok := &Number{Bytes: t.numbuf}
	t.numbuf = nil
	t.afterValue()
	return out.Put(tok)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Tokenize is the pipeline stage form of the Tokenizer: it consumes a
// stream of text fragments and produces the corresponding token stream in
// its own goroutine.  A failure of the fragment source is relayed to the
// token stream unchanged.
func Tokenize(fragments stream.ReadStream[[]byte]) stream.CancelReader[Token] {
	return stream.Transform(fragments, func(in stream.ReadStream[[]byte], out stream.WriteStream[Token]) error {
		t := NewTokenizer()
		for {
			fragment, err := in.Next()
			if err == io.EOF {
				return t.Finish(out)
			}
			if err != nil {
				return err
			}
			if err := t.Feed(fragment, out); err != nil {
				return err
			}
		}
	})
}
