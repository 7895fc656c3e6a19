package token

import (
	"fmt"
	"io"

	"github.com/jsonsift/jsonsift/stream"
)

// An encoder turns a token stream back into compact JSON text.  It is the
// mirror of the Tokenizer and assumes its input is well-formed; a stream
// violating the nesting discipline makes it panic, like any other stage
// fed an impossible stream.
type encoder struct {
	stack     []encoderFrame
	afterKey  bool
	wroteRoot bool
	buf       []byte
}

type encoderFrame struct {
	array bool
	count int
}

const encoderFlushSize = 4096

// EncodeText consumes a token stream (one or more values) and produces
// JSON text fragments re-encoding the same values.  Top-level values are
// separated by newlines.
func EncodeText(in stream.ReadStream[Token]) stream.CancelReader[[]byte] {
	return stream.Transform(in, func(in stream.ReadStream[Token], out stream.WriteStream[[]byte]) error {
		e := &encoder{}
		for {
			tok, err := in.Next()
			if err == io.EOF {
				return e.flush(out)
			}
			if err != nil {
				return err
			}
			e.writeToken(tok)
			if len(e.buf) >= encoderFlushSize {
				if err := e.flush(out); err != nil {
					return err
				}
			}
		}
	})
}

// Encode drains a token stream into w as compact JSON text.
func Encode(in stream.ReadStream[Token], w io.Writer) error {
	text := EncodeText(in)
	for {
		fragment, err := text.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := w.Write(fragment); err != nil {
			text.Cancel()
			return err
		}
	}
}

func (e *encoder) flush(out stream.WriteStream[[]byte]) error {
	if len(e.buf) == 0 {
		return nil
	}
	fragment := e.buf
	e.buf = nil
	return out.Put(fragment)
}

func (e *encoder) writeToken(tok Token) {
	switch v := tok.(type) {
	case *StartObject:
		e.beforeValue()
		e.buf = append(e.buf, '{')
		e.stack = append(e.stack, encoderFrame{})
	case *EndObject:
		e.buf = append(e.buf, '}')
		e.pop()
	case *StartArray:
		e.beforeValue()
		e.buf = append(e.buf, '[')
		e.stack = append(e.stack, encoderFrame{array: true})
	case *EndArray:
		e.buf = append(e.buf, ']')
		e.pop()
	case *StartString:
		if v.Key {
			e.beforeKey()
		} else {
			e.beforeValue()
		}
		e.buf = append(e.buf, '"')
	case *StringChunk:
		e.buf = appendEscaped(e.buf, v.Bytes)
	case *EndString:
		e.buf = append(e.buf, '"')
		if v.Key {
			e.buf = append(e.buf, ':')
			e.afterKey = true
		} else {
			e.completeValue()
		}
	case *Number:
		e.beforeValue()
		e.buf = append(e.buf, v.Bytes...)
		e.completeValue()
	case *Boolean:
		e.beforeValue()
		if v.Value {
			e.buf = append(e.buf, "true"...)
		} else {
			e.buf = append(e.buf, "false"...)
		}
		e.completeValue()
	case *Null:
		e.beforeValue()
		e.buf = append(e.buf, "null"...)
		e.completeValue()
	default:
		panic(fmt.Sprintf("invalid token %#v", tok))
	}
}

// beforeValue writes whatever separator the position calls for: a comma
// between array items or top-level newline between root values.  A value
// following a key needs nothing, the colon was written with the key.
func (e *encoder) beforeValue() {
	if e.afterKey {
		e.afterKey = false
		return
	}
	if len(e.stack) == 0 {
		// Top level: separate concatenated values.
		if e.bufStarted() {
			e.buf = append(e.buf, '\n')
		}
		return
	}
	frame := &e.stack[len(e.stack)-1]
	if frame.count > 0 {
		e.buf = append(e.buf, ',')
	}
}

func (e *encoder) beforeKey() {
	frame := &e.stack[len(e.stack)-1]
	if frame.count > 0 {
		e.buf = append(e.buf, ',')
	}
}

func (e *encoder) completeValue() {
	if len(e.stack) > 0 {
		e.stack[len(e.stack)-1].count++
	} else {
		e.wroteRoot = true
	}
}

func (e *encoder) pop() {
	if len(e.stack) == 0 {
		panic("unbalanced token stream")
	}
	e.stack = e.stack[:len(e.stack)-1]
	e.completeValue()
}

func (e *encoder) bufStarted() bool {
	return e.wroteRoot
}

const hexDigits = "0123456789abcdef"

// appendEscaped appends s to dst as JSON string content, escaping quotes,
// backslashes and control characters.  Everything else passes through
// byte for byte.
func appendEscaped(dst, s []byte) []byte {
	for _, b := range s {
		switch {
		case b == '"':
			dst = append(dst, '\\', '"')
		case b == '\\':
			dst = append(dst, '\\', '\\')
		case b == '\n':
			dst = append(dst, '\\', 'n')
		case b == '\r':
			dst = append(dst, '\\', 'r')
		case b == '\t':
			dst = append(dst, '\\', 't')
		case b == '\b':
			dst = append(dst, '\\', 'b')
		case b == '\f':
			dst = append(dst, '\\', 'f')
		case b < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF])
		default:
			dst = append(dst, b)
		}
	}
	return dst
}
