package builder

import (
	"fmt"
	"io"

	"github.com/jsonsift/jsonsift/jsonpath"
	"github.com/jsonsift/jsonsift/stream"
	"github.com/jsonsift/jsonsift/token"
)

// A Result is one materialized root-level value together with the path
// recorded on its first token - meaningful when the input is a subtree
// split off a larger document.
type Result struct {
	Value Value
	Path  jsonpath.Path
}

// A Builder materializes a token stream into values, one per root-level
// value in its input, which may contain any number of them back to back.
//
// Nesting is represented by an explicit stack of frames (the root, an
// object property in progress, an array item in progress) rather than by
// recursive calls, so depth is bounded by the heap, not the call stack,
// and the machine resumes cleanly however the input is sliced into
// fragments.
type Builder struct {
	frames []frame
	strbuf []byte
}

type frameKind uint8

const (
	frameRoot frameKind = iota
	frameObject
	frameArray
)

type frame struct {
	kind   frameKind
	object *Object
	array  []Value

	// Object frames: the key being assembled and whether it is complete,
	// in which case the next completed value is stored under it.
	key     []byte
	keyDone bool

	// Root frame: path of the first token of the value in progress.
	path jsonpath.Path
}

func NewBuilder() *Builder {
	return &Builder{frames: []frame{{kind: frameRoot}}}
}

// Feed advances the machine by one token.  When the token completes a
// root-level value, that value is returned with done=true.
func (b *Builder) Feed(lt jsonpath.Located) (result Result, done bool, err error) {
	tok := lt.Token
	if len(b.frames) == 1 && startsValue(tok) {
		b.frames[0].path = lt.Path
	}
	switch v := tok.(type) {
	case *token.StartObject:
		b.frames = append(b.frames, frame{kind: frameObject, object: NewObject()})
	case *token.StartArray:
		b.frames = append(b.frames, frame{kind: frameArray, array: []Value{}})
	case *token.EndObject:
		popped := b.pop(frameObject)
		return b.completeValue(popped.object)
	case *token.EndArray:
		popped := b.pop(frameArray)
		return b.completeValue(popped.array)
	case *token.StartString:
		if v.Key {
			top := b.top()
			if top.kind != frameObject || top.keyDone {
				panic("key token in invalid position")
			}
			top.key = top.key[:0]
		} else {
			b.strbuf = b.strbuf[:0]
		}
	case *token.StringChunk:
		if v.Key {
			top := b.top()
			if top.kind != frameObject || top.keyDone {
				panic("key token in invalid position")
			}
			top.key = append(top.key, v.Bytes...)
		} else {
			b.strbuf = append(b.strbuf, v.Bytes...)
		}
	case *token.EndString:
		if v.Key {
			b.top().keyDone = true
		} else {
			return b.completeValue(string(b.strbuf))
		}
	case *token.Number:
		x, err := v.Float64()
		if err != nil {
			return Result{}, false, fmt.Errorf("number %s out of range: %w", v.Bytes, err)
		}
		return b.completeValue(x)
	case *token.Boolean:
		return b.completeValue(v.Value)
	case *token.Null:
		return b.completeValue(nil)
	default:
		panic(fmt.Sprintf("invalid token %#v", tok))
	}
	return Result{}, false, nil
}

// completeValue hands a finished value to the enclosing frame: emitted at
// the root, stored under the pending key in an object, appended in an
// array.
func (b *Builder) completeValue(v Value) (Result, bool, error) {
	top := b.top()
	switch top.kind {
	case frameRoot:
		return Result{Value: v, Path: top.path}, true, nil
	case frameObject:
		if !top.keyDone {
			panic("value completed with no pending key")
		}
		top.object.Set(string(top.key), v)
		top.key = top.key[:0]
		top.keyDone = false
	case frameArray:
		top.array = append(top.array, v)
	}
	return Result{}, false, nil
}

func (b *Builder) top() *frame {
	return &b.frames[len(b.frames)-1]
}

func (b *Builder) pop(kind frameKind) frame {
	top := b.top()
	if top.kind != kind {
		panic("container end with no matching start")
	}
	popped := *top
	b.frames = b.frames[:len(b.frames)-1]
	return popped
}

// idle reports whether the machine is between root-level values.
func (b *Builder) idle() bool {
	return len(b.frames) == 1 && !b.frames[0].keyDone
}

func startsValue(tok token.Token) bool {
	switch v := tok.(type) {
	case *token.StartObject, *token.StartArray, *token.Number, *token.Boolean, *token.Null:
		return true
	case *token.StartString:
		return !v.Key
	}
	return false
}

// Build is the pipeline stage form of the Builder: it consumes a located
// token stream (a whole document or a subtree sub-stream) and produces
// one Result per completed root-level value.
func Build(in stream.ReadStream[jsonpath.Located]) stream.CancelReader[Result] {
	return stream.Transform(in, func(in stream.ReadStream[jsonpath.Located], out stream.WriteStream[Result]) error {
		b := NewBuilder()
		for {
			lt, err := in.Next()
			if err == io.EOF {
				if !b.idle() {
					panic("input ended inside a value")
				}
				return nil
			}
			if err != nil {
				return err
			}
			result, done, err := b.Feed(lt)
			if err != nil {
				return err
			}
			if done {
				if err := out.Put(result); err != nil {
					return err
				}
			}
		}
	})
}
