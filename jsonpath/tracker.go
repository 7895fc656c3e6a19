package jsonpath

import (
	"fmt"
	"io"

	"github.com/jsonsift/jsonsift/stream"
	"github.com/jsonsift/jsonsift/token"
)

// A Tracker annotates each token of a well-formed stream with its path.
// It keeps a stack mirroring the open containers: the current key for each
// open object, the next-item index for each open array.  A token's path is
// the chain of those at the moment the token is observed, which makes a
// container's Start and End both carry the container's own path.
//
// Key tokens carry the enclosing object's path; once the key string is
// complete it extends the path of every following token until the
// corresponding value closes.
//
// Feeding a stream that violates the nesting discipline panics: that is an
// internal consistency failure, unreachable from the tokenizer.
type Tracker struct {
	frames []trackerFrame
}

type trackerFrame struct {
	array bool

	// Array frames: index of the item currently being produced.
	index int

	// Object frames: key in force for the value currently being produced,
	// and the buffer assembling the next key.
	key    string
	keySet bool
	keybuf []byte
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Locate annotates one token with its path and advances the tracker.
func (t *Tracker) Locate(tok token.Token) Located {
	switch v := tok.(type) {
	case *token.StartObject:
		lt := Located{Token: tok, Path: t.currentPath()}
		t.frames = append(t.frames, trackerFrame{})
		return lt
	case *token.StartArray:
		lt := Located{Token: tok, Path: t.currentPath()}
		t.frames = append(t.frames, trackerFrame{array: true})
		return lt
	case *token.EndObject:
		t.pop(false)
		lt := Located{Token: tok, Path: t.currentPath()}
		t.completeValue()
		return lt
	case *token.EndString:
		lt := Located{Token: tok, Path: t.currentPath()}
		if v.Key {
			frame := t.keyFrame()
			frame.key = string(frame.keybuf)
			frame.keySet = true
			frame.keybuf = frame.keybuf[:0]
		} else {
			t.completeValue()
		}
		return lt
	case *token.EndArray:
		t.pop(true)
		lt := Located{Token: tok, Path: t.currentPath()}
		t.completeValue()
		return lt
	case *token.StringChunk:
		lt := Located{Token: tok, Path: t.currentPath()}
		if v.Key {
			frame := t.keyFrame()
			frame.keybuf = append(frame.keybuf, v.Bytes...)
		}
		return lt
	case *token.StartString:
		if v.Key {
			t.keyFrame()
		}
		return Located{Token: tok, Path: t.currentPath()}
	case *token.Number, *token.Boolean, *token.Null:
		lt := Located{Token: tok, Path: t.currentPath()}
		t.completeValue()
		return lt
	}
	panic(fmt.Sprintf("invalid token %#v", tok))
}

// currentPath snapshots the open ancestor chain into a fresh path.  An
// innermost object frame whose key is not complete yet contributes
// nothing: its key tokens live at the object's own path.
func (t *Tracker) currentPath() Path {
	path := make(Path, 0, len(t.frames))
	for i := range t.frames {
		frame := &t.frames[i]
		if frame.array {
			path = append(path, Index(frame.index))
		} else if frame.keySet {
			path = append(path, Key(frame.key))
		}
	}
	return path
}

// completeValue records that the innermost open container finished one of
// its items: the object key stops applying, the array index advances.
func (t *Tracker) completeValue() {
	if len(t.frames) == 0 {
		return
	}
	frame := &t.frames[len(t.frames)-1]
	if frame.array {
		frame.index++
	} else {
		frame.key = ""
		frame.keySet = false
	}
}

func (t *Tracker) keyFrame() *trackerFrame {
	if len(t.frames) == 0 {
		panic("key token outside any object")
	}
	frame := &t.frames[len(t.frames)-1]
	if frame.array || frame.keySet {
		panic("key token in invalid position")
	}
	return frame
}

func (t *Tracker) pop(array bool) {
	if len(t.frames) == 0 || t.frames[len(t.frames)-1].array != array {
		panic("container end with no matching start")
	}
	t.frames = t.frames[:len(t.frames)-1]
}

// Track is the pipeline stage form of the Tracker.
func Track(in stream.ReadStream[token.Token]) stream.CancelReader[Located] {
	return stream.Transform(in, func(in stream.ReadStream[token.Token], out stream.WriteStream[Located]) error {
		t := NewTracker()
		for {
			tok, err := in.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := out.Put(t.Locate(tok)); err != nil {
				return err
			}
		}
	})
}
