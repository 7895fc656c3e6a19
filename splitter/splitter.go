// Package splitter fans a filtered token stream out into one sub-stream
// per matched subtree, each independently consumable, independently
// cancelable and independently backpressured.
package splitter

import (
	"io"

	"github.com/jsonsift/jsonsift/internal/debug"
	"github.com/jsonsift/jsonsift/jsonpath"
	"github.com/jsonsift/jsonsift/stream"
	"github.com/jsonsift/jsonsift/token"
)

// DefaultBufferLimit is the number of tokens buffered for a sub-stream
// that is not being read before the splitter stops pulling from upstream.
const DefaultBufferLimit = 64

type Option func(*options)

type options struct {
	bufferLimit int
}

// WithBufferLimit sets how many tokens may pile up in an unread
// sub-stream before the whole pipeline stalls.
func WithBufferLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferLimit = n
		}
	}
}

// Split consumes a selector's output (disjoint boundary-balanced runs,
// one per matched subtree) and produces a stream of sub-streams, one per
// run, in the order their opening boundary arrives.  Each sub-stream is
// handed downstream the moment its first token is seen; its path is final
// at that point and its tokens fill in as input arrives.
//
// Sub-streams may be drained in any order.  A sub-stream that nobody
// reads fills its buffer and then stalls the splitter, and with it the
// whole upstream pipeline; that is deliberate, it is what bounds memory.
// Consumers must either drain every sub-stream or cancel it.
//
// Canceling the sub-stream sequence itself stops discovery of further
// subtrees but leaves already-emitted sub-streams alive; a caller that
// wants full teardown cancels those individually.
//
// If the upstream stream fails, the failure is delivered to the main
// sequence and to every sub-stream already emitted, on their next read.
func Split(in stream.ReadStream[jsonpath.Located], opts ...Option) stream.CancelReader[*SubStream] {
	o := options{bufferLimit: DefaultBufferLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return stream.Transform(in, func(in stream.ReadStream[jsonpath.Located], out stream.WriteStream[*SubStream]) error {
		sp := &splitter{limit: o.bufferLimit, out: out}
		for {
			lt, err := in.Next()
			if err == io.EOF {
				if sp.inRun() {
					panic("input ended inside a subtree")
				}
				return nil
			}
			if err != nil {
				sp.abort(err)
				return err
			}
			if err := sp.route(lt); err != nil {
				return err
			}
		}
	})
}

// splitter tracks the run currently being filled and every sub-stream
// emitted so far (the abort fan-out needs all of them).
type splitter struct {
	limit int
	out   stream.WriteStream[*SubStream]

	emitted []*SubStream

	// Current run state.  current is nil while discarding a run whose
	// descriptor was never delivered (main sequence canceled).
	current  *SubStream
	depth    int
	inString bool
	runOpen  bool
	canceled bool // main sub-stream sequence canceled
}

func (sp *splitter) inRun() bool {
	return sp.runOpen
}

func (sp *splitter) route(lt jsonpath.Located) error {
	if !sp.runOpen {
		if sp.canceled {
			// No further subtree discovery wanted and nothing left to
			// deliver: stop pulling from upstream.
			return stream.ErrCanceled
		}
		sp.openRun(lt)
	}
	if sp.current != nil {
		sp.current.put(lt)
	}
	if sp.runEnds(lt.Token) {
		if sp.current != nil {
			sp.current.complete()
			sp.current = nil
		}
		sp.runOpen = false
		if sp.canceled {
			return stream.ErrCanceled
		}
	}
	return nil
}

func (sp *splitter) openRun(lt jsonpath.Located) {
	sp.runOpen = true
	sp.depth = 0
	start, isString := lt.Token.(*token.StartString)
	sp.inString = isString && !start.Key
	sub := newSubStream(lt.Path, sp.limit)
	if err := sp.out.Put(sub); err != nil {
		// The descriptor was never delivered, so nobody can ever read
		// this sub-stream: discard the whole run.
		sp.canceled = true
		return
	}
	debug.Printf("splitter: new sub-stream %s", sub.Path())
	sp.emitted = append(sp.emitted, sub)
	sp.current = sub
}

// runEnds updates the nesting bookkeeping for one forwarded token and
// reports whether it closes the current run.
func (sp *splitter) runEnds(tok token.Token) bool {
	if sp.inString {
		if end, ok := tok.(*token.EndString); ok && !end.Key {
			return true
		}
		return false
	}
	switch tok.(type) {
	case *token.StartObject, *token.StartArray:
		sp.depth++
		return false
	case *token.EndObject, *token.EndArray:
		sp.depth--
		if sp.depth < 0 {
			panic("unbalanced run from selector")
		}
		return sp.depth == 0
	case *token.Number, *token.Boolean, *token.Null:
		return sp.depth == 0
	}
	return false
}

func (sp *splitter) abort(err error) {
	for _, sub := range sp.emitted {
		sub.fail(err)
	}
	sp.current = nil
}
