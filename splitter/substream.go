package splitter

import (
	"io"
	"sync"

	"github.com/jsonsift/jsonsift/jsonpath"
	"github.com/jsonsift/jsonsift/stream"
)

// subState is the lifecycle of a sub-stream's buffer.
type subState uint8

const (
	subPending   subState = iota // emitted, not read yet
	subActive                    // being read
	subCompleted                 // closing boundary buffered, no more input
	subCanceled                  // discarded by its consumer
)

// A SubStream is one matched subtree: a concrete path (fully resolved, no
// wildcards, final from the moment the sub-stream is emitted) and the
// token sequence of that subtree, including its own boundary tokens.
//
// The splitter owns the buffered tokens until the first Next call; from
// then on the caller is the sole reader.  The buffer holds at most the
// splitter's limit: once it is full and unread, the splitter stops pulling
// from upstream until the consumer reads or cancels.
type SubStream struct {
	path  jsonpath.Path
	limit int

	mu    sync.Mutex
	cond  *sync.Cond
	buf   []jsonpath.Located
	state subState
	err   error
}

var _ stream.CancelReader[jsonpath.Located] = &SubStream{}

func newSubStream(path jsonpath.Path, limit int) *SubStream {
	s := &SubStream{path: path, limit: limit}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Path is where the subtree lives in the document.
func (s *SubStream) Path() jsonpath.Path {
	return s.path
}

// Next returns the subtree's next token.  It returns io.EOF once the
// closing boundary has been delivered, and the upstream failure if the
// source failed - even if unread tokens were still buffered, so an abort
// is observed on the very next interaction.
func (s *SubStream) Next() (jsonpath.Located, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == subPending {
		s.state = subActive
	}
	for {
		if s.err != nil {
			return jsonpath.Located{}, s.err
		}
		if s.state == subCanceled {
			return jsonpath.Located{}, stream.ErrCanceled
		}
		if len(s.buf) > 0 {
			lt := s.buf[0]
			s.buf = s.buf[1:]
			s.cond.Broadcast()
			return lt, nil
		}
		if s.state == subCompleted {
			return jsonpath.Located{}, io.EOF
		}
		s.cond.Wait()
	}
}

// Cancel discards the sub-stream: buffered tokens are released, the rest
// of the subtree is dropped as it arrives, and a splitter blocked on this
// sub-stream's full buffer is unblocked.  Later subtrees are unaffected.
func (s *SubStream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == subCompleted && len(s.buf) == 0 {
		return
	}
	s.state = subCanceled
	s.buf = nil
	s.cond.Broadcast()
}

// put appends one token, blocking while the buffer is full and the
// consumer has neither read nor canceled.  Tokens for a canceled
// sub-stream are dropped without buffering.
func (s *SubStream) put(lt jsonpath.Located) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.state == subCanceled || s.err != nil {
			return
		}
		if len(s.buf) < s.limit {
			s.buf = append(s.buf, lt)
			s.cond.Broadcast()
			return
		}
		s.cond.Wait()
	}
}

// complete marks the closing boundary as buffered; once the consumer
// drains the buffer the sub-stream ends normally.
func (s *SubStream) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == subCanceled {
		return
	}
	s.state = subCompleted
	s.cond.Broadcast()
}

// fail delivers an upstream failure.  A canceled sub-stream stays
// canceled: its consumer asked to stop caring and never hears about the
// region again.
func (s *SubStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == subCanceled {
		return
	}
	s.err = err
	s.cond.Broadcast()
}
