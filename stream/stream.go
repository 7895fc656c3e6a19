// Package stream provides the bounded hand-off primitives connecting the
// stages of a jsonsift pipeline.  Fragments, tokens, located tokens,
// sub-stream descriptors and materialized values all flow through the same
// discipline: an unbuffered hand-off between a producer goroutine and its
// consumer, so that no stage runs ahead of the slowest interested party.
package stream

import (
	"errors"
	"io"
	"sync"
)

// ErrCanceled is reported to a producer whose consumer has given up on the
// stream.  It is a signal to stop producing, not a failure: it must never
// be surfaced to other, unrelated consumers.
var ErrCanceled = errors.New("stream canceled by consumer")

// A ReadStream is a sequence of items consumed one at a time.
//
// Next returns io.EOF when the sequence has ended normally.  Any other
// error is terminal: once returned, every subsequent call returns the same
// error again, so a consumer that has not yet caught up with a failure
// still observes it on its very next interaction.
type ReadStream[T any] interface {
	Next() (T, error)
}

// A WriteStream accepts items one at a time.
//
// Put returns ErrCanceled once the reading side has canceled the stream;
// the producer should stop producing and tidy up.
type WriteStream[T any] interface {
	Put(T) error
}

// A CancelReader is a ReadStream whose consumer can signal that it will
// read no further.  All streams produced by this package implement it.
type CancelReader[T any] interface {
	ReadStream[T]
	Cancel()
}

// A Pipe is the hand-off between two adjacent pipeline stages.  It holds at
// most one pending item: a producer blocks in Put until the consumer has
// accepted the previous item, which is what propagates backpressure
// upstream stage by stage.
type Pipe[T any] struct {
	items chan T
	done  chan struct{}

	closeOnce  sync.Once
	cancelOnce sync.Once

	// err is written at most once, before items is closed.  The channel
	// close is the synchronization point making it visible to readers.
	err error
}

var _ CancelReader[int] = &Pipe[int]{}
var _ WriteStream[int] = &Pipe[int]{}

func NewPipe[T any]() *Pipe[T] {
	return &Pipe[T]{
		items: make(chan T),
		done:  make(chan struct{}),
	}
}

// Put hands an item to the consumer, blocking until it is accepted or the
// consumer cancels.
func (p *Pipe[T]) Put(item T) error {
	select {
	case p.items <- item:
		return nil
	case <-p.done:
		return ErrCanceled
	}
}

// Close ends the stream from the producer side.  A nil err is a normal
// end; otherwise err is delivered to the consumer on every Next call from
// then on.  Close is idempotent, later calls are ignored.
func (p *Pipe[T]) Close(err error) {
	p.closeOnce.Do(func() {
		p.err = err
		close(p.items)
	})
}

// Next returns the next item, io.EOF after a normal Close, or the error
// the producer closed the pipe with.
func (p *Pipe[T]) Next() (T, error) {
	item, ok := <-p.items
	if !ok {
		var zero T
		if p.err != nil {
			return zero, p.err
		}
		return zero, io.EOF
	}
	return item, nil
}

// Cancel tells the producer the consumer will read no further.  Pending
// and future Put calls return ErrCanceled.
func (p *Pipe[T]) Cancel() {
	p.cancelOnce.Do(func() {
		close(p.done)
	})
}

// Produce runs the given function in a goroutine, feeding a new stream.
// The stream ends when the function returns; a non-nil return value (other
// than ErrCanceled) is delivered to the consumer as the stream's failure.
func Produce[T any](produce func(out WriteStream[T]) error) CancelReader[T] {
	out := NewPipe[T]()
	go func() {
		err := produce(out)
		if errors.Is(err, ErrCanceled) {
			err = nil
		}
		out.Close(err)
	}()
	return out
}

// Transform connects a transforming function between an upstream stream
// and a new downstream stream, running it in a goroutine.  The function's
// error ends the downstream stream; a consumer cancellation is propagated
// to the upstream stream when it supports it.
func Transform[In, Out any](in ReadStream[In], transform func(in ReadStream[In], out WriteStream[Out]) error) CancelReader[Out] {
	out := NewPipe[Out]()
	go func() {
		err := transform(in, out)
		if errors.Is(err, ErrCanceled) {
			CancelStream(in)
			err = nil
		}
		out.Close(err)
	}()
	return out
}

// CancelStream cancels a stream if it supports cancellation.
func CancelStream[T any](s ReadStream[T]) {
	if c, ok := s.(interface{ Cancel() }); ok {
		c.Cancel()
	}
}

// A SliceReadStream reads items from a slice.  Mostly useful in tests and
// as the source end of small pipelines.
type SliceReadStream[T any] struct {
	items []T
}

var _ ReadStream[int] = &SliceReadStream[int]{}

func FromSlice[T any](items []T) *SliceReadStream[T] {
	return &SliceReadStream[T]{items: items}
}

func (r *SliceReadStream[T]) Next() (T, error) {
	if len(r.items) == 0 {
		var zero T
		return zero, io.EOF
	}
	item := r.items[0]
	r.items = r.items[1:]
	return item, nil
}

// Collect drains a stream into a slice.  On failure it returns the items
// read so far together with the error.
func Collect[T any](r ReadStream[T]) ([]T, error) {
	var items []T
	for {
		item, err := r.Next()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}
