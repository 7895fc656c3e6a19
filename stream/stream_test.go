package stream

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestProduceAndCollect(t *testing.T) {
	s := Produce(func(out WriteStream[int]) error {
		for i := 1; i <= 3; i++ {
			if err := out.Put(i); err != nil {
				return err
			}
		}
		return nil
	})
	items, err := Collect[int](s)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0] != 1 || items[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", items)
	}
	// The end is sticky.
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected EOF after end, got %v", err)
	}
}

// TestProduceError checks that a producer failure is terminal: every
// Next call from then on returns the same error.
func TestProduceError(t *testing.T) {
	boom := errors.New("boom")
	s := Produce(func(out WriteStream[int]) error {
		if err := out.Put(1); err != nil {
			return err
		}
		return boom
	})
	if v, err := s.Next(); err != nil || v != 1 {
		t.Fatalf("first item: %v, %v", v, err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Next(); err != boom {
			t.Fatalf("read %d: expected boom, got %v", i, err)
		}
	}
}

// TestPipeBackpressure checks that a producer gets no further than one
// item ahead of its consumer.
func TestPipeBackpressure(t *testing.T) {
	produced := make(chan int, 10)
	s := Produce(func(out WriteStream[int]) error {
		for i := 0; i < 5; i++ {
			produced <- i
			if err := out.Put(i); err != nil {
				return err
			}
		}
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	if n := len(produced); n > 1 {
		t.Errorf("producer ran %d items ahead with no consumer", n)
	}
	if items, err := Collect[int](s); err != nil || len(items) != 5 {
		t.Errorf("collect: %v, %v", items, err)
	}
}

// TestCancelStopsProducer checks that a canceled consumer makes Put fail
// and that the producer's ErrCanceled return ends the stream quietly.
func TestCancelStopsProducer(t *testing.T) {
	putErr := make(chan error, 1)
	s := Produce(func(out WriteStream[int]) error {
		for i := 0; ; i++ {
			if err := out.Put(i); err != nil {
				putErr <- err
				return err
			}
		}
	})
	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	s.Cancel()

	select {
	case err := <-putErr:
		if err != ErrCanceled {
			t.Errorf("expected ErrCanceled in producer, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("producer still running after cancel")
	}
}

// TestTransformPropagatesCancel checks that canceling the downstream end
// of a Transform cancels its upstream too.
func TestTransformPropagatesCancel(t *testing.T) {
	upstreamDone := make(chan error, 1)
	upstream := Produce(func(out WriteStream[int]) error {
		for i := 0; ; i++ {
			if err := out.Put(i); err != nil {
				upstreamDone <- err
				return err
			}
		}
	})
	doubled := Transform(upstream, func(in ReadStream[int], out WriteStream[int]) error {
		for {
			v, err := in.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := out.Put(2 * v); err != nil {
				return err
			}
		}
	})

	if v, err := doubled.Next(); err != nil || v != 0 {
		t.Fatalf("first item: %v, %v", v, err)
	}
	doubled.Cancel()

	select {
	case err := <-upstreamDone:
		if err != ErrCanceled {
			t.Errorf("expected ErrCanceled upstream, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("upstream still running after downstream cancel")
	}
}

func TestFromSlice(t *testing.T) {
	s := FromSlice([]string{"a", "b"})
	if v, err := s.Next(); err != nil || v != "a" {
		t.Fatalf("got %q, %v", v, err)
	}
	if v, err := s.Next(); err != nil || v != "b" {
		t.Fatalf("got %q, %v", v, err)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}
