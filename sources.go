package jsonsift

import (
	"io"

	"github.com/jsonsift/jsonsift/stream"
)

// fragmentSize is how much FromReader asks the reader for at a time.
const fragmentSize = 4096

// FromReader adapts an io.Reader into a fragment source.  Each Read
// becomes one fragment, so a network connection delivering data slowly
// feeds the pipeline at exactly the pace it arrives.
func FromReader(r io.Reader) stream.CancelReader[[]byte] {
	return stream.Produce(func(out stream.WriteStream[[]byte]) error {
		for {
			buf := make([]byte, fragmentSize)
			n, err := r.Read(buf)
			if n > 0 {
				if perr := out.Put(buf[:n]); perr != nil {
					return perr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
}

// FromStrings builds a fragment source from literal fragments, mostly
// useful in tests and examples exercising particular split points.
func FromStrings(fragments ...string) stream.ReadStream[[]byte] {
	chunks := make([][]byte, len(fragments))
	for i, s := range fragments {
		chunks[i] = []byte(s)
	}
	return stream.FromSlice(chunks)
}
