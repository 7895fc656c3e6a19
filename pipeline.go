package jsonsift

import (
	"fmt"
	"io"

	"github.com/jsonsift/jsonsift/builder"
	"github.com/jsonsift/jsonsift/jsonpath"
	"github.com/jsonsift/jsonsift/splitter"
	"github.com/jsonsift/jsonsift/stream"
	"github.com/jsonsift/jsonsift/token"
)

// Tokens tokenizes a fragment source.
func Tokens(fragments stream.ReadStream[[]byte]) stream.CancelReader[token.Token] {
	return token.Tokenize(fragments)
}

// Locate tokenizes a fragment source and annotates every token with its
// path in the document tree.
func Locate(fragments stream.ReadStream[[]byte]) stream.CancelReader[jsonpath.Located] {
	return jsonpath.Track(token.Tokenize(fragments))
}

// Parse materializes every root-level value of a fragment source.
func Parse(fragments stream.ReadStream[[]byte]) stream.CancelReader[builder.Result] {
	return builder.Build(Locate(fragments))
}

// Extract runs the full pipeline: it emits one sub-stream per subtree
// matching the pattern, in document order.  Every sub-stream must be
// drained or canceled by the caller; one left untouched eventually stalls
// the source (see the splitter package).
func Extract(fragments stream.ReadStream[[]byte], pattern jsonpath.Pattern, opts ...splitter.Option) stream.CancelReader[*splitter.SubStream] {
	return splitter.Split(jsonpath.Select(Locate(fragments), pattern), opts...)
}

// ExtractValues materializes each matched subtree, in document order.
// Each Result's path is the subtree's location in the document.
func ExtractValues(fragments stream.ReadStream[[]byte], pattern jsonpath.Pattern, opts ...splitter.Option) stream.CancelReader[builder.Result] {
	subs := Extract(fragments, pattern, opts...)
	return stream.Transform(subs, func(in stream.ReadStream[*splitter.SubStream], out stream.WriteStream[builder.Result]) error {
		for {
			sub, err := in.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			result, err := SubStreamValue(sub)
			if err != nil {
				return err
			}
			if err := out.Put(result); err != nil {
				return err
			}
		}
	})
}

// SubStreamValue drains one sub-stream into its value.
func SubStreamValue(sub *splitter.SubStream) (builder.Result, error) {
	b := builder.NewBuilder()
	for {
		lt, err := sub.Next()
		if err == io.EOF {
			return builder.Result{}, fmt.Errorf("sub-stream %s ended with no value", sub.Path())
		}
		if err != nil {
			return builder.Result{}, err
		}
		result, done, err := b.Feed(lt)
		if err != nil {
			return builder.Result{}, err
		}
		if done {
			return result, nil
		}
	}
}

// SubStreamText drains one sub-stream into compact JSON text.
func SubStreamText(sub *splitter.SubStream) ([]byte, error) {
	fragments := token.EncodeText(jsonpath.Tokens(sub))
	var text []byte
	for {
		fragment, err := fragments.Next()
		if err == io.EOF {
			return text, nil
		}
		if err != nil {
			return nil, err
		}
		text = append(text, fragment...)
	}
}
