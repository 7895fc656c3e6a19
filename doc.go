// Package jsonsift extracts subtrees from JSON streams without ever
// holding the whole document in memory.
//
// The input is a sequence of text fragments - network reads, file chunks,
// anything - whose boundaries carry no meaning.  A pipeline of five
// streaming stages turns it into independently consumable subtrees:
//
//	fragments -> tokenizer -> path tracker -> selector -> splitter -> sub-streams
//
// - token: tokenizes JSON text into a stream of tokens
// - jsonpath: annotates each token with its path and filters the stream
//   down to the subtrees matching a pattern
// - splitter: fans the matches out into one sub-stream per subtree
// - builder: materializes a token stream (whole document or sub-stream)
//   into in-memory values
// - stream: the bounded hand-off primitives connecting the stages
//
// Each stage runs in its own goroutine and hands items to the next one
// through an unbuffered channel, so output is available as soon as input
// arrives and a slow consumer throttles the source instead of growing
// buffers.  This package composes the stages; each can also be used on
// its own (the token package alone makes a serviceable syntax
// highlighter backend).
//
// Extracted subtrees can be read back as JSON text (token.EncodeText) or
// as values (builder.Build).  The jsift command in cmd/jsift does both
// from the command line.
package jsonsift
