package token

import (
	"errors"
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/jsonsift/jsonsift/stream"
)

// TestTokenizerValues tests tokenizing of whole documents arriving in a
// single fragment.
func TestTokenizerValues(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "true",
			input:    "true",
			expected: []string{"Boolean(true)"},
		},
		{
			name:     "false",
			input:    "false",
			expected: []string{"Boolean(false)"},
		},
		{
			name:     "null",
			input:    "null",
			expected: []string{"Null"},
		},
		{
			name:     "integer",
			input:    "42",
			expected: []string{"Number(42)"},
		},
		{
			name:     "negative number",
			input:    "-1.23e-45",
			expected: []string{"Number(-1.23e-45)"},
		},
		{
			name:     "simple string",
			input:    `"hello"`,
			expected: []string{"StartString", `StringChunk("hello")`, "EndString"},
		},
		{
			name:     "empty string",
			input:    `""`,
			expected: []string{"StartString", "EndString"},
		},
		{
			name:     "empty array",
			input:    "[]",
			expected: []string{"StartArray", "EndArray"},
		},
		{
			name:     "empty object",
			input:    "{}",
			expected: []string{"StartObject", "EndObject"},
		},
		{
			name:  "array with mixed values",
			input: `[1, "two", true, null]`,
			expected: []string{
				"StartArray",
				"Number(1)",
				"StartString", `StringChunk("two")`, "EndString",
				"Boolean(true)",
				"Null",
				"EndArray",
			},
		},
		{
			name:  "object with one pair",
			input: `{"id": 123}`,
			expected: []string{
				"StartObject",
				"StartString(key)", `StringChunk(key, "id")`, "EndString(key)",
				"Number(123)",
				"EndObject",
			},
		},
		{
			name:  "nested containers",
			input: `{"tags": ["new"]}`,
			expected: []string{
				"StartObject",
				"StartString(key)", `StringChunk(key, "tags")`, "EndString(key)",
				"StartArray",
				"StartString", `StringChunk("new")`, "EndString",
				"EndArray",
				"EndObject",
			},
		},
		{
			name:  "whitespace everywhere",
			input: " \t\n{ \"a\" : [ 1 , 2 ] }\r\n",
			expected: []string{
				"StartObject",
				"StartString(key)", `StringChunk(key, "a")`, "EndString(key)",
				"StartArray",
				"Number(1)",
				"Number(2)",
				"EndArray",
				"EndObject",
			},
		},
		{
			name:  "concatenated top-level values",
			input: `{"a":1} [2] 3 "x"`,
			expected: []string{
				"StartObject",
				"StartString(key)", `StringChunk(key, "a")`, "EndString(key)",
				"Number(1)",
				"EndObject",
				"StartArray",
				"Number(2)",
				"EndArray",
				"Number(3)",
				"StartString", `StringChunk("x")`, "EndString",
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenizeFragments(t, tt.input)
			assertTokenStrings(t, tokens, tt.expected)
		})
	}
}

// TestTokenizerFragmentation checks that splitting the input at any byte
// boundary changes nothing but the chunking of string content.
func TestTokenizerFragmentation(t *testing.T) {
	input := `{"name": "caf\u00e9 \"zero\"", "values": [-1.5e+3, true, null], "nested": {"empty": []}}`

	want := tokenizeFragments(t, input)
	wantStrings := tokenStrings(mergeChunks(want))

	for i := 1; i < len(input); i++ {
		got := tokenizeFragments(t, input[:i], input[i:])
		gotStrings := tokenStrings(mergeChunks(got))
		if strings.Join(gotStrings, "\n") != strings.Join(wantStrings, "\n") {
			t.Errorf("split at byte %d:\n%s", i,
				diff.LineDiff(strings.Join(wantStrings, "\n"), strings.Join(gotStrings, "\n")))
		}
	}
}

// TestTokenizerStringChunks checks that string content pending at a
// fragment boundary is flushed rather than held back.
func TestTokenizerStringChunks(t *testing.T) {
	tokens := tokenizeFragments(t, `"hel`, `lo wo`, `rld"`)
	assertTokenStrings(t, tokens, []string{
		"StartString",
		`StringChunk("hel")`,
		`StringChunk("lo wo")`,
		`StringChunk("rld")`,
		"EndString",
	})
}

func TestTokenizerEscapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote", `"a\"b"`, `a"b`},
		{"backslash", `"a\\b"`, `a\b`},
		{"slash", `"a\/b"`, "a/b"},
		{"control escapes", `"\b\f\n\r\t"`, "\b\f\n\r\t"},
		{"unicode escape", `"caf\u00e9"`, "café"},
		{"unicode uppercase hex", `"\u00E9"`, "é"},
		{"surrogate pair", `"\ud83d\ude00"`, "😀"},
		{"lone high surrogate", `"\ud83dx"`, "\uFFFDx"},
		{"lone low surrogate", `"\ude00"`, "\uFFFD"},
		{"raw multibyte passthrough", `"日本語"`, "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertStringContent(t, tokenizeFragments(t, tt.input), tt.expected)
		})
	}
}

// TestTokenizerSplitEscapes splits escape sequences across fragment
// boundaries, including between the two halves of a surrogate pair.
func TestTokenizerSplitEscapes(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		expected  string
	}{
		{"backslash then letter", []string{`"a\`, `nb"`}, "a\nb"},
		{"mid hex digits", []string{`"\u00`, `e9"`}, "é"},
		{"between surrogates", []string{`"\ud83d`, `\ude00"`}, "😀"},
		{"mid low surrogate", []string{`"\ud83d\ud`, `e00"`}, "😀"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertStringContent(t, tokenizeFragments(t, tt.fragments...), tt.expected)
		})
	}
}

// TestTokenizerNumbers checks number literals, including ones terminated
// only by the end of the input.
func TestTokenizerNumbers(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		expected  string
	}{
		{"zero", []string{"0"}, "0"},
		{"integer at EOF", []string{"123"}, "123"},
		{"integer split", []string{"12", "3"}, "123"},
		{"fraction split at dot", []string{"1", ".", "5"}, "1.5"},
		{"exponent at EOF", []string{"1.5e"}, ""},
		{"full exponent", []string{"1.5e+10"}, "1.5e+10"},
		{"negative zero", []string{"-0.5"}, "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := tokenizeAll(tt.fragments...)
			if tt.expected == "" {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("tokenize error: %s", err)
			}
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			num, ok := tokens[0].(*Number)
			if !ok {
				t.Fatalf("expected Number, got %T", tokens[0])
			}
			if string(num.Bytes) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, num.Bytes)
			}
		})
	}
}

// TestTokenizerErrors checks that malformed input produces a ParseError
// pointing at the offending byte, with offsets counted across fragments.
func TestTokenizerErrors(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		offset    int64
	}{
		{"invalid value start", []string{"hello"}, 0},
		{"missing colon", []string{`{"a" 1}`}, 5},
		{"missing comma in array", []string{"[1 2]"}, 3},
		{"missing comma in object", []string{`{"a":1 "b":2}`}, 7},
		{"trailing comma then close", []string{`{"a":1,}`}, 7},
		{"bad literal", []string{"trve"}, 2},
		{"bad escape", []string{`"a\x"`}, 3},
		{"bad hex digit", []string{`"\u12g4"`}, 5},
		{"control char in string", []string{"\"a\x01b\""}, 2},
		{"digit after minus", []string{"-x"}, 1},
		{"unterminated string", []string{`"abc`}, 4},
		{"unclosed container", []string{`{"a":1`}, 6},
		{"dangling comma at EOF", []string{"[1,"}, 3},
		{"offset across fragments", []string{`{"a"`, `:1 x`}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokenizeAll(tt.fragments...)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T: %s", err, err)
			}
			if parseErr.Offset != tt.offset {
				t.Errorf("expected offset %d, got %d (%s)", tt.offset, parseErr.Offset, parseErr)
			}
		})
	}
}

// TestTokenizeRelaysSourceError checks that a failing fragment source
// fails the token stream with the same error.
func TestTokenizeRelaysSourceError(t *testing.T) {
	sourceErr := errors.New("connection reset")
	source := stream.Produce(func(out stream.WriteStream[[]byte]) error {
		if err := out.Put([]byte(`{"a":`)); err != nil {
			return err
		}
		return sourceErr
	})

	_, err := stream.Collect[Token](Tokenize(source))
	if err != sourceErr {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestTokenizeCancel(t *testing.T) {
	tokens := Tokenize(fragmentSource("[1, 2, 3, 4]"))
	if _, err := tokens.Next(); err != nil {
		t.Fatalf("first token: %s", err)
	}
	tokens.Cancel()
	// The producing goroutine stops; draining afterwards must not hang.
	for i := 0; i < 20; i++ {
		if _, err := tokens.Next(); err != nil {
			return
		}
	}
	t.Fatal("stream did not end after cancel")
}

// Helpers

func fragmentSource(fragments ...string) stream.ReadStream[[]byte] {
	chunks := make([][]byte, len(fragments))
	for i, s := range fragments {
		chunks[i] = []byte(s)
	}
	return stream.FromSlice(chunks)
}

func tokenizeAll(fragments ...string) ([]Token, error) {
	return stream.Collect[Token](Tokenize(fragmentSource(fragments...)))
}

func tokenizeFragments(t *testing.T, fragments ...string) []Token {
	t.Helper()
	tokens, err := tokenizeAll(fragments...)
	if err != nil {
		t.Fatalf("tokenize error: %s", err)
	}
	return tokens
}

func tokenStrings(tokens []Token) []string {
	strs := make([]string, len(tokens))
	for i, tok := range tokens {
		strs[i] = tok.String()
	}
	return strs
}

// mergeChunks coalesces adjacent StringChunk tokens, so that streams
// differing only in how string content was fragmented compare equal.
func mergeChunks(tokens []Token) []Token {
	var merged []Token
	for _, tok := range tokens {
		chunk, ok := tok.(*StringChunk)
		if ok && len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*StringChunk); ok && prev.Key == chunk.Key {
				joined := append(append([]byte{}, prev.Bytes...), chunk.Bytes...)
				merged[len(merged)-1] = &StringChunk{Key: chunk.Key, Bytes: joined}
				continue
			}
		}
		merged = append(merged, tok)
	}
	return merged
}

func assertTokenStrings(t *testing.T, tokens []Token, expected []string) {
	t.Helper()
	got := strings.Join(tokenStrings(tokens), "\n")
	want := strings.Join(expected, "\n")
	if got != want {
		t.Errorf("token stream mismatch:\n%s", diff.LineDiff(want, got))
	}
}

// assertStringContent checks that the tokens form a single string value
// with the given decoded content.
func assertStringContent(t *testing.T, tokens []Token, expected string) {
	t.Helper()
	if len(tokens) < 2 {
		t.Fatalf("expected at least 2 tokens, got %d", len(tokens))
	}
	if _, ok := tokens[0].(*StartString); !ok {
		t.Fatalf("expected StartString, got %s", tokens[0])
	}
	if _, ok := tokens[len(tokens)-1].(*EndString); !ok {
		t.Fatalf("expected EndString, got %s", tokens[len(tokens)-1])
	}
	var content []byte
	for _, tok := range tokens[1 : len(tokens)-1] {
		chunk, ok := tok.(*StringChunk)
		if !ok {
			t.Fatalf("expected StringChunk, got %s", tok)
		}
		content = append(content, chunk.Bytes...)
	}
	if string(content) != expected {
		t.Errorf("expected content %q, got %q", expected, content)
	}
}
