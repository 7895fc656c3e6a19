package jsonpath

import (
	"testing"

	"github.com/jsonsift/jsonsift/stream"
)

const selectorDoc = `{
	"apples":   {"count": 2, "results": [1, 2]},
	"cherries": {"count": 1, "results": [3]}
}`

// TestSelectorRuns checks which tokens survive filtering: each matched
// subtree comes out as one complete boundary-balanced run, everything
// else is dropped.
func TestSelectorRuns(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		pattern  string
		expected []string
	}{
		{
			name:    "container matches",
			input:   selectorDoc,
			pattern: "*.results",
			expected: []string{
				`StartArray @ $["apples"]["results"]`,
				`Number(1) @ $["apples"]["results"][0]`,
				`Number(2) @ $["apples"]["results"][1]`,
				`EndArray @ $["apples"]["results"]`,
				`StartArray @ $["cherries"]["results"]`,
				`Number(3) @ $["cherries"]["results"][0]`,
				`EndArray @ $["cherries"]["results"]`,
			},
		},
		{
			name:    "primitive matches",
			input:   selectorDoc,
			pattern: "*.count",
			expected: []string{
				`Number(2) @ $["apples"]["count"]`,
				`Number(1) @ $["cherries"]["count"]`,
			},
		},
		{
			name:    "string value match",
			input:   `{"name": "Alice", "age": 30}`,
			pattern: "name",
			expected: []string{
				`StartString @ $["name"]`,
				`StringChunk("Alice") @ $["name"]`,
				`EndString @ $["name"]`,
			},
		},
		{
			name:     "no matches",
			input:    selectorDoc,
			pattern:  "*.results.missing",
			expected: nil,
		},
		{
			name:    "descendants forwarded whatever their depth",
			input:   `{"a": {"deep": [[{"x": 1}]]}, "b": 2}`,
			pattern: "a",
			expected: []string{
				`StartObject @ $["a"]`,
				`StartString(key) @ $["a"]`,
				`StringChunk(key, "deep") @ $["a"]`,
				`EndString(key) @ $["a"]`,
				`StartArray @ $["a"]["deep"]`,
				`StartArray @ $["a"]["deep"][0]`,
				`StartObject @ $["a"]["deep"][0][0]`,
				`StartString(key) @ $["a"]["deep"][0][0]`,
				`StringChunk(key, "x") @ $["a"]["deep"][0][0]`,
				`EndString(key) @ $["a"]["deep"][0][0]`,
				`Number(1) @ $["a"]["deep"][0][0]["x"]`,
				`EndObject @ $["a"]["deep"][0][0]`,
				`EndArray @ $["a"]["deep"][0]`,
				`EndArray @ $["a"]["deep"]`,
				`EndObject @ $["a"]`,
			},
		},
		{
			name:    "wildcard over array indices",
			input:   `[{"v": 1}, {"v": 2}]`,
			pattern: "*.v",
			expected: []string{
				`Number(1) @ $[0]["v"]`,
				`Number(2) @ $[1]["v"]`,
			},
		},
		{
			name:    "root pattern forwards whole roots",
			input:   `1 [2]`,
			pattern: "",
			expected: []string{
				"Number(1) @ $",
				"StartArray @ $",
				"Number(2) @ $[0]",
				"EndArray @ $",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, err := ParsePattern(tt.pattern)
			if err != nil {
				t.Fatalf("parse error: %s", err)
			}
			selected, err := stream.Collect[Located](Select(locatedSource(t, tt.input), pattern))
			if err != nil {
				t.Fatalf("select error: %s", err)
			}
			assertLocated(t, selected, tt.expected)
		})
	}
}

// TestSelectorMatchInsideMatch checks that a nested occurrence inside an
// already-matched subtree is not split into a second run.
func TestSelectorMatchInsideMatch(t *testing.T) {
	pattern, err := ParsePattern("a")
	if err != nil {
		t.Fatal(err)
	}
	selected, err := stream.Collect[Located](Select(locatedSource(t, `{"a": {"a": 1}}`), pattern))
	if err != nil {
		t.Fatalf("select error: %s", err)
	}
	assertLocated(t, selected, []string{
		`StartObject @ $["a"]`,
		`StartString(key) @ $["a"]`,
		`StringChunk(key, "a") @ $["a"]`,
		`EndString(key) @ $["a"]`,
		`Number(1) @ $["a"]["a"]`,
		`EndObject @ $["a"]`,
	})
}
