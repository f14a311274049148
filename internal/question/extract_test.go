package question

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeItems = `[
 {"question": "Q1?", "options": ["a", "b", "c"], "correct": 0, "hint": "h1", "explanation": "e1"},
 {"question": "Q2 with a } brace and \"quote\"?", "options": ["a", "b"], "correct": 1, "hint": "h2", "explanation": "e2"},
 {"question": "Q3?", "options": ["x", "y", "z"], "correct": 2, "hint": "h3", "explanation": "e3"}
]`

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "fenced block wins",
			raw:  "Sure!\n```json\n[{\"a\": 1}]\n```\nthanks",
			want: `[{"a": 1}]`,
			ok:   true,
		},
		{
			name: "fence without language tag",
			raw:  "```\n[{\"a\": 1}]\n```",
			want: `[{"a": 1}]`,
			ok:   true,
		},
		{
			name: "bare array with prose around",
			raw:  `Here you go: [{"a": 1}, {"b": 2}] hope it helps`,
			want: `[{"a": 1}, {"b": 2}]`,
			ok:   true,
		},
		{
			name: "wrapper object beats inner array",
			raw:  `{"questions": [{"a": 1}], "meta": {"n": 1}}`,
			want: `{"questions": [{"a": 1}], "meta": {"n": 1}}`,
			ok:   true,
		},
		{
			name: "array of scalars is not a candidate",
			raw:  `options are [1, 2, 3]`,
			ok:   false,
		},
		{
			name: "nothing at all",
			raw:  "I cannot help with that.",
			ok:   false,
		},
		{
			name: "truncated array runs to end of text",
			raw:  `[{"a": 1}, {"b": ["x", "y"], "c": {"d"`,
			want: `[{"a": 1}, {"b": ["x", "y"], "c": {"d"`,
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePartialCompleteArrayIsVerbatim(t *testing.T) {
	items := ParsePartial(threeItems)
	require.Len(t, items, 3)

	direct, err := DecodeArray(threeItems)
	require.NoError(t, err)
	assert.Equal(t, direct, items)
}

func TestParsePartialRecoversCompleteObjects(t *testing.T) {
	truncated := `[{"question": "Q1", "options": ["a","b"], "correct": 0, "hint": "h", "explanation": "e"}, ` +
		`{"question": "Q2", "options": ["a","b"], "correct": 1, "hint": "h", "explanation": "e"}, {"question": "Q3", "opt`

	items := ParsePartial(truncated)
	require.Len(t, items, 2)
	assert.Equal(t, "Q1", items[0].(map[string]any)["question"])
	assert.Equal(t, "Q2", items[1].(map[string]any)["question"])

	qs, err := Decode(items)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestParsePartialIgnoresBracesInStrings(t *testing.T) {
	truncated := `[{"question": "What does } mean in \"Go\"?", "options": ["a","b"], "correct": 0, "explanation": "e"}, {"question": "{`
	items := ParsePartial(truncated)
	require.Len(t, items, 1)
	assert.Equal(t, `What does } mean in "Go"?`, items[0].(map[string]any)["question"])
}

func TestParsePartialRejectsNonArrays(t *testing.T) {
	assert.Empty(t, ParsePartial(""))
	assert.Empty(t, ParsePartial(`{"question": "Q"}`))
	assert.Empty(t, ParsePartial(`not json`))
}

func TestParsePartialIsMonotonicUnderTruncation(t *testing.T) {
	prev := 0
	for n := 0; n <= len(threeItems); n++ {
		got := len(ParsePartial(threeItems[:n]))
		require.GreaterOrEqual(t, got, prev, "prefix length %d", n)
		prev = got
	}
	assert.Equal(t, 3, prev)
}

func TestExtractParseRoundTrip(t *testing.T) {
	var want []any
	dec := json.NewDecoder(strings.NewReader(threeItems))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&want))

	for _, wrap := range []string{
		"%s",
		"Here are your questions:\n%s\nGood luck!",
		"```json\n%s\n```",
	} {
		raw := strings.Replace(wrap, "%s", threeItems, 1)
		candidate, ok := Extract(raw)
		require.True(t, ok)
		assert.Equal(t, want, ParsePartial(candidate))
	}
}

func TestDecodeArrayRejectsTrailingData(t *testing.T) {
	_, err := DecodeArray(`[{"a": 1}] extra`)
	assert.Error(t, err)

	_, err = DecodeArray(`{"a": 1}`)
	assert.Error(t, err)

	items, err := DecodeArray(`  [{"a": 1}]  `)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func FuzzParsePartial(f *testing.F) {
	f.Add(threeItems)
	f.Add(threeItems[:len(threeItems)/2])
	f.Add(`[{"a": "\\\"}"}, {`)
	f.Add(`[[[{}]]]`)
	f.Fuzz(func(t *testing.T, s string) {
		items := ParsePartial(s)
		if !strings.HasPrefix(strings.TrimSpace(s), "[") {
			if len(items) != 0 {
				t.Fatalf("non-array input produced %d items", len(items))
			}
		}
	})
}
