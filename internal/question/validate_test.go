package question

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(fields map[string]any) map[string]any {
	base := map[string]any{
		"question":    "Q?",
		"options":     []any{"a", "b", "c"},
		"correct":     json.Number("1"),
		"hint":        "h",
		"explanation": "e",
	}
	for k, v := range fields {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return base
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name    string
		items   []any
		message string
		item    int
		field   string
	}{
		{
			name:    "empty input",
			items:   nil,
			message: "Input must be a non-empty JSON array.",
		},
		{
			name:    "not an object",
			items:   []any{item(nil), "oops"},
			message: "Item 2 is not an object.",
			item:    2,
		},
		{
			name:    "missing explanation",
			items:   []any{item(map[string]any{"explanation": nil})},
			message: `Item 1 is missing field: "explanation".`,
			item:    1,
			field:   "explanation",
		},
		{
			name:    "blank question",
			items:   []any{item(map[string]any{"question": "   "})},
			message: `Item 1: "question" must be a non-empty string.`,
			item:    1,
			field:   "question",
		},
		{
			name:    "single option",
			items:   []any{item(map[string]any{"options": []any{"only"}, "correct": json.Number("0")})},
			message: `Item 1: "options" must be an array with at least 2 items.`,
			item:    1,
			field:   "options",
		},
		{
			name:    "correct out of range",
			items:   []any{item(map[string]any{"correct": json.Number("3")})},
			message: `Item 1: "correct" index is invalid.`,
			item:    1,
			field:   "correct",
		},
		{
			name:    "correct not an integer",
			items:   []any{item(map[string]any{"correct": json.Number("1.5")})},
			message: `Item 1: "correct" index is invalid.`,
			item:    1,
			field:   "correct",
		},
		{
			name:    "correct as string",
			items:   []any{item(map[string]any{"correct": "1"})},
			message: `Item 1: "correct" index is invalid.`,
			item:    1,
			field:   "correct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.message, verr.Message)
			assert.Equal(t, tt.item, verr.Item)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateDefaultsHint(t *testing.T) {
	obj := item(map[string]any{"hint": nil})
	require.NoError(t, Validate([]any{obj}))
	assert.Equal(t, "", obj["hint"])

	qs, err := Decode([]any{item(map[string]any{"hint": nil})})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "", qs[0].Hint)
}

func TestDecodeBuildsQuestions(t *testing.T) {
	items, err := DecodeArray(`[{"question": "2+2?", "options": ["3", "4"], "correct": 1, "explanation": "math"}]`)
	require.NoError(t, err)

	qs, err := Decode(items)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, Question{
		Question:    "2+2?",
		Options:     []string{"3", "4"},
		Correct:     1,
		Explanation: "math",
	}, qs[0])
	assert.Equal(t, "4", qs[0].CorrectText())
}

func TestStableIDIgnoresPosition(t *testing.T) {
	demo := DemoQuestions()
	ids := make([]string, len(demo))
	for i, q := range demo {
		ids[i] = StableID(q)
		assert.Regexp(t, `^q_[0-9a-f]{8}$`, ids[i])
	}

	reversed := CloneAll(demo)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	AssignIDs(reversed)
	for i, q := range reversed {
		assert.Equal(t, ids[len(ids)-1-i], q.ID)
	}

	changed := demo[0].Clone()
	changed.Correct = 2
	assert.NotEqual(t, ids[0], StableID(changed))
}

func TestBuildPromptMentionsCountAndMaterial(t *testing.T) {
	p := BuildPrompt("Photosynthesis converts light into chemical energy.", 7)
	assert.Contains(t, p, "create 7 multiple-choice questions")
	assert.Contains(t, p, "2) Create 7 multiple-choice questions")
	assert.Contains(t, p, "---\nPhotosynthesis converts light into chemical energy.\n---")
	assert.Contains(t, p, "same language as the materials")
	assert.Contains(t, p, `"correct": 1`)
	assert.Contains(t, p, "Provide ONLY the JSON array.")
}
