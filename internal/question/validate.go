package question

import (
	"encoding/json"
	"fmt"
	"strings"
)

var requiredFields = []string{"question", "options", "correct", "explanation"}

// ValidationError names the first item and rule that failed.
type ValidationError struct {
	// Item is 1-based; zero means the input as a whole.
	Item    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func itemError(item int, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Item:    item,
		Field:   field,
		Message: fmt.Sprintf("Item %d"+format, append([]any{item}, args...)...),
	}
}

// Validate checks candidates against the question shape, stopping at the
// first failing item. Items that pass and lack "hint" get an empty one.
func Validate(items []any) error {
	if len(items) == 0 {
		return &ValidationError{Message: "Input must be a non-empty JSON array."}
	}
	for i, raw := range items {
		n := i + 1
		obj, ok := raw.(map[string]any)
		if !ok {
			return itemError(n, "", " is not an object.")
		}
		for _, field := range requiredFields {
			if _, ok := obj[field]; !ok {
				return itemError(n, field, " is missing field: %q.", field)
			}
		}
		if text, ok := obj["question"].(string); !ok || strings.TrimSpace(text) == "" {
			return itemError(n, "question", `: "question" must be a non-empty string.`)
		}
		options, ok := obj["options"].([]any)
		if !ok || len(options) < 2 {
			return itemError(n, "options", `: "options" must be an array with at least 2 items.`)
		}
		correct, ok := asIndex(obj["correct"])
		if !ok || correct < 0 || correct >= len(options) {
			return itemError(n, "correct", `: "correct" index is invalid.`)
		}
		if _, ok := obj["hint"]; !ok {
			obj["hint"] = ""
		}
	}
	return nil
}

// Decode validates the candidates and converts them into questions.
func Decode(items []any) ([]Question, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(items))
	for _, raw := range items {
		obj := raw.(map[string]any)
		rawOptions := obj["options"].([]any)
		options := make([]string, len(rawOptions))
		for i, o := range rawOptions {
			options[i] = textOf(o)
		}
		correct, _ := asIndex(obj["correct"])
		out = append(out, Question{
			Question:    obj["question"].(string),
			Options:     options,
			Correct:     correct,
			Hint:        textOf(obj["hint"]),
			Explanation: textOf(obj["explanation"]),
		})
	}
	return out, nil
}

func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
