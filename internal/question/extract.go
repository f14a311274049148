package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoJSON means model output contained no array or object at all.
var ErrNoJSON = errors.New("no JSON structure found")

var fencePattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// Extract pulls the most plausible JSON text out of raw model output.
// Fenced blocks win; then the outermost array; then the outermost object
// when it is clearly the more complete match.
func Extract(raw string) (string, bool) {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	arr, hasArr := arrayCandidate(raw)
	obj, hasObj := objectCandidate(raw)

	switch {
	case hasObj && (!hasArr || (obj.len() > arr.len() && obj.start < arr.start)):
		return raw[obj.start:obj.end], true
	case hasArr:
		return raw[arr.start:arr.end], true
	}
	return "", false
}

// arrayCandidate spans the first '[' to the last ']'. When the text was
// cut off (no closing bracket, or object text trailing the last one) the
// candidate runs to the end so ParsePartial can salvage the prefix.
func arrayCandidate(raw string) (span, bool) {
	start := strings.IndexByte(raw, '[')
	if start < 0 {
		return span{}, false
	}
	end := strings.LastIndexByte(raw, ']')
	if end > start && !strings.ContainsRune(raw[end+1:], '{') {
		inner := raw[start : end+1]
		if strings.ContainsRune(inner, '{') && strings.ContainsRune(inner, '}') {
			return span{start, end + 1}, true
		}
		return span{}, false
	}
	if strings.ContainsRune(raw[start:], '{') {
		return span{start, len(raw)}, true
	}
	return span{}, false
}

func objectCandidate(raw string) (span, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return span{}, false
	}
	return span{start, end + 1}, true
}

// ParsePartial recovers as many complete top-level objects as possible
// from a JSON array that may be truncated. A well-formed array is
// returned verbatim.
func ParsePartial(candidate string) []any {
	text := strings.TrimSpace(candidate)
	if text == "" {
		return nil
	}
	if items, err := DecodeArray(text); err == nil {
		return items
	}
	if !strings.HasPrefix(text, "[") {
		return nil
	}

	var (
		out      []any
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if obj, err := decodeObject(text[start : i+1]); err == nil {
					out = append(out, obj)
				}
			}
		}
	}
	return out
}

// DecodeArray strictly decodes text as one JSON array. Numbers are kept
// as json.Number so integer checks stay exact.
func DecodeArray(text string) ([]any, error) {
	v, err := decodeValue(text)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %T", v)
	}
	return items, nil
}

func decodeObject(text string) (map[string]any, error) {
	v, err := decodeValue(text)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return obj, nil
}

func decodeValue(text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}
