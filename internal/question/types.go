package question

// Source tells which path of the orchestrator produced a question set.
type Source string

const (
	SourceDirectJSON Source = "direct_json"
	SourceGenerated  Source = "generated"
	SourceDemo       Source = "demo"
)

// Question is the canonical, validated multiple-choice item.
type Question struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Hint        string   `json:"hint"`
	Explanation string   `json:"explanation"`

	// ShuffledOptions is only ever set on a working copy during an attempt.
	ShuffledOptions []ShuffledOption `json:"shuffled_options,omitempty"`
}

// ShuffledOption pairs a display position with the option's canonical index.
type ShuffledOption struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Clone returns a deep copy, so callers can mutate it freely.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	if q.ShuffledOptions != nil {
		out.ShuffledOptions = append([]ShuffledOption(nil), q.ShuffledOptions...)
	}
	return out
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() string {
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ""
	}
	return q.Options[q.Correct]
}

// CloneAll deep-copies a question slice.
func CloneAll(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

// ObtainRequest is one "start quiz" action.
type ObtainRequest struct {
	Input string
	Count int
	Model string
}

// Outcome is what the orchestrator hands back to the caller.
type Outcome struct {
	Questions []Question `json:"questions"`
	Source    Source     `json:"source"`
	Requested int        `json:"requested"`
	// Warnings are non-fatal problems: partial generation, fallback reasons.
	Warnings []string `json:"warnings,omitempty"`
	// Notices are informational, e.g. input truncation.
	Notices []string `json:"notices,omitempty"`
	// RawResponse is kept when the model output could not be used.
	RawResponse string `json:"raw_response,omitempty"`
}
