package quiz

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/knowledgequest/quiz-engine/internal/audio"
	"github.com/knowledgequest/quiz-engine/internal/question"
)

// State is the coarse lifecycle of a session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
)

var (
	ErrNoQuestions      = errors.New("quiz: no questions to start with")
	ErrNotStarted       = errors.New("quiz: no topic loaded")
	ErrNotInProgress    = errors.New("quiz: no attempt in progress")
	ErrNotFinished      = errors.New("quiz: attempt is not finished")
	ErrUnknownQuestion  = errors.New("quiz: question is not part of this attempt")
	ErrOptionOutOfRange = errors.New("quiz: option index out of range")
	ErrUnanswered       = errors.New("quiz: question has not been answered yet")
	ErrNoIncorrect      = errors.New("quiz: no incorrect questions")
	ErrNotInRevision    = errors.New("quiz: not in revision mode")
)

// AnswerRecord is the first answer given to a question in an attempt.
type AnswerRecord struct {
	Selected  int  `json:"selected"`
	IsCorrect bool `json:"is_correct"`
	FirstTry  bool `json:"first_try"`
}

// Session is one learner's in-memory quiz state for a topic. It is not
// safe for concurrent use; Manager serializes access.
type Session struct {
	state    State
	working  []question.Question
	original []question.Question
	current  int

	completed int
	answers   map[string]AnswerRecord
	incorrect map[string]struct{}
	redo      bool

	revising     bool
	revisionIDs  []string
	revisionStep int

	result  *Result
	history []Result

	audio        audio.URLs
	audioPending bool

	rng *rand.Rand
	now func() time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithRand fixes the random source, mostly for tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.NewTopic()
	return s
}

// Start establishes a new topic from questions: ids are assigned, the
// order is shuffled and snapshotted as the canonical original set.
func (s *Session) Start(qs []question.Question) error {
	if len(qs) == 0 {
		return ErrNoQuestions
	}
	s.NewTopic()
	working := prepare(qs)
	s.shuffle(working)
	s.original = question.CloneAll(working)
	s.begin(working, false)
	return nil
}

// prepare deep-copies qs for an attempt, dropping any option permutation
// and assigning content ids.
func prepare(qs []question.Question) []question.Question {
	working := question.CloneAll(qs)
	for i := range working {
		working[i].ShuffledOptions = nil
	}
	question.AssignIDs(working)
	return working
}

// begin resets the attempt and installs working. The original set is
// never touched here; only Start snapshots it.
func (s *Session) begin(working []question.Question, redo bool) {
	s.resetAttempt()
	s.working = working
	s.redo = redo
}

func (s *Session) resetAttempt() {
	s.state = StateInProgress
	s.current = 0
	s.completed = 0
	s.answers = make(map[string]AnswerRecord)
	s.incorrect = make(map[string]struct{})
	s.redo = false
	s.result = nil
	s.revising = false
	s.revisionIDs = nil
	s.revisionStep = 0
}

func (s *Session) shuffle(qs []question.Question) {
	s.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

// NewTopic discards everything and returns to NotStarted.
func (s *Session) NewTopic() {
	s.state = StateNotStarted
	s.working = nil
	s.original = nil
	s.current = 0
	s.completed = 0
	s.answers = make(map[string]AnswerRecord)
	s.incorrect = make(map[string]struct{})
	s.redo = false
	s.revising = false
	s.revisionIDs = nil
	s.revisionStep = 0
	s.result = nil
	s.history = nil
	s.audio = audio.NewURLs()
	s.audioPending = false
}

// Answer records the first answer for id. Answering again is a no-op
// that returns the original record.
func (s *Session) Answer(id string, selected int) (AnswerRecord, error) {
	if s.state != StateInProgress {
		return AnswerRecord{}, ErrNotInProgress
	}
	q, ok := s.find(id)
	if !ok {
		return AnswerRecord{}, ErrUnknownQuestion
	}
	if rec, done := s.answers[id]; done {
		return rec, nil
	}
	if selected < 0 || selected >= len(q.Options) {
		return AnswerRecord{}, ErrOptionOutOfRange
	}

	rec := AnswerRecord{
		Selected:  selected,
		IsCorrect: selected == q.Correct,
		FirstTry:  true,
	}
	s.answers[id] = rec
	s.completed++
	if !rec.IsCorrect {
		s.incorrect[id] = struct{}{}
	}
	return rec, nil
}

// Next moves forward once the current question is answered. It does
// nothing on the last question; use Finish there.
func (s *Session) Next() error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if !s.answered(s.current) {
		return ErrUnanswered
	}
	if s.current < len(s.working)-1 {
		s.current++
	}
	return nil
}

// Back moves to the previous question; no-op at the first one.
func (s *Session) Back() error {
	if s.state != StateInProgress {
		return ErrNotInProgress
	}
	if s.current > 0 {
		s.current--
	}
	return nil
}

// Finish closes the attempt once the last question has an answer.
func (s *Session) Finish() (Result, error) {
	if s.state != StateInProgress {
		return Result{}, ErrNotInProgress
	}
	if !s.answered(len(s.working) - 1) {
		return Result{}, ErrUnanswered
	}

	correct := 0
	for _, rec := range s.answers {
		if rec.IsCorrect {
			correct++
		}
	}
	res := NewResult(correct, len(s.working), s.now())
	res.Redo = s.redo

	s.state = StateFinished
	s.current = len(s.working)
	s.result = &res
	s.history = append(s.history, res)
	return res, nil
}

// RetryAll starts a fresh attempt over a reshuffled copy of the original set.
func (s *Session) RetryAll() error {
	if s.state == StateNotStarted || len(s.original) == 0 {
		return ErrNotStarted
	}
	working := prepare(s.original)
	s.shuffle(working)
	s.begin(working, false)
	return nil
}

// RedoIncorrect starts an attempt over the questions answered wrongly,
// kept in original order.
func (s *Session) RedoIncorrect() error {
	if s.state == StateNotStarted {
		return ErrNotStarted
	}
	if len(s.incorrect) == 0 {
		return ErrNoIncorrect
	}
	wrong := make(map[string]struct{}, len(s.incorrect))
	for id := range s.incorrect {
		wrong[id] = struct{}{}
	}

	subset := make([]question.Question, 0, len(wrong))
	for _, q := range s.original {
		if _, ok := wrong[q.ID]; ok {
			subset = append(subset, q)
		}
	}
	s.begin(prepare(subset), true)
	return nil
}

// DisplayOptions returns the option order shown for working question i.
// The permutation is drawn once per attempt and cached on the working copy.
func (s *Session) DisplayOptions(i int) ([]question.ShuffledOption, error) {
	if i < 0 || i >= len(s.working) {
		return nil, ErrUnknownQuestion
	}
	q := &s.working[i]
	if q.ShuffledOptions == nil {
		opts := make([]question.ShuffledOption, len(q.Options))
		for idx, text := range q.Options {
			opts[idx] = question.ShuffledOption{Index: idx, Text: text}
		}
		s.rng.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		q.ShuffledOptions = opts
	}
	return append([]question.ShuffledOption(nil), q.ShuffledOptions...), nil
}

func (s *Session) find(id string) (question.Question, bool) {
	for _, q := range s.working {
		if q.ID == id {
			return q, true
		}
	}
	return question.Question{}, false
}

func (s *Session) answered(i int) bool {
	if i < 0 || i >= len(s.working) {
		return false
	}
	_, ok := s.answers[s.working[i].ID]
	return ok
}

// Precondition checks, so callers can disable actions up front.

func (s *Session) CanBack() bool {
	return s.state == StateInProgress && s.current > 0
}

func (s *Session) CanNext() bool {
	return s.state == StateInProgress && s.current < len(s.working)-1 && s.answered(s.current)
}

func (s *Session) CanFinish() bool {
	return s.state == StateInProgress && s.answered(len(s.working)-1)
}

func (s *Session) CanRetry() bool {
	return s.state != StateNotStarted && len(s.original) > 0
}

func (s *Session) CanRedo() bool {
	return s.state != StateNotStarted && len(s.incorrect) > 0
}

func (s *Session) CanReview() bool {
	return s.state == StateFinished && !s.revising && len(s.incorrect) > 0
}

// Accessors return copies.

func (s *Session) State() State       { return s.state }
func (s *Session) CurrentIndex() int  { return s.current }
func (s *Session) Completed() int     { return s.completed }
func (s *Session) Redoing() bool      { return s.redo }
func (s *Session) Revising() bool     { return s.revising }
func (s *Session) History() []Result  { return append([]Result(nil), s.history...) }
func (s *Session) Audio() audio.URLs  { return s.audio.Clone() }
func (s *Session) AudioPending() bool { return s.audioPending }

func (s *Session) Working() []question.Question  { return question.CloneAll(s.working) }
func (s *Session) Original() []question.Question { return question.CloneAll(s.original) }

func (s *Session) Answers() map[string]AnswerRecord {
	out := make(map[string]AnswerRecord, len(s.answers))
	for id, rec := range s.answers {
		out[id] = rec
	}
	return out
}

// IncorrectIDs lists incorrectly answered ids in original order.
func (s *Session) IncorrectIDs() []string {
	ids := make([]string, 0, len(s.incorrect))
	for _, q := range s.original {
		if _, ok := s.incorrect[q.ID]; ok {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// SetAudioPending marks narration as being generated in the background.
func (s *Session) SetAudioPending(pending bool) { s.audioPending = pending }

// MergeAudio adds narration URLs for questions that still belong to the topic.
func (s *Session) MergeAudio(urls audio.URLs) {
	known := make(map[string]struct{}, len(s.original))
	for _, q := range s.original {
		known[q.ID] = struct{}{}
	}
	for id, u := range urls.Questions {
		if _, ok := known[id]; ok {
			s.audio.Questions[id] = u
		}
	}
	for id, u := range urls.Answers {
		if _, ok := known[id]; ok {
			s.audio.Answers[id] = u
		}
	}
}
