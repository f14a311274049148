package quiz

import "github.com/knowledgequest/quiz-engine/internal/question"

// View is the render-ready snapshot of a session sent to clients.
type View struct {
	State     State   `json:"state"`
	Redo      bool    `json:"redo"`
	Index     int     `json:"index"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Progress  float64 `json:"progress"`

	Current  *QuestionView `json:"current,omitempty"`
	Result   *Result       `json:"result,omitempty"`
	Revision *RevisionView `json:"revision,omitempty"`
	History  []Result      `json:"history,omitempty"`

	IncorrectCount int  `json:"incorrect_count"`
	AudioPending   bool `json:"audio_pending"`

	CanBack   bool `json:"can_back"`
	CanNext   bool `json:"can_next"`
	CanFinish bool `json:"can_finish"`
	CanRetry  bool `json:"can_retry"`
	CanRedo   bool `json:"can_redo"`
	CanReview bool `json:"can_review"`
}

// QuestionView hides the answer until the question has been answered.
type QuestionView struct {
	ID       string                    `json:"id"`
	Question string                    `json:"question"`
	Options  []question.ShuffledOption `json:"options"`

	Answer       *AnswerRecord `json:"answer,omitempty"`
	CorrectIndex *int          `json:"correct_index,omitempty"`
	// Hint follows a wrong answer, Explanation a right one.
	Hint        string `json:"hint,omitempty"`
	Explanation string `json:"explanation,omitempty"`

	QuestionAudio string `json:"question_audio,omitempty"`
	AnswerAudio   string `json:"answer_audio,omitempty"`
}

type RevisionView struct {
	Index         int    `json:"index"`
	Total         int    `json:"total"`
	ID            string `json:"id"`
	Question      string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	QuestionAudio string `json:"question_audio,omitempty"`
	AnswerAudio   string `json:"answer_audio,omitempty"`
	CanPrevious   bool   `json:"can_previous"`
	CanNext       bool   `json:"can_next"`
}

// Snapshot builds the View. It draws the option permutation for the
// current question if none exists yet.
func (s *Session) Snapshot() View {
	v := View{
		State:          s.state,
		Redo:           s.redo,
		Index:          s.current,
		Total:          len(s.working),
		Completed:      s.completed,
		History:        s.History(),
		IncorrectCount: len(s.incorrect),
		AudioPending:   s.audioPending,
		CanBack:        s.CanBack(),
		CanNext:        s.CanNext(),
		CanFinish:      s.CanFinish(),
		CanRetry:       s.CanRetry(),
		CanRedo:        s.CanRedo(),
		CanReview:      s.CanReview(),
	}
	if v.Total > 0 {
		v.Progress = float64(s.completed) / float64(v.Total)
	}
	if s.result != nil {
		res := *s.result
		v.Result = &res
	}

	if s.state == StateInProgress && s.current < len(s.working) {
		v.Current = s.questionView(s.current)
	}
	if q, step, ok := s.RevisionQuestion(); ok {
		v.Revision = &RevisionView{
			Index:         step,
			Total:         len(s.revisionIDs),
			ID:            q.ID,
			Question:      q.Question,
			CorrectAnswer: q.CorrectText(),
			Explanation:   q.Explanation,
			QuestionAudio: s.audio.Questions[q.ID],
			AnswerAudio:   s.audio.Answers[q.ID],
			CanPrevious:   step > 0,
			CanNext:       step < len(s.revisionIDs)-1,
		}
	}
	return v
}

func (s *Session) questionView(i int) *QuestionView {
	q := s.working[i]
	opts, _ := s.DisplayOptions(i)
	qv := &QuestionView{
		ID:            q.ID,
		Question:      q.Question,
		Options:       opts,
		QuestionAudio: s.audio.Questions[q.ID],
	}
	if rec, ok := s.answers[q.ID]; ok {
		r := rec
		correct := q.Correct
		qv.Answer = &r
		qv.CorrectIndex = &correct
		qv.AnswerAudio = s.audio.Answers[q.ID]
		if rec.IsCorrect {
			qv.Explanation = q.Explanation
		} else {
			qv.Hint = q.Hint
		}
	}
	return qv
}
