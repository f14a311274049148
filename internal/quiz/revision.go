package quiz

import "github.com/knowledgequest/quiz-engine/internal/question"

// EnterRevision browses the questions answered wrongly in the finished
// attempt, in original order.
func (s *Session) EnterRevision() error {
	if s.state != StateFinished {
		return ErrNotFinished
	}
	ids := s.IncorrectIDs()
	if len(ids) == 0 {
		return ErrNoIncorrect
	}
	s.revising = true
	s.revisionIDs = ids
	s.revisionStep = 0
	return nil
}

func (s *Session) RevisionNext() error {
	if !s.revising {
		return ErrNotInRevision
	}
	if s.revisionStep < len(s.revisionIDs)-1 {
		s.revisionStep++
	}
	return nil
}

func (s *Session) RevisionPrevious() error {
	if !s.revising {
		return ErrNotInRevision
	}
	if s.revisionStep > 0 {
		s.revisionStep--
	}
	return nil
}

// ExitRevision returns to the summary.
func (s *Session) ExitRevision() error {
	if !s.revising {
		return ErrNotInRevision
	}
	s.revising = false
	s.revisionIDs = nil
	s.revisionStep = 0
	return nil
}

// RevisionQuestion is the question under the revision cursor.
func (s *Session) RevisionQuestion() (question.Question, int, bool) {
	if !s.revising || len(s.revisionIDs) == 0 {
		return question.Question{}, 0, false
	}
	id := s.revisionIDs[s.revisionStep]
	for _, q := range s.original {
		if q.ID == id {
			return q.Clone(), s.revisionStep, true
		}
	}
	return question.Question{}, 0, false
}
