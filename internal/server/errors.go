package server

import (
	"errors"
	"net/http"

	"github.com/knowledgequest/quiz-engine/internal/question"
	"github.com/knowledgequest/quiz-engine/internal/quiz"
	httperrors "github.com/knowledgequest/quiz-engine/pkg/http/errors"
)

// quizConflicts maps state-machine refusals to their response codes.
var quizConflicts = []struct {
	err  error
	code string
}{
	{quiz.ErrNotStarted, httperrors.ErrCodeNotStarted},
	{quiz.ErrNotInProgress, httperrors.ErrCodeNotInProgress},
	{quiz.ErrNotFinished, httperrors.ErrCodeNotFinished},
	{quiz.ErrUnanswered, httperrors.ErrCodeUnanswered},
	{quiz.ErrNoIncorrect, httperrors.ErrCodeNoIncorrect},
	{quiz.ErrNotInRevision, httperrors.ErrCodeNotInRevision},
}

// errorCode classifies err into an HTTP status and a stable code.
func errorCode(err error) (int, string) {
	for _, c := range quizConflicts {
		if errors.Is(err, c.err) {
			return http.StatusConflict, c.code
		}
	}
	var verr *question.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, httperrors.ErrCodeValidationFailed
	case errors.Is(err, question.ErrEmptyInput):
		return http.StatusBadRequest, httperrors.ErrCodeEmptyInput
	case errors.Is(err, question.ErrInvalidJSON), errors.Is(err, question.ErrNoJSON):
		return http.StatusBadRequest, httperrors.ErrCodeInvalidJSON
	case errors.Is(err, quiz.ErrUnknownQuestion):
		return http.StatusBadRequest, httperrors.ErrCodeUnknownQuestion
	case errors.Is(err, quiz.ErrOptionOutOfRange):
		return http.StatusBadRequest, httperrors.ErrCodeOptionOutOfRange
	case errors.Is(err, quiz.ErrNoQuestions):
		return http.StatusBadRequest, httperrors.ErrCodeValidationFailed
	case errors.Is(err, quiz.ErrNoObtainer):
		return http.StatusServiceUnavailable, httperrors.ErrCodeServiceUnavailable
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError
	}
}

func respondQuizError(w http.ResponseWriter, err error) {
	var verr *question.ValidationError
	if errors.As(err, &verr) {
		httperrors.RespondValidationError(w, verr.Message, verr.Field, verr.Item)
		return
	}
	status, code := errorCode(err)
	if status == http.StatusInternalServerError {
		httperrors.RespondInternalError(w, "internal error")
		return
	}
	httperrors.RespondError(w, status, code, err.Error())
}
