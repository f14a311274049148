package quiz

import (
	"math"
	"time"
)

// Result summarizes a finished attempt.
type Result struct {
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	Score      int       `json:"score"`
	Message    string    `json:"message"`
	Redo       bool      `json:"redo"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewResult(correct, total int, at time.Time) Result {
	score := Score(correct, total)
	return Result{
		Correct:    correct,
		Total:      total,
		Score:      score,
		Message:    Message(score),
		FinishedAt: at.UTC(),
	}
}

// Score is the rounded percentage of correct answers. Halves round to even.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(100 * float64(correct) / float64(total)))
}

func Message(score int) string {
	switch {
	case score >= 100:
		return "Perfect score!"
	case score >= 80:
		return "Excellent work!"
	case score >= 60:
		return "Well done!"
	default:
		return "Good effort!"
	}
}
