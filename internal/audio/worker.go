package audio

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/question"
)

// Job asks for narration of one session's questions. Done receives the
// links produced, which may be fewer than requested.
type Job struct {
	SessionID string
	Questions []question.Question
	Existing  URLs
	Options   Options
	Done      func(URLs)
}

// Worker runs annotation jobs off the request path so starting a quiz
// never waits on speech synthesis.
type Worker struct {
	annotator *Annotator
	queue     chan Job
	logger    zerolog.Logger
	timeout   time.Duration
}

func NewWorker(annotator *Annotator, queueSize int, timeout time.Duration, logger zerolog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Worker{
		annotator: annotator,
		queue:     make(chan Job, queueSize),
		logger:    logger.With().Str("component", "audio_worker").Logger(),
		timeout:   timeout,
	}
}

// Enqueue hands a job to the worker. It reports false when the queue is
// full and the job was dropped.
func (w *Worker) Enqueue(job Job) bool {
	select {
	case w.queue <- job:
		return true
	default:
		w.logger.Warn().Str("session_id", job.SessionID).Msg("audio queue full, job dropped")
		return false
	}
}

// Run blocks until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("audio worker stopping")
			return ctx.Err()
		case job := <-w.queue:
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	urls := job.Existing.Clone()
	added := w.annotator.Annotate(ctx, job.Questions, &urls, job.Options)
	w.logger.Debug().Str("session_id", job.SessionID).Int("added", added).Msg("audio job done")
	if job.Done != nil {
		job.Done(urls)
	}
}
