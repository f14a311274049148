package audio

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/knowledgequest/quiz-engine/internal/metrics"
	"github.com/knowledgequest/quiz-engine/internal/question"
)

// URLs holds narration links keyed by question id.
type URLs struct {
	Questions map[string]string `json:"questions"`
	Answers   map[string]string `json:"answers"`
}

func NewURLs() URLs {
	return URLs{Questions: map[string]string{}, Answers: map[string]string{}}
}

func (u URLs) Clone() URLs {
	out := NewURLs()
	for id, v := range u.Questions {
		out.Questions[id] = v
	}
	for id, v := range u.Answers {
		out.Answers[id] = v
	}
	return out
}

// Len is the total number of stored links.
func (u URLs) Len() int { return len(u.Questions) + len(u.Answers) }

// Synthesizer turns text into a playable URL. An empty URL with a nil
// error means the service produced nothing usable.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Options selects which narrations to produce.
type Options struct {
	Question bool `json:"question"`
	Answer   bool `json:"answer"`
}

func (o Options) Any() bool { return o.Question || o.Answer }

type task struct {
	id     string
	text   string
	answer bool
}

// Annotator attaches narration URLs to a question set. Failures are
// logged and skipped; they never fail the caller.
type Annotator struct {
	tts         Synthesizer
	concurrency int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewAnnotator(tts Synthesizer, concurrency int, m *metrics.Metrics, logger zerolog.Logger) *Annotator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Annotator{
		tts:         tts,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger.With().Str("component", "audio_annotator").Logger(),
	}
}

// Annotate fills urls with narration for qs and returns how many links
// were added. Existing entries are not regenerated.
func (a *Annotator) Annotate(ctx context.Context, qs []question.Question, urls *URLs, opts Options) int {
	if a == nil || a.tts == nil || !opts.Any() || len(qs) == 0 {
		return 0
	}
	if urls.Questions == nil || urls.Answers == nil {
		*urls = urls.Clone()
	}

	tasks := plan(qs, *urls, opts)
	if len(tasks) == 0 {
		return 0
	}

	var (
		mu    sync.Mutex
		added int
	)
	store := func(t task, link string) {
		mu.Lock()
		defer mu.Unlock()
		if t.answer {
			urls.Answers[t.id] = link
		} else {
			urls.Questions[t.id] = link
		}
		added++
	}

	if a.concurrency == 1 {
		for _, t := range tasks {
			if ctx.Err() != nil {
				break
			}
			if link, ok := a.run(ctx, t); ok {
				store(t, link)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.concurrency)
		for _, t := range tasks {
			t := t
			g.Go(func() error {
				if link, ok := a.run(gctx, t); ok {
					store(t, link)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	a.logger.Info().Int("tasks", len(tasks)).Int("added", added).Msg("audio annotation finished")
	return added
}

func plan(qs []question.Question, urls URLs, opts Options) []task {
	var tasks []task
	for _, q := range qs {
		if q.ID == "" {
			continue
		}
		if opts.Question {
			if _, ok := urls.Questions[q.ID]; !ok {
				tasks = append(tasks, task{id: q.ID, text: q.Question})
			}
		}
		if opts.Answer {
			if _, ok := urls.Answers[q.ID]; !ok {
				tasks = append(tasks, task{id: q.ID, text: "The correct answer is: " + q.CorrectText(), answer: true})
			}
		}
	}
	return tasks
}

func (a *Annotator) run(ctx context.Context, t task) (string, bool) {
	link, err := a.tts.Synthesize(ctx, t.text)
	switch {
	case err != nil:
		a.metrics.ObserveTTS("error")
		a.logger.Warn().Err(err).Str("question_id", t.id).Bool("answer", t.answer).Msg("narration failed")
		return "", false
	case link == "":
		a.metrics.ObserveTTS("empty")
		a.logger.Debug().Str("question_id", t.id).Bool("answer", t.answer).Msg("narration returned no url")
		return "", false
	default:
		a.metrics.ObserveTTS("ok")
		return link, true
	}
}
