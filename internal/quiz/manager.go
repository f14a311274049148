package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/audio"
	"github.com/knowledgequest/quiz-engine/internal/metrics"
	"github.com/knowledgequest/quiz-engine/internal/question"
)

// Obtainer resolves raw input into a question set (implemented by question.Service).
type Obtainer interface {
	Obtain(ctx context.Context, req question.ObtainRequest) (question.Outcome, error)
}

// AudioQueue accepts background narration jobs (implemented by audio.Worker).
type AudioQueue interface {
	Enqueue(job audio.Job) bool
}

// Notifier is told about every state change of a session.
type Notifier func(sessionID string, v View)

var ErrNoObtainer = errors.New("quiz: question service not configured")

// StartRequest is a "start quiz" action from a client.
type StartRequest struct {
	Input string        `json:"input"`
	Count int           `json:"count"`
	Model string        `json:"model"`
	Audio audio.Options `json:"audio"`
}

type entry struct {
	mu       sync.Mutex
	session  *Session
	topic    uint64
	lastSeen time.Time
}

// Manager owns every live session, serializing access per session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	questions Obtainer
	audio     AudioQueue
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	notifyMu sync.RWMutex
	notify   Notifier

	newSession func() *Session
	now        func() time.Time
}

func NewManager(questions Obtainer, queue AudioQueue, m *metrics.Metrics, logger zerolog.Logger, opts ...Option) *Manager {
	return &Manager{
		sessions:   make(map[string]*entry),
		questions:  questions,
		audio:      queue,
		metrics:    m,
		logger:     logger.With().Str("component", "quiz_manager").Logger(),
		newSession: func() *Session { return NewSession(opts...) },
		now:        time.Now,
	}
}

// SetNotifier installs the state-change hook.
func (m *Manager) SetNotifier(fn Notifier) {
	m.notifyMu.Lock()
	m.notify = fn
	m.notifyMu.Unlock()
}

// NewID mints an id for a browser that has none.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

func (m *Manager) get(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		e = &entry{session: m.newSession()}
		m.sessions[id] = e
	}
	e.lastSeen = m.now()
	return e
}

// View returns the current snapshot, creating an empty session if needed.
func (m *Manager) View(id string) View {
	e := m.get(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Snapshot()
}

// Start obtains questions for req and begins a new topic. The question
// service runs without holding the session lock.
func (m *Manager) Start(ctx context.Context, id string, req StartRequest) (question.Outcome, View, error) {
	if m.questions == nil {
		return question.Outcome{}, View{}, ErrNoObtainer
	}
	out, err := m.questions.Obtain(ctx, question.ObtainRequest{
		Input: req.Input,
		Count: req.Count,
		Model: req.Model,
	})
	if err != nil {
		m.metrics.ObserveTransition("start", err)
		return question.Outcome{}, View{}, err
	}

	e := m.get(id)
	e.mu.Lock()
	err = e.session.Start(out.Questions)
	m.metrics.ObserveTransition("start", err)
	if err != nil {
		e.mu.Unlock()
		return out, View{}, err
	}
	e.topic++
	if req.Audio.Any() && m.audio != nil {
		m.queueAudio(id, e, req.Audio)
	}
	v := e.session.Snapshot()
	e.mu.Unlock()

	m.logger.Info().
		Str("session_id", id).
		Str("source", string(out.Source)).
		Int("questions", len(out.Questions)).
		Bool("audio", req.Audio.Any()).
		Msg("quiz started")
	m.publish(id, v)
	return out, v, nil
}

// queueAudio must be called with e.mu held.
func (m *Manager) queueAudio(id string, e *entry, opts audio.Options) {
	topic := e.topic
	job := audio.Job{
		SessionID: id,
		Questions: e.session.Original(),
		Existing:  e.session.Audio(),
		Options:   opts,
		Done: func(urls audio.URLs) {
			m.deliverAudio(id, topic, urls)
		},
	}
	if m.audio.Enqueue(job) {
		e.session.SetAudioPending(true)
	}
}

func (m *Manager) deliverAudio(id string, topic uint64, urls audio.URLs) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.topic != topic {
		e.mu.Unlock()
		m.logger.Debug().Str("session_id", id).Msg("discarding audio for a replaced topic")
		return
	}
	e.session.MergeAudio(urls)
	e.session.SetAudioPending(false)
	v := e.session.Snapshot()
	e.mu.Unlock()

	m.publish(id, v)
}

// Apply runs one named transition under the session lock, records it
// and publishes the new state when it succeeds.
func (m *Manager) Apply(id, name string, fn func(*Session) error) (View, error) {
	e := m.get(id)
	e.mu.Lock()
	err := fn(e.session)
	if err == nil && name == "new_topic" {
		e.topic++
	}
	v := e.session.Snapshot()
	e.mu.Unlock()

	m.metrics.ObserveTransition(name, err)
	if err != nil {
		m.logger.Debug().Err(err).Str("session_id", id).Str("transition", name).Msg("transition rejected")
		return v, err
	}
	m.publish(id, v)
	return v, nil
}

func (m *Manager) Answer(id, questionID string, selected int) (AnswerRecord, View, error) {
	var rec AnswerRecord
	v, err := m.Apply(id, "answer", func(s *Session) error {
		var err error
		rec, err = s.Answer(questionID, selected)
		return err
	})
	return rec, v, err
}

func (m *Manager) Next(id string) (View, error) {
	return m.Apply(id, "next", (*Session).Next)
}

func (m *Manager) Back(id string) (View, error) {
	return m.Apply(id, "back", (*Session).Back)
}

func (m *Manager) Finish(id string) (View, error) {
	return m.Apply(id, "finish", func(s *Session) error {
		_, err := s.Finish()
		return err
	})
}

func (m *Manager) RetryAll(id string) (View, error) {
	return m.Apply(id, "retry", (*Session).RetryAll)
}

func (m *Manager) RedoIncorrect(id string) (View, error) {
	return m.Apply(id, "redo", (*Session).RedoIncorrect)
}

func (m *Manager) NewTopic(id string) (View, error) {
	return m.Apply(id, "new_topic", func(s *Session) error {
		s.NewTopic()
		return nil
	})
}

func (m *Manager) EnterRevision(id string) (View, error) {
	return m.Apply(id, "revision_enter", (*Session).EnterRevision)
}

func (m *Manager) RevisionNext(id string) (View, error) {
	return m.Apply(id, "revision_next", (*Session).RevisionNext)
}

func (m *Manager) RevisionPrevious(id string) (View, error) {
	return m.Apply(id, "revision_previous", (*Session).RevisionPrevious)
}

func (m *Manager) ExitRevision(id string) (View, error) {
	return m.Apply(id, "revision_exit", (*Session).ExitRevision)
}

func (m *Manager) publish(id string, v View) {
	m.notifyMu.RLock()
	fn := m.notify
	m.notifyMu.RUnlock()
	if fn != nil {
		fn(id, v)
	}
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions not touched for maxIdle and reports how many went.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
