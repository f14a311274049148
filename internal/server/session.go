package server

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/knowledgequest/quiz-engine/internal/config"
)

const quizIDKey = "quiz_id"

// Sessions binds a browser cookie to a quiz session id.
type Sessions struct {
	store sessions.Store
	name  string
	newID func() string
}

func NewSessions(cfg config.Session, newID func() string) *Sessions {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxIdle.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, name: cfg.CookieName, newID: newID}
}

// ID returns the quiz session id for the request, issuing a fresh one
// (and its cookie) when the browser has none or sent an unreadable one.
func (s *Sessions) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := s.store.Get(r, s.name)
	if sess == nil {
		return "", err
	}
	if id, ok := sess.Values[quizIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := s.newID()
	sess.Values[quizIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}
