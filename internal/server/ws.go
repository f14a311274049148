package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/quiz"
	httperrors "github.com/knowledgequest/quiz-engine/pkg/http/errors"
	"github.com/knowledgequest/quiz-engine/pkg/http/ws"
)

// SocketHandler streams quiz state over /ws/quiz and accepts the same
// transitions as the REST routes.
type SocketHandler struct {
	manager  *quiz.Manager
	hub      *ws.Hub
	sessions *Sessions
	logger   zerolog.Logger
}

func NewSocketHandler(manager *quiz.Manager, hub *ws.Hub, sessions *Sessions, logger zerolog.Logger) *SocketHandler {
	return &SocketHandler{
		manager:  manager,
		hub:      hub,
		sessions: sessions,
		logger:   logger.With().Str("component", "quiz_ws").Logger(),
	}
}

// Notify is installed as the manager's notifier.
func (h *SocketHandler) Notify(sessionID string, v quiz.View) {
	msg, err := ws.NewMessage(ws.TypeQuizState, v)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode quiz state")
		return
	}
	if err := h.hub.Publish(sessionID, msg); err != nil && !errors.Is(err, ws.ErrNoSubscribers) {
		h.logger.Debug().Err(err).Str("session_id", sessionID).Msg("quiz state not delivered")
	}
}

// HandleWebSocket handles GET /ws/quiz
func (h *SocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessions.ID(w, r)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve session cookie")
		httperrors.RespondInternalError(w, "could not establish a session")
		return
	}

	// A freshly issued cookie rides on the upgrade response.
	conn, err := WSUpgrader.Upgrade(w, r, w.Header())
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := ws.NewConnection(conn, h.logger.With().Str("session_id", id).Logger())
	h.hub.Register(id, c)
	defer h.hub.Unregister(id, c)
	go c.WritePump()

	h.sendState(c, id, "")
	c.ReadPump(func(msg ws.Message) error {
		return h.dispatch(c, id, msg)
	})
}

func (h *SocketHandler) transitions() map[string]transition {
	return map[string]transition{
		ws.TypeNext:             h.manager.Next,
		ws.TypeBack:             h.manager.Back,
		ws.TypeFinish:           h.manager.Finish,
		ws.TypeRetry:            h.manager.RetryAll,
		ws.TypeRedo:             h.manager.RedoIncorrect,
		ws.TypeNewTopic:         h.manager.NewTopic,
		ws.TypeRevisionEnter:    h.manager.EnterRevision,
		ws.TypeRevisionNext:     h.manager.RevisionNext,
		ws.TypeRevisionPrevious: h.manager.RevisionPrevious,
		ws.TypeRevisionExit:     h.manager.ExitRevision,
	}
}

// dispatch applies one client message. Successful transitions reach
// every tab through Notify, so only failures are answered directly.
func (h *SocketHandler) dispatch(c *ws.Connection, id string, msg ws.Message) error {
	switch msg.Type {
	case ws.TypePing:
		return c.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	case ws.TypeRequestState:
		h.sendState(c, id, msg.RequestID)
		return nil
	case ws.TypeAnswer:
		var p ws.AnswerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.QuestionID == "" {
			return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "answer needs question_id and selected")
		}
		if _, _, err := h.manager.Answer(id, p.QuestionID, p.Selected); err != nil {
			_, code := errorCode(err)
			return h.sendError(c, msg.RequestID, code, err.Error())
		}
		return nil
	}

	fn, ok := h.transitions()[msg.Type]
	if !ok {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeUnknownMessageType, "unknown message type: "+msg.Type)
	}
	if _, err := fn(id); err != nil {
		_, code := errorCode(err)
		return h.sendError(c, msg.RequestID, code, err.Error())
	}
	return nil
}

func (h *SocketHandler) sendState(c *ws.Connection, id, requestID string) {
	msg, err := ws.NewMessage(ws.TypeQuizState, h.manager.View(id))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode quiz state")
		return
	}
	msg.RequestID = requestID
	if err := c.Send(msg); err != nil {
		h.logger.Debug().Err(err).Str("session_id", id).Msg("initial state not delivered")
	}
}

func (h *SocketHandler) sendError(c *ws.Connection, requestID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return c.Send(msg)
}
