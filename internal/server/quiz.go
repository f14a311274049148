package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/question"
	"github.com/knowledgequest/quiz-engine/internal/quiz"
	httperrors "github.com/knowledgequest/quiz-engine/pkg/http/errors"
	"github.com/knowledgequest/quiz-engine/pkg/http/ws"
)

const maxBodyBytes = 4 << 20

// QuizHandlers exposes the quiz state machine of the caller's session.
type QuizHandlers struct {
	manager  *quiz.Manager
	sessions *Sessions
	logger   zerolog.Logger
}

func NewQuizHandlers(manager *quiz.Manager, sessions *Sessions, logger zerolog.Logger) *QuizHandlers {
	return &QuizHandlers{
		manager:  manager,
		sessions: sessions,
		logger:   logger.With().Str("component", "quiz_http").Logger(),
	}
}

type transition func(id string) (quiz.View, error)

func (h *QuizHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/quiz", h.GetState)
	mux.HandleFunc("POST /v1/quiz/start", h.Start)
	mux.HandleFunc("POST /v1/quiz/inspect", h.Inspect)
	mux.HandleFunc("POST /v1/quiz/answer", h.Answer)

	for path, fn := range map[string]transition{
		"next":   h.manager.Next,
		"back":   h.manager.Back,
		"finish": h.manager.Finish,
		"retry":  h.manager.RetryAll,
		"redo":   h.manager.RedoIncorrect,
		"new":    h.manager.NewTopic,

		"revision/enter":    h.manager.EnterRevision,
		"revision/next":     h.manager.RevisionNext,
		"revision/previous": h.manager.RevisionPrevious,
		"revision/exit":     h.manager.ExitRevision,
	} {
		mux.HandleFunc("POST /v1/quiz/"+path, h.transition(fn))
	}
}

// StartResponse reports how the question set was obtained alongside the new state.
type StartResponse struct {
	Source      question.Source `json:"source"`
	Requested   int             `json:"requested"`
	Generated   int             `json:"generated"`
	Warnings    []string        `json:"warnings,omitempty"`
	Notices     []string        `json:"notices,omitempty"`
	RawResponse string          `json:"raw_response,omitempty"`
	View        quiz.View       `json:"view"`
}

// GetState handles GET /v1/quiz
func (h *QuizHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.manager.View(id))
}

// Start handles POST /v1/quiz/start
func (h *QuizHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req quiz.StartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	out, view, err := h.manager.Start(r.Context(), id, req)
	if err != nil {
		h.logger.Info().Err(err).Str("session_id", id).Msg("quiz start rejected")
		respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, StartResponse{
		Source:      out.Source,
		Requested:   out.Requested,
		Generated:   len(out.Questions),
		Warnings:    out.Warnings,
		Notices:     out.Notices,
		RawResponse: out.RawResponse,
		View:        view,
	})
}

// Inspect handles POST /v1/quiz/inspect. It tells the client whether
// the pasted input will be used as a question set without generation.
func (h *QuizHandlers) Inspect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"direct_json": question.IsDirectJSON(req.Input)})
}

// Answer handles POST /v1/quiz/answer
func (h *QuizHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	var req ws.AnswerPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QuestionID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "question_id is required")
		return
	}
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	rec, view, err := h.manager.Answer(id, req.QuestionID, req.Selected)
	if err != nil {
		respondQuizError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"answer": rec, "view": view})
}

func (h *QuizHandlers) transition(fn transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.sessionID(w, r)
		if !ok {
			return
		}
		view, err := fn(id)
		if err != nil {
			respondQuizError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

func (h *QuizHandlers) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := h.sessions.ID(w, r)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to resolve session cookie")
		httperrors.RespondInternalError(w, "could not establish a session")
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperrors.RespondError(w, http.StatusRequestEntityTooLarge, httperrors.ErrCodePayloadTooLarge, "request body too large")
			return false
		}
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
