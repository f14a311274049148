package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgequest/quiz-engine/internal/config"
	"github.com/knowledgequest/quiz-engine/internal/material"
	"github.com/knowledgequest/quiz-engine/internal/question"
	"github.com/knowledgequest/quiz-engine/internal/quiz"
	"github.com/knowledgequest/quiz-engine/internal/storage"
	httperrors "github.com/knowledgequest/quiz-engine/pkg/http/errors"
	"github.com/knowledgequest/quiz-engine/pkg/http/ws"
)

const twoQuestions = `[
 {"question": "Capital of France?", "options": ["Rome", "Paris", "Oslo"], "correct": 1, "hint": "Seine", "explanation": "Paris is the capital."},
 {"question": "2 + 2?", "options": ["3", "4"], "correct": 1, "explanation": "Basic arithmetic."}
]`

type testEnv struct {
	server *httptest.Server
	client *http.Client
	store  *memoryStore
}

type memoryStore struct {
	lib storage.Library
}

func (s *memoryStore) LoadAll(context.Context) (storage.Library, error) { return s.lib.Clone(), nil }
func (s *memoryStore) SaveAll(_ context.Context, lib storage.Library) error {
	s.lib = lib.Clone()
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	cfg := &config.App{Session: config.Session{CookieName: "kq-session", Secret: "test-secret", MaxIdle: time.Hour}}

	svc := question.NewService(nil, nil, nil, question.ServiceOptions{}, logger)
	manager := quiz.NewManager(svc, nil, nil, logger)
	sessions := NewSessions(cfg.Session, manager.NewID)
	hub := ws.NewHub(logger)
	socket := NewSocketHandler(manager, hub, sessions, logger)
	manager.SetNotifier(socket.Notify)

	store := &memoryStore{lib: storage.Library{}}
	srv := NewHTTPServer(cfg, logger, Handlers{
		Quiz:      NewQuizHandlers(manager, sessions, logger),
		Materials: NewMaterialHandlers(material.NewRegistry(nil, logger), store, 2, 1<<20, logger),
		Socket:    socket,
	}, prometheus.NewRegistry(), nil)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{server: ts, client: &http.Client{Jar: jar}, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestQuizFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/v1/quiz/start", map[string]any{"input": twoQuestions})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	start := decodeAs[StartResponse](t, body)
	assert.Equal(t, question.SourceDirectJSON, start.Source)
	assert.Equal(t, 2, start.Generated)
	assert.Equal(t, quiz.StateInProgress, start.View.State)
	require.NotNil(t, start.View.Current)
	assert.NotEmpty(t, resp.Cookies(), "first request should issue the session cookie")

	resp, body = env.do(t, http.MethodPost, "/v1/quiz/next", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeUnanswered, decodeAs[httperrors.ErrorResponse](t, body).Error)

	// Option 0 is wrong for both questions and option 1 right.
	first := start.View.Current.ID
	resp, body = env.do(t, http.MethodPost, "/v1/quiz/answer", ws.AnswerPayload{QuestionID: first, Selected: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodPost, "/v1/quiz/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeAs[quiz.View](t, body)
	require.NotNil(t, view.Current)
	assert.Equal(t, 1, view.Index)

	resp, _ = env.do(t, http.MethodPost, "/v1/quiz/answer", ws.AnswerPayload{QuestionID: view.Current.ID, Selected: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/v1/quiz/finish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeAs[quiz.View](t, body)
	assert.Equal(t, quiz.StateFinished, view.State)
	require.NotNil(t, view.Result)
	assert.Equal(t, 50, view.Result.Score)
	assert.True(t, view.CanRedo)

	resp, body = env.do(t, http.MethodPost, "/v1/quiz/revision/enter", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeAs[quiz.View](t, body)
	require.NotNil(t, view.Revision)
	// Order is shuffled and both first-position answers were wrong.
	assert.Contains(t, []string{"Paris", "4"}, view.Revision.CorrectAnswer)

	resp, body = env.do(t, http.MethodPost, "/v1/quiz/redo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeAs[quiz.View](t, body)
	assert.True(t, view.Redo)
	assert.Equal(t, 1, view.Total)

	resp, body = env.do(t, http.MethodGet, "/v1/quiz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeAs[quiz.View](t, body).Total)
}

func TestStartErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		input  string
		status int
		code   string
		item   int
		field  string
	}{
		{name: "empty", input: "   ", status: http.StatusBadRequest, code: httperrors.ErrCodeEmptyInput},
		{name: "malformed json", input: `[{"question": "Q",}]`, status: http.StatusBadRequest, code: httperrors.ErrCodeInvalidJSON},
		{name: "empty array", input: `[]`, status: http.StatusBadRequest, code: httperrors.ErrCodeValidationFailed},
		{name: "array of scalars", input: `[1]`, status: http.StatusBadRequest, code: httperrors.ErrCodeValidationFailed, item: 1},
		{
			name:   "invalid item",
			input:  `[{"question": "Q", "options": ["a", "b"], "correct": 5, "explanation": "e"}]`,
			status: http.StatusBadRequest,
			code:   httperrors.ErrCodeValidationFailed,
			item:   1,
			field:  "correct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/v1/quiz/start", map[string]any{"input": tt.input})
			assert.Equal(t, tt.status, resp.StatusCode)
			er := decodeAs[httperrors.ErrorResponse](t, body)
			assert.Equal(t, tt.code, er.Error)
			assert.Equal(t, tt.item, er.Item)
			assert.Equal(t, tt.field, er.Field)
		})
	}

	resp, _ := env.do(t, http.MethodPost, "/v1/quiz/start", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartWithoutModelFallsBackToDemo(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/v1/quiz/start", map[string]any{"input": "Photosynthesis turns light into sugar."})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	start := decodeAs[StartResponse](t, body)
	assert.Equal(t, question.SourceDemo, start.Source)
	assert.Len(t, start.Warnings, 1)
}

func TestInspect(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/v1/quiz/inspect", map[string]string{"input": twoQuestions})
	assert.True(t, decodeAs[map[string]bool](t, body)["direct_json"])

	_, body = env.do(t, http.MethodPost, "/v1/quiz/inspect", map[string]string{"input": "just notes"})
	assert.False(t, decodeAs[map[string]bool](t, body)["direct_json"])
}

func TestMaterials(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPut, "/v1/materials/ada.l", map[string]string{"notes.v1": "Rivers flow."})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Rivers flow.", env.store.lib["ada_l"]["notes_v1"])

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("files", "lecture.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("Mountains are tall."))
	part, err = mw.CreateFormFile("files", "slides.key")
	require.NoError(t, err)
	_, _ = part.Write([]byte("binary"))
	require.NoError(t, mw.Close())

	resp, err = env.client.Post(env.server.URL+"/v1/materials/ada.l/upload", mw.FormDataContentType(), &form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.Equal(t, []string{"lecture_txt"}, up.Sources)
	assert.Len(t, up.Failed, 1)
	assert.Equal(t, "## lecture.txt\nMountains are tall.", up.Text)

	resp, body = env.do(t, http.MethodGet, "/v1/materials/ada.l", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeAs[struct {
		Sources map[string]string `json:"sources"`
	}](t, body)
	assert.Equal(t, map[string]string{"notes_v1": "Rivers flow.", "lecture_txt": "Mountains are tall."}, got.Sources)

	resp, _ = env.do(t, http.MethodGet, "/v1/materials/%20", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, _ = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketStream(t *testing.T) {
	env := newTestEnv(t)

	// Establish the cookie first so the socket and REST calls share a session.
	resp, _ := env.do(t, http.MethodGet, "/v1/quiz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dialer := websocket.Dialer{Jar: env.client.Jar}
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/quiz"
	conn, _, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	read := func() ws.Message {
		var m ws.Message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	msg := read()
	assert.Equal(t, ws.TypeQuizState, msg.Type)
	assert.Equal(t, quiz.StateNotStarted, decodeAs[quiz.View](t, msg.Payload).State)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeNext, RequestID: "r1"}))
	msg = read()
	assert.Equal(t, ws.TypeError, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	assert.Equal(t, httperrors.ErrCodeNotInProgress, decodeAs[ws.ErrorPayload](t, msg.Payload).Code)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: "dance"}))
	msg = read()
	assert.Equal(t, httperrors.ErrCodeUnknownMessageType, decodeAs[ws.ErrorPayload](t, msg.Payload).Code)

	resp, _ = env.do(t, http.MethodPost, "/v1/quiz/start", map[string]any{"input": twoQuestions})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg = read()
	assert.Equal(t, ws.TypeQuizState, msg.Type)
	view := decodeAs[quiz.View](t, msg.Payload)
	assert.Equal(t, quiz.StateInProgress, view.State)
	require.NotNil(t, view.Current)

	payload, err := json.Marshal(ws.AnswerPayload{QuestionID: view.Current.ID, Selected: 7})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypeAnswer, Payload: payload}))
	msg = read()
	assert.Equal(t, httperrors.ErrCodeOptionOutOfRange, decodeAs[ws.ErrorPayload](t, msg.Payload).Code)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "p"}))
	msg = read()
	assert.Equal(t, ws.Message{Type: ws.TypePong, RequestID: "p"}, msg)
}
