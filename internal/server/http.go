package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/config"
	"github.com/knowledgequest/quiz-engine/internal/logging"
)

// WSUpgrader handles WebSocket upgrades. The quiz socket only reads the
// caller's own session, so any origin carrying the cookie is accepted.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Pinger checks a backing dependency for /healthz.
type Pinger func(ctx context.Context) error

// Handlers groups every route family served by the API.
type Handlers struct {
	Quiz      *QuizHandlers
	Materials *MaterialHandlers
	Socket    *SocketHandler
}

// NewHTTPServer wires the quiz, materials and stream routes plus health and metrics.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, h Handlers, gatherer prometheus.Gatherer, ping Pinger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logging.FromContext(r.Context()).Error().Err(err).Msg("dependency ping failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if h.Quiz != nil {
		h.Quiz.Register(mux)
	}
	if h.Materials != nil {
		h.Materials.Register(mux)
	}
	if h.Socket != nil {
		mux.HandleFunc("GET /ws/quiz", h.Socket.HandleWebSocket)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: logging.Middleware(logger)(mux),
	}
}
