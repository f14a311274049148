package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/audio"
	"github.com/knowledgequest/quiz-engine/internal/config"
	"github.com/knowledgequest/quiz-engine/internal/logging"
	"github.com/knowledgequest/quiz-engine/internal/material"
	"github.com/knowledgequest/quiz-engine/internal/metrics"
	"github.com/knowledgequest/quiz-engine/internal/question"
	"github.com/knowledgequest/quiz-engine/internal/question/ai"
	"github.com/knowledgequest/quiz-engine/internal/quiz"
	"github.com/knowledgequest/quiz-engine/internal/server"
	"github.com/knowledgequest/quiz-engine/internal/storage"
	ws "github.com/knowledgequest/quiz-engine/pkg/http/ws"
)

// Application aggregates shared infrastructure (storage, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	db    *sql.DB
	redis *redis.Client
	http  *http.Server

	audioWorker *audio.Worker
	janitor     *quiz.Janitor
	bgCancels   []context.CancelFunc
}

// New bootstraps logger, metrics, storage, the question pipeline and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a := &Application{
		cfg:       cfg,
		logger:    logger,
		bgCancels: make([]context.CancelFunc, 0, 2),
	}

	if cfg.Storage.Backend == config.BackendRedis || cfg.Cache.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	// Keep the interface nil when unconfigured so the service falls back to demo questions.
	var completer question.Completer
	var chat *ai.Client
	if cfg.AI.Enabled() {
		chat = ai.NewClient(ai.Config{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Timeout:     cfg.AI.HTTPTimeout,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		}, logger)
		completer = chat
	} else {
		logger.Warn().Msg("POE_API_KEY not set; generation will fall back to demo questions")
	}

	var cache question.GenerationCache
	if cfg.Cache.Enabled {
		cache = question.NewCache(a.redis, cfg.Cache.TTL)
	}

	questionSvc := question.NewService(completer, cache, m, question.ServiceOptions{
		DefaultModel:  cfg.AI.DefaultModel,
		DefaultCount:  cfg.AI.DefaultCount,
		MaxInputChars: cfg.AI.MaxInputChars,
	}, logger)

	var queue quiz.AudioQueue
	if cfg.TTS.Enabled && chat != nil {
		tts := audio.NewTTSClient(chat, cfg.TTS.Model, cfg.TTS.HTTPTimeout)
		annotator := audio.NewAnnotator(tts, cfg.TTS.Concurrency, m, logger)
		a.audioWorker = audio.NewWorker(annotator, cfg.TTS.QueueSize, cfg.TTS.JobTimeout, logger)
		queue = a.audioWorker
	}

	manager := quiz.NewManager(questionSvc, queue, m, logger)
	a.janitor = quiz.NewJanitor(manager, cfg.Session.SweepInterval, cfg.Session.MaxIdle, logger)

	sessions := server.NewSessions(cfg.Session, manager.NewID)
	hub := ws.NewHub(logger)
	socket := server.NewSocketHandler(manager, hub, sessions, logger)
	manager.SetNotifier(socket.Notify)

	registry := material.NewRegistry(m, logger)
	a.http = server.NewHTTPServer(cfg, logger, server.Handlers{
		Quiz:      server.NewQuizHandlers(manager, sessions, logger),
		Materials: server.NewMaterialHandlers(registry, store, cfg.Material.Workers, cfg.Material.MaxUploadBytes, logger),
		Socket:    socket,
	}, reg, a.pingDependencies)

	logger.Info().
		Str("storage", cfg.Storage.Backend).
		Bool("ai", cfg.AI.Enabled()).
		Bool("tts", a.audioWorker != nil).
		Bool("generation_cache", cache != nil).
		Msg("application bootstrapped")
	return a, nil
}

func (a *Application) openStore(ctx context.Context) (storage.Store, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendRedis:
		return storage.NewRedisStore(a.redis, a.cfg.Redis.Key), nil
	case config.BackendPostgres:
		return a.openSQL(ctx, storage.DialectPostgres, a.cfg.Postgres.DSN())
	case config.BackendSQLite:
		return a.openSQL(ctx, storage.DialectSQLite, a.cfg.SQLite.Path)
	default:
		return storage.Nop{}, nil
	}
}

func (a *Application) openSQL(ctx context.Context, dialect storage.Dialect, dsn string) (storage.Store, error) {
	db, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}
	a.db = db
	if err := storage.Migrate(ctx, db, dialect, "up"); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return storage.NewSQLStore(db, dialect), nil
}

func (a *Application) pingDependencies(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.close()

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("database shutdown error")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.audioWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.audioWorker.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("audio worker stopped")
			}
		}()
	}

	if a.janitor != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.janitor.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("session janitor stopped")
			}
		}()
	}
}
