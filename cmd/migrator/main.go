package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/knowledgequest/quiz-engine/internal/config"
	"github.com/knowledgequest/quiz-engine/internal/storage"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, or status")
		backend = flag.String("backend", "", "Storage backend: postgres or sqlite (defaults to STORAGE_BACKEND)")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *backend == "" {
		*backend = cfg.Storage.Backend
	}

	var (
		dialect storage.Dialect
		dsn     string
	)
	switch *backend {
	case config.BackendPostgres:
		if cfg.Postgres.User == "" || cfg.Postgres.Database == "" {
			log.Fatal().Msg("PG_USER and PG_DATABASE environment variables are required")
		}
		dialect, dsn = storage.DialectPostgres, cfg.Postgres.DSN()
	case config.BackendSQLite:
		dialect, dsn = storage.DialectSQLite, cfg.SQLite.Path
	default:
		log.Fatal().Str("backend", *backend).Msg("migrations only apply to postgres or sqlite")
	}

	db, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("backend", *backend).Msg("failed to open database connection")
	}
	defer db.Close()

	log.Info().Str("backend", *backend).Str("command", *command).Msg("connected to database")

	if err := storage.Migrate(ctx, db, dialect, *command); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	log.Info().Str("command", *command).Msg("migration command completed")
}
