package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://api.poe.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, "GPT-5-mini", cfg.AI.DefaultModel)
	assert.Equal(t, 90*time.Second, cfg.AI.HTTPTimeout)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 1e-6)
	assert.Equal(t, 2000, cfg.AI.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.TTS.HTTPTimeout)
	assert.Equal(t, BackendNone, cfg.Storage.Backend)
	assert.Equal(t, "kq-session", cfg.Session.CookieName)
	assert.Equal(t, 4, cfg.Material.Workers)
	assert.False(t, cfg.AI.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POE_API_KEY", "secret")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/kq.db")
	t.Setenv("TTS_CONCURRENCY", "3")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/kq.db", cfg.SQLite.Path)
	assert.Equal(t, 3, cfg.TTS.Concurrency)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "firebase")
	_, err := Load(context.Background())
	assert.Error(t, err)

	t.Setenv("STORAGE_BACKEND", "postgres")
	_, err = Load(context.Background())
	assert.Error(t, err)
}

func TestProductionNeedsSessionSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Load(context.Background())
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "a-real-secret")
	_, err = Load(context.Background())
	assert.NoError(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{Host: "db", Port: 5432, User: "u", Password: "p", Database: "kq", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=kq sslmode=disable", p.DSN())
}
