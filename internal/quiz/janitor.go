package quiz

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically evicts idle sessions from the manager.
type Janitor struct {
	manager  *Manager
	logger   zerolog.Logger
	interval time.Duration
	maxIdle  time.Duration
}

func NewJanitor(manager *Manager, interval, maxIdle time.Duration, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxIdle <= 0 {
		maxIdle = 2 * time.Hour
	}
	return &Janitor{
		manager:  manager,
		logger:   logger.With().Str("component", "quiz_session_janitor").Logger(),
		interval: interval,
		maxIdle:  maxIdle,
	}
}

// Run blocks until context cancellation.
func (j *Janitor) Run(ctx context.Context) error {
	if j.manager == nil {
		return nil
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.tick()
		}
	}
}

func (j *Janitor) tick() {
	if removed := j.manager.Sweep(j.maxIdle); removed > 0 {
		j.logger.Info().
			Int("removed", removed).
			Int("live", j.manager.Len()).
			Msg("idle quiz sessions evicted")
	}
}
