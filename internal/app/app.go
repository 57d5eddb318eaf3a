// Package app wires configuration into a ready orchestrator.
package app

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"repoatlas/internal/ask"
	"repoatlas/internal/cache"
	"repoatlas/internal/client"
	"repoatlas/internal/config"
	"repoatlas/internal/logging"
	"repoatlas/internal/orchestrator"
)

type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Client       *client.Client
	Ask          *ask.Client
	Store        *cache.TieredStore
	Orchestrator *orchestrator.Orchestrator

	closer io.Closer
}

// New loads configuration from the environment and builds the app.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, logging.New(cfg.LogLevel))
}

func NewWithConfig(cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	c, err := client.New(client.Options{BaseURL: cfg.BaseURL, H2C: cfg.H2C, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	askClient, err := ask.New(cfg.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ask client: %w", err)
	}
	store, closer, err := initStore(cfg, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config: cfg,
		Logger: logger,
		Client: c,
		Ask:    askClient,
		Store:  store,
		Orchestrator: orchestrator.New(orchestrator.Options{
			Streamer:     c,
			WikiClient:   c,
			Store:        store,
			PollInterval: cfg.PollInterval.Duration,
			RepoType:     cfg.RepoType,
			Logger:       logger,
		}),
		closer: closer,
	}, nil
}

// Close releases backend connections and flushes the logger.
func (a *App) Close() error {
	m := a.Store.Metrics()
	a.Logger.Debug("cache metrics",
		zap.Uint64("local_hits", m.LocalHits),
		zap.Uint64("local_misses", m.LocalMisses),
		zap.Uint64("origin_reads", m.OriginReads),
		zap.Uint64("origin_writes", m.OriginWrites),
		zap.Uint64("origin_read_errors", m.OriginReadErr),
		zap.Uint64("origin_write_errors", m.OriginWriteErr),
	)
	_ = a.Logger.Sync()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
