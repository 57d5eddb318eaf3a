package app

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"repoatlas/internal/cache"
	"repoatlas/internal/cache/disk"
	"repoatlas/internal/cache/memory"
	"repoatlas/internal/cache/objectstore"
	"repoatlas/internal/cache/postgres"
	"repoatlas/internal/cache/remote"
	"repoatlas/internal/client"
	"repoatlas/internal/config"
)

// initStore builds the origin named by cfg.Cache.Backend and puts the
// memory tier in front of it.
func initStore(cfg *config.Config, c *client.Client, logger *zap.Logger) (*cache.TieredStore, io.Closer, error) {
	origin, closer, err := chooseOrigin(cfg, c, logger)
	if err != nil {
		return nil, nil, err
	}
	front := memory.New(cfg.Cache.MemoryMaxEntries, cfg.Cache.MemoryTTL.Duration)
	return cache.NewTieredStore(front, origin), closer, nil
}

func chooseOrigin(cfg *config.Config, c *client.Client, logger *zap.Logger) (cache.Store, io.Closer, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	switch backend {
	case "", "remote":
		logger.Info("cache origin: remote service", zap.String("base_url", cfg.BaseURL))
		return remote.New(c, cfg.RepoType), nil, nil
	case "disk":
		s, err := disk.New(cfg.Cache.DiskRoot)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("cache origin: disk", zap.String("root", s.Root()))
		return s, nil, nil
	case "s3", "minio":
		if !cfg.Cache.S3.Complete() {
			logger.Warn("cache origin: s3 config incomplete, using remote service")
			return remote.New(c, cfg.RepoType), nil, nil
		}
		s3 := cfg.Cache.S3
		s, err := objectstore.New(objectstore.Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 cache: %w", err)
		}
		logger.Info("cache origin: s3", zap.String("bucket", s3.Bucket), zap.String("endpoint", s3.Endpoint))
		return s, nil, nil
	case "postgres":
		s, err := postgres.Open(cfg.Cache.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres cache: %w", err)
		}
		logger.Info("cache origin: postgres")
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
