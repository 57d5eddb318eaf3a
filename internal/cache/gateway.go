package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"repoatlas/internal/logging"
	t "repoatlas/internal/types"
)

const defaultOpTimeout = 15 * time.Second

// Gateway serves one cache kind on top of a Store.
type Gateway struct {
	kind    t.CacheKind
	store   Store
	logger  *zap.Logger
	timeout time.Duration
}

func NewGateway(kind t.CacheKind, store Store, logger *zap.Logger) *Gateway {
	return &Gateway{
		kind:    kind,
		store:   store,
		logger:  logging.OrNop(logger).With(zap.String("cache_kind", string(kind))),
		timeout: defaultOpTimeout,
	}
}

func (g *Gateway) Kind() t.CacheKind { return g.kind }

// Lookup reports a hit only for an artifact that carries content for the
// gateway's kind. Errors and not-found are both misses.
func (g *Gateway) Lookup(ctx context.Context, key t.GenerationKey) (t.CachedArtifact, bool) {
	if g == nil || g.store == nil {
		return t.CachedArtifact{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	a, err := g.store.Get(ctx, g.kind, key)
	switch {
	case errors.Is(err, ErrNotFound):
		g.logger.Debug("cache miss", zap.String("key", key.String()))
		return t.CachedArtifact{}, false
	case err != nil:
		g.logger.Warn("cache lookup failed; treating as miss", zap.String("key", key.String()), zap.Error(err))
		return t.CachedArtifact{}, false
	case !a.Usable(g.kind):
		g.logger.Debug("cache entry empty; treating as miss", zap.String("key", key.String()))
		return t.CachedArtifact{}, false
	}
	a.Key = key
	g.logger.Debug("cache hit", zap.String("key", key.String()))
	return a, true
}

// Store persists artifact. The error is informational: callers keep their
// freshly generated result either way.
func (g *Gateway) Store(ctx context.Context, key t.GenerationKey, artifact t.CachedArtifact) error {
	if g == nil || g.store == nil {
		return nil
	}
	if !artifact.Usable(g.kind) {
		return fmt.Errorf("store %s %s: artifact has no %s content", g.kind, key, g.kind)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	artifact.Key = key
	if err := g.store.Put(ctx, g.kind, artifact); err != nil {
		g.logger.Warn("cache store failed", zap.String("key", key.String()), zap.Error(err))
		return fmt.Errorf("store %s %s: %w", g.kind, key, err)
	}
	g.logger.Debug("cache stored", zap.String("key", key.String()), zap.Int("bytes", artifact.ApproxSize()))
	return nil
}
