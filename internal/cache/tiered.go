package cache

import (
	"context"
	"sync/atomic"

	t "repoatlas/internal/types"
)

type MetricsSnapshot struct {
	LocalHits      uint64
	LocalMisses    uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type metrics struct {
	localHits      atomic.Uint64
	localMisses    atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

// TieredStore fronts an origin Store with a local one. Reads fill the
// local tier; writes go to the origin first and then to the local tier.
type TieredStore struct {
	local   Store
	origin  Store
	metrics metrics
}

func NewTieredStore(local, origin Store) *TieredStore {
	return &TieredStore{local: local, origin: origin}
}

func (s *TieredStore) Get(ctx context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error) {
	if a, err := s.local.Get(ctx, kind, key); err == nil {
		s.metrics.localHits.Add(1)
		return a, nil
	}
	s.metrics.localMisses.Add(1)
	s.metrics.originReads.Add(1)

	a, err := s.origin.Get(ctx, kind, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return t.CachedArtifact{}, err
	}
	_ = s.local.Put(ctx, kind, a)
	return a, nil
}

func (s *TieredStore) Put(ctx context.Context, kind t.CacheKind, artifact t.CachedArtifact) error {
	s.metrics.originWrites.Add(1)
	err := s.origin.Put(ctx, kind, artifact)
	if err != nil {
		s.metrics.originWriteErr.Add(1)
	}
	// The local tier still serves this process even when the origin failed.
	_ = s.local.Put(ctx, kind, artifact)
	return err
}

func (s *TieredStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		LocalHits:      s.metrics.localHits.Load(),
		LocalMisses:    s.metrics.localMisses.Load(),
		OriginReads:    s.metrics.originReads.Load(),
		OriginWrites:   s.metrics.originWrites.Load(),
		OriginReadErr:  s.metrics.originReadErr.Load(),
		OriginWriteErr: s.metrics.originWriteErr.Load(),
	}
}
