// Package memory is the in-process cache tier.
package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"repoatlas/internal/cache"
	t "repoatlas/internal/types"
)

const (
	DefaultMaxEntries = 256
	DefaultTTL        = 10 * time.Minute
)

// Store keeps artifacts in a size-bounded LRU whose entries expire after ttl.
type Store struct {
	lru *expirable.LRU[string, t.CachedArtifact]
}

func New(maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{lru: expirable.NewLRU[string, t.CachedArtifact](maxEntries, nil, ttl)}
}

func (s *Store) Get(_ context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error) {
	a, ok := s.lru.Get(cache.Key(kind, key))
	if !ok {
		return t.CachedArtifact{}, cache.ErrNotFound
	}
	return a, nil
}

func (s *Store) Put(_ context.Context, kind t.CacheKind, artifact t.CachedArtifact) error {
	s.lru.Add(cache.Key(kind, artifact.Key), artifact)
	return nil
}

func (s *Store) Len() int { return s.lru.Len() }
