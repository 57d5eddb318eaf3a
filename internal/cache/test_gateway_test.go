package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoatlas/internal/cache"
	"repoatlas/internal/cache/memory"
	t "repoatlas/internal/types"
)

var key = t.NewKey("acme", "widget")

type fakeStore struct {
	mu     sync.Mutex
	data   map[string]t.CachedArtifact
	gets   int
	puts   int
	getErr error
	putErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]t.CachedArtifact{}}
}

func (s *fakeStore) Get(_ context.Context, kind t.CacheKind, k t.GenerationKey) (t.CachedArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return t.CachedArtifact{}, s.getErr
	}
	a, ok := s.data[cache.Key(kind, k)]
	if !ok {
		return t.CachedArtifact{}, cache.ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) Put(_ context.Context, kind t.CacheKind, a t.CachedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.data[cache.Key(kind, a.Key)] = a
	return nil
}

func TestGatewayLookupTreatsErrorsAsMiss(tt *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	g := cache.NewGateway(t.KindDiagram, store, nil)

	_, ok := g.Lookup(context.Background(), key)
	assert.False(tt, ok)
}

func TestGatewayLookupIgnoresEmptyArtifact(tt *testing.T) {
	store := newFakeStore()
	store.data[cache.Key(t.KindWiki, key)] = t.CachedArtifact{Key: key}
	g := cache.NewGateway(t.KindWiki, store, nil)

	_, ok := g.Lookup(context.Background(), key)
	assert.False(tt, ok)
}

func TestGatewayStoreThenLookup(tt *testing.T) {
	g := cache.NewGateway(t.KindDiagram, newFakeStore(), nil)
	ctx := context.Background()

	require.NoError(tt, g.Store(ctx, key, t.CachedArtifact{Diagram: "graph TD; A-->B"}))
	got, ok := g.Lookup(ctx, key)
	require.True(tt, ok)
	assert.Equal(tt, "graph TD; A-->B", got.Diagram)
	assert.Equal(tt, key, got.Key)
}

func TestGatewayStoreRejectsEmptyArtifact(tt *testing.T) {
	store := newFakeStore()
	g := cache.NewGateway(t.KindDiagram, store, nil)

	assert.Error(tt, g.Store(context.Background(), key, t.CachedArtifact{}))
	assert.Zero(tt, store.puts)
}

func TestGatewayStoreReportsBackendError(tt *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("disk full")
	g := cache.NewGateway(t.KindDiagram, store, nil)

	err := g.Store(context.Background(), key, t.CachedArtifact{Diagram: "x"})
	assert.ErrorContains(tt, err, "disk full")
}

func TestNilGatewayIsAlwaysMiss(tt *testing.T) {
	var g *cache.Gateway
	_, ok := g.Lookup(context.Background(), key)
	assert.False(tt, ok)
	assert.NoError(tt, g.Store(context.Background(), key, t.CachedArtifact{Diagram: "x"}))
}

func TestTieredStoreReadThroughAndMetrics(tt *testing.T) {
	origin := newFakeStore()
	origin.data[cache.Key(t.KindDiagram, key)] = t.CachedArtifact{Key: key, Diagram: "graph"}
	store := cache.NewTieredStore(memory.New(8, time.Minute), origin)
	ctx := context.Background()

	for range 3 {
		got, err := store.Get(ctx, t.KindDiagram, key)
		require.NoError(tt, err)
		assert.Equal(tt, "graph", got.Diagram)
	}
	assert.Equal(tt, 1, origin.gets)

	m := store.Metrics()
	assert.Equal(tt, uint64(2), m.LocalHits)
	assert.Equal(tt, uint64(1), m.LocalMisses)
	assert.Equal(tt, uint64(1), m.OriginReads)
}

func TestTieredStoreMissPropagatesNotFound(tt *testing.T) {
	store := cache.NewTieredStore(memory.New(8, time.Minute), newFakeStore())

	_, err := store.Get(context.Background(), t.KindWiki, key)
	assert.ErrorIs(tt, err, cache.ErrNotFound)
	assert.Equal(tt, uint64(1), store.Metrics().OriginReadErr)
}

func TestTieredStoreWriteThroughKeepsLocalOnOriginFailure(tt *testing.T) {
	origin := newFakeStore()
	origin.putErr = errors.New("unavailable")
	store := cache.NewTieredStore(memory.New(8, time.Minute), origin)
	ctx := context.Background()

	err := store.Put(ctx, t.KindDiagram, t.CachedArtifact{Key: key, Diagram: "graph"})
	require.Error(tt, err)
	assert.Equal(tt, uint64(1), store.Metrics().OriginWriteErr)

	got, err := store.Get(ctx, t.KindDiagram, key)
	require.NoError(tt, err)
	assert.Equal(tt, "graph", got.Diagram)
	assert.Zero(tt, origin.gets)
}
