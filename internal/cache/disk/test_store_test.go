package disk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoatlas/internal/cache"
	t "repoatlas/internal/types"
)

func TestStoreRoundTripsWikiArtifact(tt *testing.T) {
	store, err := New(tt.TempDir())
	require.NoError(tt, err)
	ctx := context.Background()
	key := t.NewKey("acme", "widget")

	want := t.CachedArtifact{
		Key: key,
		WikiStructure: &t.WikiStructure{
			Title: "Widget",
			Pages: []t.WikiPage{{ID: "p1", Title: "Intro", Importance: "high", RelatedPages: []string{"p2"}}},
		},
		GeneratedPages: map[string]t.WikiPage{"p1": {ID: "p1", Title: "Intro", Content: "# Intro"}},
	}
	require.NoError(tt, store.Put(ctx, t.KindWiki, want))

	got, err := store.Get(ctx, t.KindWiki, key)
	require.NoError(tt, err)
	assert.Equal(tt, want, got)
}

func TestStoreSeparatesKinds(tt *testing.T) {
	store, err := New(tt.TempDir())
	require.NoError(tt, err)
	ctx := context.Background()
	key := t.NewKey("acme", "widget")

	require.NoError(tt, store.Put(ctx, t.KindDiagram, t.CachedArtifact{Key: key, Diagram: "graph TD; A-->B"}))

	_, err = store.Get(ctx, t.KindWiki, key)
	assert.ErrorIs(tt, err, cache.ErrNotFound)

	got, err := store.Get(ctx, t.KindDiagram, key)
	require.NoError(tt, err)
	assert.Equal(tt, "graph TD; A-->B", got.Diagram)
}

func TestStoreReportsCorruptFile(tt *testing.T) {
	root := tt.TempDir()
	store, err := New(root)
	require.NoError(tt, err)
	key := t.NewKey("acme", "widget")

	path := filepath.Join(root, string(t.KindDiagram), hashedName(cache.Key(t.KindDiagram, key)))
	require.NoError(tt, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tt, os.WriteFile(path, []byte{0xc1}, 0o644))

	_, err = store.Get(context.Background(), t.KindDiagram, key)
	require.Error(tt, err)
	assert.NotErrorIs(tt, err, cache.ErrNotFound)
}

func TestNewRequiresRoot(tt *testing.T) {
	_, err := New("  ")
	assert.Error(tt, err)
}
