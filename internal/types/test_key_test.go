package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	k, err := ParseKey(" octo/hello-world/ ")
	require.NoError(t, err)
	assert.Equal(t, GenerationKey{Owner: "octo", Repo: "hello-world"}, k)
	assert.Equal(t, "octo/hello-world", k.String())

	for _, in := range []string{"", "octo", "/repo", "octo/ "} {
		_, err := ParseKey(in)
		assert.ErrorIs(t, err, ErrInvalidKey, in)
	}
}

func TestKeyRejectsSlashInParts(t *testing.T) {
	a := NewKey("a/b", "c")
	b := NewKey("a", "b/c")
	assert.Equal(t, a.String(), b.String())
	assert.ErrorIs(t, a.Validate(), ErrInvalidKey)
	assert.ErrorIs(t, b.Validate(), ErrInvalidKey)

	_, err := ParseKey("a/b/c")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStatusTagHelpers(t *testing.T) {
	b, ok := StatusMappingChunk.ChunkBuffer()
	assert.True(t, ok)
	assert.Equal(t, BufferMapping, b)

	_, ok = StatusMapping.ChunkBuffer()
	assert.False(t, ok)

	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusDiagramSent.Terminal())
	assert.False(t, StatusIdle.Known())
	assert.False(t, StatusTag("bogus").Known())
}

func TestWikiPageAcceptsBothFieldStyles(t *testing.T) {
	var snake WikiPage
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","file_paths":["a.go"],"related_pages":["p2"]}`), &snake))
	assert.Equal(t, []string{"a.go"}, snake.FilePaths)
	assert.Equal(t, []string{"p2"}, snake.RelatedPages)

	var camel WikiPage
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","filePaths":["b.go"],"relatedPages":[]}`), &camel))
	assert.Equal(t, []string{"b.go"}, camel.FilePaths)
	assert.Equal(t, []string{}, camel.RelatedPages)
}

func TestCachedArtifactUsable(t *testing.T) {
	assert.False(t, CachedArtifact{}.Usable(KindDiagram))
	assert.True(t, CachedArtifact{Diagram: "graph TD"}.Usable(KindDiagram))
	assert.False(t, CachedArtifact{Diagram: "graph TD"}.Usable(KindWiki))
	assert.True(t, CachedArtifact{WikiStructure: &WikiStructure{}}.Usable(KindWiki))
}
