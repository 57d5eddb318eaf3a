package types

// CacheKind separates the diagram and wiki cache namespaces.
type CacheKind string

const (
	KindDiagram CacheKind = "diagram"
	KindWiki    CacheKind = "wiki"
)

// CachedArtifact is what a successful generation persists for a key.
type CachedArtifact struct {
	Key            GenerationKey       `json:"key"`
	Diagram        string              `json:"diagram,omitempty"`
	WikiStructure  *WikiStructure      `json:"wiki_structure,omitempty"`
	GeneratedPages map[string]WikiPage `json:"generated_pages,omitempty"`
}

// Usable reports whether the artifact carries content for kind.
func (a CachedArtifact) Usable(kind CacheKind) bool {
	switch kind {
	case KindDiagram:
		return a.Diagram != ""
	case KindWiki:
		return a.WikiStructure != nil
	}
	return false
}

// ApproxSize is used for cache accounting.
func (a CachedArtifact) ApproxSize() int {
	n := len(a.Diagram)
	if a.WikiStructure != nil {
		for _, p := range a.WikiStructure.Pages {
			n += len(p.Content) + len(p.Title)
		}
	}
	for _, p := range a.GeneratedPages {
		n += len(p.Content) + len(p.Title)
	}
	return n
}
