// Package remote stores artifacts in the generation service's own cache
// endpoints, so other clients of the service see them too.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repoatlas/internal/cache"
	"repoatlas/internal/client"
	t "repoatlas/internal/types"
)

const DefaultRepoType = "github"

// API is the subset of the service client the store needs.
type API interface {
	GetCachedDiagram(ctx context.Context, key t.GenerationKey) (string, error)
	PutCachedDiagram(ctx context.Context, key t.GenerationKey, diagram string) error
	GetWikiCache(ctx context.Context, key t.GenerationKey, repoType string) (t.WikiResult, error)
	PutWikiCache(ctx context.Context, key t.GenerationKey, repoType string, data t.WikiResult) error
}

type Store struct {
	api      API
	repoType string
}

func New(api API, repoType string) *Store {
	repoType = strings.TrimSpace(repoType)
	if repoType == "" {
		repoType = DefaultRepoType
	}
	return &Store{api: api, repoType: repoType}
}

func (s *Store) Get(ctx context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error) {
	switch kind {
	case t.KindDiagram:
		d, err := s.api.GetCachedDiagram(ctx, key)
		if err != nil {
			return t.CachedArtifact{}, mapErr(err)
		}
		return t.CachedArtifact{Key: key, Diagram: d}, nil
	case t.KindWiki:
		res, err := s.api.GetWikiCache(ctx, key, s.repoType)
		if err != nil {
			return t.CachedArtifact{}, mapErr(err)
		}
		return t.CachedArtifact{Key: key, WikiStructure: res.WikiStructure, GeneratedPages: res.GeneratedPages}, nil
	}
	return t.CachedArtifact{}, fmt.Errorf("unknown cache kind %q", kind)
}

func (s *Store) Put(ctx context.Context, kind t.CacheKind, artifact t.CachedArtifact) error {
	switch kind {
	case t.KindDiagram:
		return s.api.PutCachedDiagram(ctx, artifact.Key, artifact.Diagram)
	case t.KindWiki:
		return s.api.PutWikiCache(ctx, artifact.Key, s.repoType, t.WikiResult{
			WikiStructure:  artifact.WikiStructure,
			GeneratedPages: artifact.GeneratedPages,
		})
	}
	return fmt.Errorf("unknown cache kind %q", kind)
}

func mapErr(err error) error {
	if errors.Is(err, client.ErrNotFound) {
		return cache.ErrNotFound
	}
	return err
}
