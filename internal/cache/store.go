// Package cache is the read-through / write-back layer in front of
// generation. Lookups never fail the caller: any error is a miss.
package cache

import (
	"context"
	"errors"
	"strings"

	t "repoatlas/internal/types"
)

var ErrNotFound = errors.New("cached artifact not found")

// Store persists cached artifacts by kind and key.
type Store interface {
	Get(ctx context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error)
	Put(ctx context.Context, kind t.CacheKind, artifact t.CachedArtifact) error
}

// Key renders the storage key shared by the local backends.
func Key(kind t.CacheKind, key t.GenerationKey) string {
	return string(kind) + "/" + strings.TrimSpace(key.Owner) + "/" + strings.TrimSpace(key.Repo)
}
