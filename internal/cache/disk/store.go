// Package disk persists cached artifacts as msgpack files under a root
// directory, one file per kind and key.
package disk

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"repoatlas/internal/cache"
	t "repoatlas/internal/types"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("disk cache root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create disk cache root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) Get(_ context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error) {
	raw, err := os.ReadFile(s.pathFor(kind, key))
	if errors.Is(err, os.ErrNotExist) {
		return t.CachedArtifact{}, cache.ErrNotFound
	}
	if err != nil {
		return t.CachedArtifact{}, err
	}
	var a t.CachedArtifact
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&a); err != nil {
		return t.CachedArtifact{}, fmt.Errorf("decode %s: %w", cache.Key(kind, key), err)
	}
	return a, nil
}

func (s *Store) Put(_ context.Context, kind t.CacheKind, artifact t.CachedArtifact) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(artifact); err != nil {
		return fmt.Errorf("encode %s: %w", cache.Key(kind, artifact.Key), err)
	}

	path := s.pathFor(kind, artifact.Key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) pathFor(kind t.CacheKind, key t.GenerationKey) string {
	return filepath.Join(s.root, string(kind), hashedName(cache.Key(kind, key)))
}

func hashedName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".msgpack"
}
