// Package postgres keeps cached artifacts in a single table keyed by kind,
// owner and repo.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"repoatlas/internal/cache"
	t "repoatlas/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS cached_artifacts (
  kind TEXT NOT NULL,
  owner TEXT NOT NULL,
  repo TEXT NOT NULL,
  payload JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  PRIMARY KEY (kind, owner, repo)
);`

type Store struct {
	db *sql.DB

	schemaMu    sync.Mutex
	schemaReady bool
}

// Open connects with the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewWithDB(db), nil
}

func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ensureSchema creates the table on first use. A failed attempt is retried
// by the next call.
func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *Store) Get(ctx context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return t.CachedArtifact{}, fmt.Errorf("ensure schema: %w", err)
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cached_artifacts WHERE kind = $1 AND owner = $2 AND repo = $3`,
		string(kind), key.Owner, key.Repo).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return t.CachedArtifact{}, cache.ErrNotFound
	}
	if err != nil {
		return t.CachedArtifact{}, err
	}
	var a t.CachedArtifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return t.CachedArtifact{}, fmt.Errorf("decode %s: %w", cache.Key(kind, key), err)
	}
	return a, nil
}

func (s *Store) Put(ctx context.Context, kind t.CacheKind, artifact t.CachedArtifact) error {
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	raw, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO cached_artifacts (kind, owner, repo, payload, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (kind, owner, repo)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		string(kind), artifact.Key.Owner, artifact.Key.Repo, raw)
	return err
}
