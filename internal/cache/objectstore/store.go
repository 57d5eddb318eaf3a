// Package objectstore keeps cached artifacts as JSON objects in an S3
// compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"repoatlas/internal/cache"
	t "repoatlas/internal/types"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Store struct {
	client *minio.Client
	bucket string
	region string

	mu    sync.Mutex
	ready bool
}

const defaultRegion = "us-east-1"

// normalized trims every field and fills the default region.
func (c Config) normalized() Config {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	if c.Region == "" {
		c.Region = defaultRegion
	}
	return c
}

// missing names the required settings that are empty.
func (c Config) missing() []string {
	var out []string
	for _, f := range []struct{ name, value string }{
		{"endpoint", c.Endpoint},
		{"access key", c.AccessKey},
		{"secret key", c.SecretKey},
		{"bucket", c.Bucket},
	} {
		if f.value == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func New(cfg Config) (*Store, error) {
	cfg = cfg.normalized()
	if missing := cfg.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("object store: missing %s", strings.Join(missing, ", "))
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// ensureBucket creates the bucket on first use. Only success is remembered.
func (s *Store) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}
	s.ready = true
	return nil
}

func (s *Store) Get(ctx context.Context, kind t.CacheKind, key t.GenerationKey) (t.CachedArtifact, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return t.CachedArtifact{}, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(kind, key), minio.GetObjectOptions{})
	if err != nil {
		return t.CachedArtifact{}, mapErr(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	raw, err := io.ReadAll(obj)
	if err != nil {
		return t.CachedArtifact{}, mapErr(err)
	}
	var a t.CachedArtifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return t.CachedArtifact{}, fmt.Errorf("decode %s: %w", objectKey(kind, key), err)
	}
	return a, nil
}

func (s *Store) Put(ctx context.Context, kind t.CacheKind, artifact t.CachedArtifact) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	raw, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, objectKey(kind, artifact.Key), bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func objectKey(kind t.CacheKind, key t.GenerationKey) string {
	return cache.Key(kind, key) + ".json"
}

func mapErr(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return cache.ErrNotFound
	}
	return err
}
