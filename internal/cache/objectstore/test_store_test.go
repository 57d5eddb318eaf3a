package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoatlas/internal/cache"
	t "repoatlas/internal/types"
)

func TestNewValidatesConfig(tt *testing.T) {
	cases := map[string]Config{
		"endpoint": {AccessKey: "a", SecretKey: "s", Bucket: "b"},
		"creds":    {Endpoint: "localhost:9000", Bucket: "b"},
		"bucket":   {Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"},
	}
	for name, cfg := range cases {
		tt.Run(name, func(tt *testing.T) {
			_, err := New(cfg)
			assert.ErrorContains(tt, err, "missing")
		})
	}
}

func TestNewReportsEveryMissingSetting(tt *testing.T) {
	_, err := New(Config{Endpoint: " "})
	assert.EqualError(tt, err, "object store: missing endpoint, access key, secret key, bucket")
}

// fakeS3 answers the bucket probe with 200 and every object read with
// NoSuchKey.
func fakeS3(tt *testing.T, bucket string) (*httptest.Server, *atomic.Int32) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(r.URL.Path, "/")
		switch {
		case r.Method == http.MethodHead && path == bucket:
			probes.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && strings.HasPrefix(path, bucket+"/"):
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message>` +
				`<Key>` + strings.TrimPrefix(path, bucket+"/") + `</Key><BucketName>` + bucket + `</BucketName></Error>`))
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
	tt.Cleanup(srv.Close)
	return srv, &probes
}

func TestBucketCheckRetriesAfterCancelledContext(tt *testing.T) {
	srv, probes := fakeS3(tt, "atlas")
	u, err := url.Parse(srv.URL)
	require.NoError(tt, err)
	store, err := New(Config{Endpoint: u.Host, AccessKey: "a", SecretKey: "s", Bucket: "atlas"})
	require.NoError(tt, err)
	key := t.NewKey("acme", "widget")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Get(cancelled, t.KindDiagram, key)
	require.Error(tt, err)
	assert.NotErrorIs(tt, err, cache.ErrNotFound)

	_, err = store.Get(context.Background(), t.KindDiagram, key)
	assert.ErrorIs(tt, err, cache.ErrNotFound)

	_, err = store.Get(context.Background(), t.KindDiagram, key)
	assert.ErrorIs(tt, err, cache.ErrNotFound)
	assert.EqualValues(tt, 1, probes.Load())
}

func TestObjectKeyIsNamespacedByKind(tt *testing.T) {
	key := t.NewKey("acme", "widget")
	assert.Equal(tt, "diagram/acme/widget.json", objectKey(t.KindDiagram, key))
	assert.Equal(tt, "wiki/acme/widget.json", objectKey(t.KindWiki, key))
}

// Runs against a live MinIO when REPOATLAS_TEST_S3_ENDPOINT is set.
func TestStoreAgainstMinIO(tt *testing.T) {
	endpoint := os.Getenv("REPOATLAS_TEST_S3_ENDPOINT")
	if endpoint == "" {
		tt.Skip("REPOATLAS_TEST_S3_ENDPOINT not set")
	}
	store, err := New(Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ROOT_USER"),
		SecretKey: os.Getenv("MINIO_ROOT_PASSWORD"),
		Bucket:    "repoatlas-test",
	})
	require.NoError(tt, err)
	ctx := context.Background()
	key := t.NewKey("acme", uuid.NewString())

	_, err = store.Get(ctx, t.KindDiagram, key)
	assert.ErrorIs(tt, err, cache.ErrNotFound)

	require.NoError(tt, store.Put(ctx, t.KindDiagram, t.CachedArtifact{Key: key, Diagram: "graph TD; A-->B"}))
	got, err := store.Get(ctx, t.KindDiagram, key)
	require.NoError(tt, err)
	assert.Equal(tt, "graph TD; A-->B", got.Diagram)
}
