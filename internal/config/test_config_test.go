package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPOATLAS_CONFIG", "")
	t.Setenv("REPOATLAS_BASE_URL", "")
	t.Setenv("TARGET_SERVER_BASE_URL", "")
	t.Setenv("REPOATLAS_POLL_INTERVAL", "")
	t.Setenv("REPOATLAS_CACHE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval.Duration)
	assert.Equal(t, "github", cfg.RepoType)
	assert.Equal(t, "remote", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.MemoryTTL.Duration)
	assert.Equal(t, 256, cfg.Cache.MemoryMaxEntries)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "repoatlas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://svc:9000/
poll_interval: 500ms
cache:
  backend: disk
  disk_root: /tmp/atlas
  s3:
    bucket: from-file
`), 0o644))

	t.Setenv("REPOATLAS_CONFIG", path)
	t.Setenv("REPOATLAS_BASE_URL", "")
	t.Setenv("TARGET_SERVER_BASE_URL", "")
	t.Setenv("REPOATLAS_POLL_INTERVAL", "")
	t.Setenv("REPOATLAS_CACHE_BACKEND", "S3")
	t.Setenv("REPOATLAS_S3_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://svc:9000", cfg.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval.Duration)
	assert.Equal(t, "s3", cfg.Cache.Backend)
	assert.Equal(t, "/tmp/atlas", cfg.Cache.DiskRoot)
	assert.Equal(t, "from-file", cfg.Cache.S3.Bucket)
}

func TestLoadRejectsBadPollInterval(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPOATLAS_CONFIG", "")
	t.Setenv("REPOATLAS_POLL_INTERVAL", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestS3ConfigComplete(t *testing.T) {
	assert.False(t, S3Config{Endpoint: "minio:9000"}.Complete())
	assert.True(t, S3Config{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "c"}.Complete())
}
