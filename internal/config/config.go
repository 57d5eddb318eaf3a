package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "http://localhost:8001"
	DefaultPollInterval = 2 * time.Second
	DefaultRepoType     = "github"
)

type Config struct {
	BaseURL      string   `yaml:"base_url"`
	PollInterval Duration `yaml:"poll_interval"`
	RepoType     string   `yaml:"repo_type"`
	LogLevel     string   `yaml:"log_level"`
	// H2C enables cleartext HTTP/2 towards the service.
	H2C   bool        `yaml:"h2c"`
	Cache CacheConfig `yaml:"cache"`
}

type CacheConfig struct {
	// Backend is one of remote, disk, s3, postgres.
	Backend          string   `yaml:"backend"`
	MemoryTTL        Duration `yaml:"memory_ttl"`
	MemoryMaxEntries int      `yaml:"memory_max_entries"`
	DiskRoot         string   `yaml:"disk_root"`
	PostgresDSN      string   `yaml:"postgres_dsn"`
	S3               S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (c S3Config) Complete() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

// Duration wraps time.Duration for YAML strings such as "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Load reads .env (if present), then the YAML file named by REPOATLAS_CONFIG
// (if set), then applies environment overrides and defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path := strings.TrimSpace(os.Getenv("REPOATLAS_CONFIG")); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.BaseURL = firstNonEmpty(env("REPOATLAS_BASE_URL"), env("TARGET_SERVER_BASE_URL"), cfg.BaseURL)
	cfg.RepoType = firstNonEmpty(env("REPOATLAS_REPO_TYPE"), cfg.RepoType)
	cfg.LogLevel = firstNonEmpty(env("REPOATLAS_LOG_LEVEL"), cfg.LogLevel)
	if raw := env("REPOATLAS_POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("REPOATLAS_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval.Duration = d
	}
	if raw := env("REPOATLAS_H2C"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("REPOATLAS_H2C: %w", err)
		}
		cfg.H2C = v
	}

	c := &cfg.Cache
	c.Backend = firstNonEmpty(env("REPOATLAS_CACHE_BACKEND"), c.Backend)
	c.DiskRoot = firstNonEmpty(env("REPOATLAS_CACHE_DIR"), c.DiskRoot)
	c.PostgresDSN = firstNonEmpty(env("REPOATLAS_CACHE_PG_DSN"), c.PostgresDSN)
	if raw := env("REPOATLAS_CACHE_MEMORY_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("REPOATLAS_CACHE_MEMORY_TTL: %w", err)
		}
		c.MemoryTTL.Duration = d
	}
	c.S3.Endpoint = firstNonEmpty(env("REPOATLAS_S3_ENDPOINT"), c.S3.Endpoint)
	c.S3.Region = firstNonEmpty(env("REPOATLAS_S3_REGION"), c.S3.Region)
	c.S3.AccessKey = firstNonEmpty(env("REPOATLAS_S3_ACCESS_KEY"), env("MINIO_ROOT_USER"), c.S3.AccessKey)
	c.S3.SecretKey = firstNonEmpty(env("REPOATLAS_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD"), c.S3.SecretKey)
	c.S3.Bucket = firstNonEmpty(env("REPOATLAS_S3_BUCKET"), c.S3.Bucket)
	if raw := env("REPOATLAS_S3_USE_SSL"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("REPOATLAS_S3_USE_SSL: %w", err)
		}
		c.S3.UseSSL = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.BaseURL = strings.TrimRight(firstNonEmpty(cfg.BaseURL, DefaultBaseURL), "/")
	if cfg.PollInterval.Duration <= 0 {
		cfg.PollInterval.Duration = DefaultPollInterval
	}
	cfg.RepoType = firstNonEmpty(cfg.RepoType, DefaultRepoType)
	cfg.LogLevel = firstNonEmpty(cfg.LogLevel, "info")

	c := &cfg.Cache
	c.Backend = strings.ToLower(firstNonEmpty(c.Backend, "remote"))
	if c.MemoryTTL.Duration <= 0 {
		c.MemoryTTL.Duration = 10 * time.Minute
	}
	if c.MemoryMaxEntries <= 0 {
		c.MemoryMaxEntries = 256
	}
	c.DiskRoot = firstNonEmpty(c.DiskRoot, ".cache/repoatlas")
	c.S3.Region = firstNonEmpty(c.S3.Region, "us-east-1")
	c.S3.Bucket = firstNonEmpty(c.S3.Bucket, "repoatlas-cache")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
