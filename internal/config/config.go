package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the reconciliation worker
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Worker   WorkerConfig   `yaml:"worker"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Lock     LockConfig     `yaml:"lock"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the trigger HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the lead store connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the configured lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the optional Redis connection used by the result cache
// and the tick lock. An empty URL disables both.
type RedisConfig struct {
	URL             string `yaml:"url"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// CacheTTL returns the result cache TTL as a duration
func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// ProviderConfig holds verification provider API settings
type ProviderConfig struct {
	StatusURL      string `yaml:"status_url"`
	Secret         string `yaml:"secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// DownloadRetries applies to result-file downloads only; status polls never retry.
	DownloadRetries int `yaml:"download_retries"`
}

// Timeout returns the configured timeout as a duration
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WorkerConfig controls one reconciliation tick
type WorkerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	BatchLimit      int `yaml:"batch_limit"`
	UpdateChunkSize int `yaml:"update_chunk_size"`
}

// Interval returns the tick interval; zero disables the internal ticker
// and leaves only the HTTP trigger.
func (c WorkerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ArchiveConfig holds the optional S3 archive for raw result files
type ArchiveConfig struct {
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// Enabled reports whether a bucket is configured.
func (c ArchiveConfig) Enabled() bool { return c.S3Bucket != "" }

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ArchiveConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda use the task role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// LockConfig holds the optional tick guard settings
type LockConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Key        string `yaml:"key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the lock TTL as a duration
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedact defaults to true when unset.
func (c LoggingConfig) ShouldRedact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file. An empty path yields
// defaults only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Redis.CacheTTLMinutes == 0 {
		cfg.Redis.CacheTTLMinutes = 60
	}
	if cfg.Provider.StatusURL == "" {
		cfg.Provider.StatusURL = "https://apps.emaillistverify.com/api/getApiFileInfo"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Provider.DownloadRetries == 0 {
		cfg.Provider.DownloadRetries = 3
	}
	if cfg.Worker.BatchLimit == 0 {
		cfg.Worker.BatchLimit = 20
	}
	if cfg.Worker.UpdateChunkSize == 0 {
		cfg.Worker.UpdateChunkSize = 200
	}
	if cfg.Archive.S3Prefix == "" {
		cfg.Archive.S3Prefix = "verification-results/"
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = "us-west-2"
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "verification-reconcile-tick"
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 600
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is loaded first if present, so secrets can live in .env
// locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("VERIFIER_SECRET"); v != "" {
		cfg.Provider.Secret = v
	}
	if v := os.Getenv("VERIFIER_STATUS_URL"); v != "" {
		cfg.Provider.StatusURL = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Worker.IntervalSeconds = secs
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate rejects configurations the worker cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) is required"))
	}
	if c.Provider.Secret == "" {
		errs = append(errs, errors.New("provider.secret (VERIFIER_SECRET) is required"))
	}
	if c.Worker.BatchLimit < 0 || c.Worker.UpdateChunkSize < 0 {
		errs = append(errs, errors.New("worker.batch_limit and worker.update_chunk_size must be positive"))
	}
	if c.Lock.Enabled && c.Lock.TTLSeconds <= 0 {
		errs = append(errs, errors.New("lock.ttl_seconds must be positive when the lock is enabled"))
	}
	return errors.Join(errs...)
}
