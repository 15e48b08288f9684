package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://test@localhost/test"
  max_open_conns: 4

provider:
  status_url: "http://provider.local/status"
  secret: "s3cret"
  timeout_seconds: 15

worker:
  interval_seconds: 300
  batch_limit: 5
  update_chunk_size: 50

lock:
  enabled: true
  ttl_seconds: 120

logging:
  level: debug
  redact_pii: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "postgres://test@localhost/test", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)

	assert.Equal(t, "http://provider.local/status", cfg.Provider.StatusURL)
	assert.Equal(t, "s3cret", cfg.Provider.Secret)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout())
	assert.Equal(t, 3, cfg.Provider.DownloadRetries)

	assert.Equal(t, 5*time.Minute, cfg.Worker.Interval())
	assert.Equal(t, 5, cfg.Worker.BatchLimit)
	assert.Equal(t, 50, cfg.Worker.UpdateChunkSize)

	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Lock.TTL())
	assert.Equal(t, "verification-reconcile-tick", cfg.Lock.Key)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.ShouldRedact())
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 20, cfg.Worker.BatchLimit)
	assert.Equal(t, 200, cfg.Worker.UpdateChunkSize)
	assert.Equal(t, time.Duration(0), cfg.Worker.Interval())
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout())
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL())
	assert.False(t, cfg.Archive.Enabled())
	assert.False(t, cfg.Lock.Enabled)
	assert.True(t, cfg.Logging.ShouldRedact())
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("worker: [unterminated"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env@db/leads")
	t.Setenv("VERIFIER_SECRET", "env-secret")
	t.Setenv("VERIFIER_STATUS_URL", "http://env.local/status")
	t.Setenv("ARCHIVE_S3_BUCKET", "results-bucket")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("WORKER_INTERVAL_SECONDS", "60")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@db/leads", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.Provider.Secret)
	assert.Equal(t, "http://env.local/status", cfg.Provider.StatusURL)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Worker.Interval())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "VERIFIER_SECRET")
}

func TestArchiveProfileOverride(t *testing.T) {
	c := ArchiveConfig{AWSProfile: "local"}
	t.Setenv("AWS_PROFILE_OVERRIDE", "iam")
	assert.Equal(t, "", c.GetAWSProfile())
}
