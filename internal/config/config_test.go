package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"CONFIG_FILE", "PORT", "ENVIRONMENT", "JWT_SECRET", "JWT_ACCESS_TOKEN_EXPIRY_MINUTES",
	"ALLOWED_ORIGINS", "REDIS_URL", "CACHE_BACKEND", "CACHE_TIMEOUT_MS", "BLOB_BACKEND",
	"UPLOAD_DIR", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX", "OBSERVER_BUFFER",
	"STATS_INTERVAL_SECONDS",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 500*time.Millisecond, cfg.CacheTimeout)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "local", cfg.BlobBackend)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, 64, cfg.ObserverBuffer)
	assert.Equal(t, time.Minute, cfg.StatsInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RedisURLSelectsRedisBackend(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()
	assert.Equal(t, "redis", cfg.CacheBackend)

	t.Setenv("CACHE_BACKEND", "NONE")
	cfg = Load()
	assert.Equal(t, "none", cfg.CacheBackend)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("CACHE_TIMEOUT_MS", "250")
	t.Setenv("OBSERVER_BUFFER", "8")
	t.Setenv("STATS_INTERVAL_SECONDS", "5")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 250*time.Millisecond, cfg.CacheTimeout)
	assert.Equal(t, 8, cfg.ObserverBuffer)
	assert.Equal(t, 5*time.Second, cfg.StatsInterval)
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "codonledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
cache:
  backend: memory
  timeout_ms: 900
blob:
  backend: s3
  s3_bucket: ledger-blobs
  s3_prefix: uploads/
observer_buffer: 32
`), 0600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg := Load()

	assert.Equal(t, "5000", cfg.Port, "environment wins over the file")
	assert.Equal(t, 900*time.Millisecond, cfg.CacheTimeout)
	assert.Equal(t, "s3", cfg.BlobBackend)
	assert.Equal(t, "ledger-blobs", cfg.S3Bucket)
	assert.Equal(t, "uploads/", cfg.S3Prefix)
	assert.Equal(t, 32, cfg.ObserverBuffer)
}

func TestLoad_BrokenFileIsIgnored(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0600))
	t.Setenv("CONFIG_FILE", path)

	cfg := Load()
	assert.Equal(t, "3001", cfg.Port)
}
