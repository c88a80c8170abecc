package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string // "production", "development", "testing"

	// Auth
	JWTSecret       string
	JWTAccessExpiry time.Duration
	AllowedOrigins  string

	// Query cache
	RedisURL     string
	CacheBackend string        // "redis", "memory" or "none"
	CacheTimeout time.Duration // budget for one cache backend call

	// Blob pass-through
	BlobBackend string // "local" or "s3"
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // Optional custom endpoint (MinIO, LocalStack)
	S3Prefix    string

	// Fanout
	ObserverBuffer int

	// Background jobs
	StatsInterval time.Duration
}

// fileConfig mirrors Config for the optional YAML file named by CONFIG_FILE.
// Environment variables override anything set here.
type fileConfig struct {
	Port           string `yaml:"port"`
	Environment    string `yaml:"environment"`
	AllowedOrigins string `yaml:"allowed_origins"`
	Auth           struct {
		AccessExpiryMinutes int `yaml:"access_expiry_minutes"`
	} `yaml:"auth"`
	Cache struct {
		Backend   string `yaml:"backend"`
		RedisURL  string `yaml:"redis_url"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"cache"`
	Blob struct {
		Backend    string `yaml:"backend"`
		UploadDir  string `yaml:"upload_dir"`
		S3Bucket   string `yaml:"s3_bucket"`
		S3Region   string `yaml:"s3_region"`
		S3Endpoint string `yaml:"s3_endpoint"`
		S3Prefix   string `yaml:"s3_prefix"`
	} `yaml:"blob"`
	ObserverBuffer       int `yaml:"observer_buffer"`
	StatsIntervalSeconds int `yaml:"stats_interval_seconds"`
}

// Load loads configuration from the optional YAML file and environment
// variables, in that order of precedence (environment wins).
func Load() *Config {
	base := fileConfig{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := loadFile(path)
		if err != nil {
			log.Printf("⚠️  Ignoring config file: %v", err)
		} else {
			base = *fc
			log.Printf("✅ Config file loaded: %s", path)
		}
	}

	redisURL := getEnv("REDIS_URL", base.Cache.RedisURL)
	defaultBackend := "memory"
	if redisURL != "" {
		defaultBackend = "redis"
	}

	return &Config{
		Port:        getEnv("PORT", orDefault(base.Port, "3001")),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", base.Environment)),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: time.Duration(getIntEnv("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", orDefaultInt(base.Auth.AccessExpiryMinutes, 15))) * time.Minute,
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", orDefault(base.AllowedOrigins, "http://localhost:5173,http://localhost:3000")),

		RedisURL:     redisURL,
		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", orDefault(base.Cache.Backend, defaultBackend))),
		CacheTimeout: time.Duration(getIntEnv("CACHE_TIMEOUT_MS", orDefaultInt(base.Cache.TimeoutMS, 500))) * time.Millisecond,

		BlobBackend: strings.ToLower(getEnv("BLOB_BACKEND", orDefault(base.Blob.Backend, "local"))),
		UploadDir:   getEnv("UPLOAD_DIR", orDefault(base.Blob.UploadDir, "./uploads")),
		S3Bucket:    getEnv("S3_BUCKET", base.Blob.S3Bucket),
		S3Region:    getEnv("S3_REGION", orDefault(base.Blob.S3Region, "us-east-1")),
		S3Endpoint:  getEnv("S3_ENDPOINT", base.Blob.S3Endpoint),
		S3Prefix:    getEnv("S3_PREFIX", base.Blob.S3Prefix),

		ObserverBuffer: getIntEnv("OBSERVER_BUFFER", orDefaultInt(base.ObserverBuffer, 64)),
		StatsInterval:  time.Duration(getIntEnv("STATS_INTERVAL_SECONDS", orDefaultInt(base.StatsIntervalSeconds, 60))) * time.Second,
	}
}

// loadFile parses a YAML configuration file
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func orDefaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}
