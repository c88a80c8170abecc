package preflight

import (
	"codonledger/internal/blobstore"
	"codonledger/internal/config"
	"codonledger/internal/services"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

// brokenStore fails every call
type brokenStore struct{}

func (brokenStore) Put(ctx context.Context, name string, data []byte, contentType string) (*blobstore.Object, error) {
	return nil, errors.New("bucket missing")
}

func (brokenStore) Get(ctx context.Context, name string) ([]byte, *blobstore.Object, error) {
	return nil, nil, errors.New("bucket missing")
}

func (brokenStore) Exists(ctx context.Context, name string) (bool, error) {
	return false, errors.New("bucket missing")
}

func (brokenStore) Backend() string { return "s3" }

func findResult(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result named %q", name)
	return CheckResult{}
}

func TestRunAll_HealthyDevelopment(t *testing.T) {
	mr := miniredis.RunT(t)
	redisService, err := services.NewRedisService("redis://"+mr.Addr(), time.Second)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer redisService.Close()

	blobs, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	cfg := &config.Config{Environment: "development", JWTSecret: "secret", AllowedOrigins: "http://localhost:3000", CacheBackend: "redis"}
	results := NewChecker(cfg, redisService, blobs).RunAll(context.Background())

	if HasFailures(results) {
		t.Fatalf("expected no failures, got %+v", results)
	}
	for _, r := range results {
		if r.Status != StatusPass {
			t.Errorf("%s: expected pass, got %s (%s)", r.Name, r.Status, r.Message)
		}
	}
}

func TestCheckJWTSecret(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.Config
		status string
	}{
		{"configured", config.Config{JWTSecret: "s"}, StatusPass},
		{"missing in development", config.Config{Environment: "development"}, StatusWarning},
		{"missing in production", config.Config{Environment: "production"}, StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewChecker(&tt.cfg, nil, nil).checkJWTSecret()
			if result.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, result.Status)
			}
		})
	}
}

func TestCheckQueryCache_UnreachableIsWarning(t *testing.T) {
	cfg := &config.Config{CacheBackend: "redis"}
	result := NewChecker(cfg, failingPinger{}, nil).checkQueryCache(context.Background())

	if result.Status != StatusWarning {
		t.Errorf("expected warning, got %s", result.Status)
	}
	if result.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestCheckBlobStore(t *testing.T) {
	dev := &config.Config{Environment: "development"}
	prod := &config.Config{Environment: "production"}

	if r := NewChecker(dev, nil, nil).checkBlobStore(context.Background()); r.Status != StatusWarning {
		t.Errorf("missing store: expected warning, got %s", r.Status)
	}
	if r := NewChecker(dev, nil, brokenStore{}).checkBlobStore(context.Background()); r.Status != StatusWarning {
		t.Errorf("broken store in development: expected warning, got %s", r.Status)
	}

	results := NewChecker(prod, nil, brokenStore{}).RunAll(context.Background())
	if r := findResult(t, results, "Blob Store"); r.Status != StatusFail {
		t.Errorf("broken store in production: expected fail, got %s", r.Status)
	}
	if !HasFailures(results) {
		t.Error("expected HasFailures to report the failure")
	}
}

func TestCheckAllowedOrigins_WildcardInProduction(t *testing.T) {
	result := NewChecker(&config.Config{Environment: "production", AllowedOrigins: "*"}, nil, nil).checkAllowedOrigins()
	if result.Status != StatusWarning {
		t.Errorf("expected warning, got %s", result.Status)
	}
}
