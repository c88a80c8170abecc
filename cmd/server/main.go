package main

import (
	"codonledger/internal/blobstore"
	"codonledger/internal/config"
	"codonledger/internal/jobs"
	"codonledger/internal/logging"
	"codonledger/internal/preflight"
	"codonledger/internal/services"
	"codonledger/pkg/auth"
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Codon Ledger Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Cache: %s, Blobs: %s)", cfg.Port, cfg.CacheBackend, cfg.BlobBackend)

	jwtAuth := setupAuth(cfg)

	metrics := services.NewMetrics(prometheus.DefaultRegisterer)

	queryCache, redisService := setupQueryCache(cfg)
	if redisService != nil {
		defer redisService.Close()
	}

	blobs := setupBlobStore(cfg)

	var cachePinger preflight.Pinger
	if redisService != nil {
		cachePinger = redisService
	}
	checks := preflight.NewChecker(cfg, cachePinger, blobs).RunAll(context.Background())
	if preflight.HasFailures(checks) && cfg.IsProduction() {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	deps := newApplication(queryCache, metrics, jwtAuth, blobs)

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Printf("⚠️  Failed to create job scheduler: %v", err)
	} else {
		if err := jobScheduler.Register("ledger-stats", jobs.NewLedgerStatsJob(deps.store, metrics, cfg.StatsInterval)); err != nil {
			log.Printf("⚠️  %v", err)
		}
		jobScheduler.Start()
	}

	app := newServer(cfg, deps, prometheus.DefaultRegisterer)

	log.Printf("📝 Ledger API: http://localhost:%s/api/codons", cfg.Port)
	log.Printf("🔔 Live updates: ws://localhost:%s/ws/sessions/:sessionId?token=...", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Prometheus metrics endpoint enabled at /metrics")

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		// Stop background jobs
		if jobScheduler != nil {
			if err := jobScheduler.Stop(); err != nil {
				log.Printf("⚠️ Error stopping job scheduler: %v", err)
			}
		}

		// Shutdown Fiber
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// setupAuth builds the JWT verifier. Outside production a missing secret is
// replaced by a random one and a development token is printed.
func setupAuth(cfg *config.Config) *auth.LocalJWTAuth {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			log.Fatal("❌ JWT_SECRET is required in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("❌ Failed to generate JWT secret: %v", err)
		}
		secret = hex.EncodeToString(buf)
		log.Println("⚠️  JWT_SECRET not set, using a random secret for this process")
	}

	jwtAuth, err := auth.NewLocalJWTAuth(secret, cfg.JWTAccessExpiry)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	if cfg.JWTSecret == "" {
		token, err := jwtAuth.GenerateAccessToken("dev-user", "dev@localhost", "developer")
		if err == nil {
			log.Printf("🔑 [AUTH] Development token (expires in %v): %s", cfg.JWTAccessExpiry, token)
		}
	}
	return jwtAuth
}

// setupQueryCache picks the query cache backend. An unreachable Redis is kept
// as the backend: queries run degraded until it comes back.
func setupQueryCache(cfg *config.Config) (*services.QueryCache, *services.RedisService) {
	switch cfg.CacheBackend {
	case "none":
		log.Println("⚠️  Query cache disabled")
		return services.NewQueryCache(nil, cfg.CacheTimeout), nil

	case "redis":
		if cfg.RedisURL == "" {
			log.Println("⚠️  CACHE_BACKEND=redis but REDIS_URL is empty, falling back to in-memory cache")
			break
		}
		redisService, err := services.NewRedisService(cfg.RedisURL, cfg.CacheTimeout)
		if err != nil {
			log.Printf("⚠️  Invalid REDIS_URL (%v), falling back to in-memory cache", err)
			break
		}

		log.Println("✅ Redis query cache configured")
		return services.NewQueryCache(services.NewRedisCacheBackend(redisService), cfg.CacheTimeout), redisService
	}

	log.Println("✅ In-memory query cache enabled")
	return services.NewQueryCache(services.NewMemoryCacheBackend(), cfg.CacheTimeout), nil
}

// setupBlobStore opens the blob pass-through backend. Failures disable the
// file endpoints instead of stopping the server.
func setupBlobStore(cfg *config.Config) blobstore.Store {
	switch cfg.BlobBackend {
	case "s3":
		store, err := blobstore.NewS3Store(context.Background(), blobstore.S3StoreConfig{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize S3 blob store: %v", err)
			return nil
		}
		return store
	default:
		store, err := blobstore.NewLocalStore(cfg.UploadDir)
		if err != nil {
			log.Printf("⚠️  Failed to initialize local blob store: %v", err)
			return nil
		}
		return store
	}
}
