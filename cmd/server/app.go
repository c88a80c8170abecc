package main

import (
	"codonledger/internal/blobstore"
	"codonledger/internal/config"
	"codonledger/internal/handlers"
	"codonledger/internal/middleware"
	"codonledger/internal/services"
	"codonledger/pkg/auth"
	"log"
	"strings"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
)

// application bundles the long-lived components the routes are built on
type application struct {
	store      *services.LedgerStore
	hub        *services.NotificationHub
	cache      *services.QueryCache
	metrics    *services.Metrics
	jwtAuth    *auth.LocalJWTAuth
	blobs      blobstore.Store
	rateLimits *middleware.RateLimitConfig
}

// newApplication wires the ledger to the notification hub. Every successful
// mutation is broadcast from inside the ledger lock, so observers see
// updates in mutation order.
func newApplication(cache *services.QueryCache, metrics *services.Metrics, jwtAuth *auth.LocalJWTAuth, blobs blobstore.Store) *application {
	store := services.NewLedgerStore()
	hub := services.NewNotificationHub(metrics)
	store.OnChange(hub.HandleLedgerChange)

	return &application{
		store:      store,
		hub:        hub,
		cache:      cache,
		metrics:    metrics,
		jwtAuth:    jwtAuth,
		blobs:      blobs,
		rateLimits: middleware.LoadRateLimitConfig(),
	}
}

// newServer builds the Fiber app with middleware and routes
func newServer(cfg *config.Config, deps *application, reg prometheus.Registerer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:        "Codon Ledger v1.0",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		BodyLimit:      handlers.DefaultMaxUploadSize + 1024*1024, // multipart overhead on top of the upload cap
		ReadBufferSize: 16384,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Must precede /metrics registration
	app.Use(middleware.Correlation())

	// Prometheus metrics middleware
	prom := fiberprometheus.NewWithRegistry(reg, "codonledger", "codonledger", "http", nil)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders:    middleware.CorrelationHeader,
		AllowCredentials: allowedOrigins != "*",
	}))

	queryService := services.NewQueryService(deps.store, deps.cache, deps.metrics)
	ledgerService := services.NewLedgerService(deps.store, deps.metrics)

	healthHandler := handlers.NewHealthHandler(deps.store, deps.hub, deps.cache)
	codonHandler := handlers.NewCodonHandler(ledgerService, queryService)
	wsHandler := handlers.NewLedgerWebSocketHandler(deps.hub, cfg.ObserverBuffer)

	app.Get("/health", healthHandler.Handle)

	rl := deps.rateLimits
	if rl == nil {
		rl = middleware.DefaultRateLimitConfig()
	}
	writeLimiter := middleware.WriteRateLimiter(rl)

	api := app.Group("/api", middleware.GlobalAPIRateLimiter(rl), middleware.LocalAuthMiddleware(deps.jwtAuth))

	api.Post("/codons", writeLimiter, codonHandler.Create)
	api.Get("/codons", codonHandler.Query)
	api.Get("/codons/:codonId", codonHandler.Get)
	api.Get("/codons/:codonId/timeline", codonHandler.Timeline)
	api.Post("/sessions/:sessionId/codons/:codonId/outcome", writeLimiter, codonHandler.AttachOutcome)
	api.Get("/sessions/:sessionId/strand", codonHandler.Strand)

	if deps.blobs != nil {
		fileHandler := handlers.NewFileHandler(deps.blobs, handlers.DefaultMaxUploadSize)
		api.Post("/files", middleware.UploadRateLimiter(rl), fileHandler.Upload)
		api.Get("/files/:name", fileHandler.Download)
	} else {
		log.Println("⚠️  Blob store not configured, file endpoints disabled")
	}

	// Live updates. The token travels as a query parameter because browsers
	// cannot set headers on websocket upgrades.
	app.Use("/ws", handlers.RequireUpgrade)
	app.Get("/ws/sessions/:sessionId",
		middleware.WebSocketRateLimiter(rl),
		middleware.LocalAuthMiddleware(deps.jwtAuth),
		websocket.New(wsHandler.Handle, websocket.Config{
			Origins: splitOrigins(allowedOrigins),
		}),
	)

	return app
}

func splitOrigins(list string) []string {
	var origins []string
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
