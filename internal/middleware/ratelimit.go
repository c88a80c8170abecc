package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int           // Max requests per minute for all API endpoints
	GlobalAPIExpiration time.Duration // Expiration window

	// Ledger writes (per user ID)
	WriteMax        int
	WriteExpiration time.Duration

	// Blob uploads (per user ID)
	UploadMax        int
	UploadExpiration time.Duration

	// WebSocket/Connection limits (per IP)
	WebSocketMax        int
	WebSocketExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 600/min = 10 req/sec
		GlobalAPIMax:        600,
		GlobalAPIExpiration: 1 * time.Minute,

		// Writes: 300/min per user, agents append in bursts
		WriteMax:        300,
		WriteExpiration: 1 * time.Minute,

		UploadMax:        10,
		UploadExpiration: 1 * time.Minute,

		// WebSocket: 20 connections/min in production
		WebSocketMax:        20,
		WebSocketExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	// Allow environment overrides for tuning
	overrideInt("RATE_LIMIT_GLOBAL_API", &config.GlobalAPIMax)
	overrideInt("RATE_LIMIT_WRITES", &config.WriteMax)
	overrideInt("RATE_LIMIT_UPLOADS", &config.UploadMax)
	overrideInt("RATE_LIMIT_WEBSOCKET", &config.WebSocketMax)

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.GlobalAPIMax = 5000
		config.WriteMax = 5000
		config.WebSocketMax = 100
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

func overrideInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*target = n
		}
	}
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return tooManyRequests(c, "Too many requests. Please slow down.", config.GlobalAPIExpiration)
		},
	})
}

// WriteRateLimiter limits ledger writes per authenticated user
func WriteRateLimiter(config *RateLimitConfig) fiber.Handler {
	return perUserLimiter("write", config.WriteMax, config.WriteExpiration,
		"Too many writes. Please wait before appending more codons.")
}

// UploadRateLimiter limits blob uploads per authenticated user
func UploadRateLimiter(config *RateLimitConfig) fiber.Handler {
	return perUserLimiter("upload", config.UploadMax, config.UploadExpiration,
		"Too many upload requests. Please wait before uploading again.")
}

// WebSocketRateLimiter for WebSocket connection attempts
func WebSocketRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.WebSocketMax,
		Expiration: config.WebSocketExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "ws:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] WebSocket connection limit reached for IP: %s", c.IP())
			return tooManyRequests(c, "Too many connection attempts. Please wait before reconnecting.", config.WebSocketExpiration)
		},
	})
}

func perUserLimiter(prefix string, max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Use user ID if available, fall back to IP
			if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
				return prefix + ":" + userID
			}
			return prefix + "-ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] %s limit reached for user: %v", prefix, c.Locals("user_id"))
			return tooManyRequests(c, message, window)
		},
	})
}

func tooManyRequests(c *fiber.Ctx, message string, window time.Duration) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":         message,
		"code":          "rate_limited",
		"retry_after":   int(window.Seconds()),
		"correlationId": CorrelationID(c),
	})
}
