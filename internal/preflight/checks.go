package preflight

import (
	"codonledger/internal/blobstore"
	"codonledger/internal/config"
	"context"
	"fmt"
	"log"
	"time"
)

// Check statuses
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"
)

// probeName is looked up (never written) to verify blob store access
const probeName = "preflight-probe"

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Pinger is implemented by cache backends that can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before the server starts
type Checker struct {
	cfg     *config.Config
	cache   Pinger
	blobs   blobstore.Store
	timeout time.Duration
}

// NewChecker creates a new preflight checker. cache and blobs may be nil.
func NewChecker(cfg *config.Config, cache Pinger, blobs blobstore.Store) *Checker {
	return &Checker{
		cfg:     cfg,
		cache:   cache,
		blobs:   blobs,
		timeout: 5 * time.Second,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkJWTSecret(),
		c.checkAllowedOrigins(),
		c.checkQueryCache(ctx),
		c.checkBlobStore(ctx),
	}

	passed, failed, warnings := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case StatusPass:
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case StatusFail:
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case StatusWarning:
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}

func (c *Checker) checkJWTSecret() CheckResult {
	name := "JWT Secret"
	switch {
	case c.cfg.JWTSecret != "":
		return CheckResult{Name: name, Status: StatusPass, Message: "Signing secret configured"}
	case c.cfg.IsProduction():
		return CheckResult{Name: name, Status: StatusFail, Message: "JWT_SECRET is required in production"}
	default:
		return CheckResult{Name: name, Status: StatusWarning, Message: "Using a per-process random secret (tokens do not survive restarts)"}
	}
}

func (c *Checker) checkAllowedOrigins() CheckResult {
	name := "Allowed Origins"
	if c.cfg.AllowedOrigins == "" || c.cfg.AllowedOrigins == "*" {
		if c.cfg.IsProduction() {
			return CheckResult{Name: name, Status: StatusWarning, Message: "Any origin may open live update connections"}
		}
		return CheckResult{Name: name, Status: StatusPass, Message: "Wildcard origins (development)"}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: c.cfg.AllowedOrigins}
}

// checkQueryCache never fails: an unreachable cache only degrades queries
func (c *Checker) checkQueryCache(ctx context.Context) CheckResult {
	name := "Query Cache"
	if c.cache == nil {
		return CheckResult{Name: name, Status: StatusPass, Message: fmt.Sprintf("Backend %q needs no connection", c.cfg.CacheBackend)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.cache.Ping(ctx); err != nil {
		return CheckResult{
			Name:    name,
			Status:  StatusWarning,
			Message: "Cache not reachable, queries will be served degraded until it is",
			Error:   err,
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: "Cache reachable"}
}

func (c *Checker) checkBlobStore(ctx context.Context) CheckResult {
	name := "Blob Store"
	if c.blobs == nil {
		return CheckResult{Name: name, Status: StatusWarning, Message: "Blob store not configured, file endpoints disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.blobs.Exists(ctx, probeName); err != nil {
		status := StatusWarning
		if c.cfg.IsProduction() {
			status = StatusFail
		}
		return CheckResult{
			Name:    name,
			Status:  status,
			Message: fmt.Sprintf("Cannot reach %s blob store", c.blobs.Backend()),
			Error:   err,
		}
	}
	return CheckResult{Name: name, Status: StatusPass, Message: fmt.Sprintf("%s blob store reachable", c.blobs.Backend())}
}
