package handlers

import (
	"codonledger/internal/services"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store *services.LedgerStore
	hub   *services.NotificationHub
	cache *services.QueryCache
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *services.LedgerStore, hub *services.NotificationHub, cache *services.QueryCache) *HealthHandler {
	return &HealthHandler{store: store, hub: hub, cache: cache}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	stats := h.store.Stats()
	body := fiber.Map{
		"status":    "healthy",
		"observers": h.hub.Count(),
		"sessions":  stats.Sessions,
		"codons":    stats.Codons,
		"outcomes":  stats.Outcomes,
		"cache":     h.cache.BackendName(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if entries, ok := h.cache.Entries(); ok {
		body["cacheEntries"] = entries
	}
	return c.JSON(body)
}
