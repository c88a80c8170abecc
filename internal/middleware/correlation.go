package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CorrelationHeader carries the per-call correlation id on every response
const CorrelationHeader = "X-Correlation-ID"

// Correlation assigns a fresh correlation id to every request. The id is
// distinct from any entity id and is echoed in the response header and body.
func Correlation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := uuid.New().String()
		c.Locals("correlation_id", id)
		c.Set(CorrelationHeader, id)
		return c.Next()
	}
}

// CorrelationID returns the correlation id of the current request, creating
// one if the Correlation middleware did not run.
func CorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals("correlation_id").(string); ok && id != "" {
		return id
	}
	id := uuid.New().String()
	c.Locals("correlation_id", id)
	c.Set(CorrelationHeader, id)
	return id
}
