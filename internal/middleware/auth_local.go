package middleware

import (
	"codonledger/internal/logging"
	"codonledger/internal/services"
	"codonledger/pkg/auth"
	"log"

	"github.com/gofiber/fiber/v2"
)

// LocalAuthMiddleware verifies local JWT tokens.
// Supports both Authorization header and query parameter (for WebSocket connections)
func LocalAuthMiddleware(jwtAuth *auth.LocalJWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtAuth == nil {
			log.Println("❌ [AUTH] JWT auth not configured, refusing request")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":         "Authentication service unavailable",
				"code":          "auth_error",
				"correlationId": CorrelationID(c),
			})
		}

		// Try to extract token from multiple sources
		var token string

		// 1. Try Authorization header first
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			extractedToken, err := auth.ExtractToken(authHeader)
			if err == nil {
				token = extractedToken
			}
		}

		// 2. Try query parameter (for WebSocket connections)
		if token == "" {
			token = c.Query("token")
		}

		// No token found
		if token == "" {
			return unauthorized(c, "missing or invalid authorization token")
		}

		// Verify JWT token
		user, err := jwtAuth.VerifyAccessToken(token)
		if err != nil {
			return unauthorized(c, "invalid or expired token: "+err.Error())
		}

		// Store user info in context
		c.Locals("user_id", user.ID)
		c.Locals("user_email", user.Email)
		c.Locals("user_role", user.Role)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, reason string) error {
	authErr := &services.AuthError{Reason: reason}
	logging.WithRequest(CorrelationID(c), "").Warn("❌ [AUTH] request rejected", "path", c.Path(), "reason", reason)

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":         authErr.Error(),
		"code":          "auth_error",
		"correlationId": CorrelationID(c),
	})
}
