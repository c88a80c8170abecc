package handlers

import (
	"codonledger/internal/logging"
	"codonledger/internal/middleware"
	"codonledger/internal/services"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// writeError maps service errors onto HTTP responses. Every error is logged
// and every error body carries the correlation id of the call.
func writeError(c *fiber.Ctx, err error) error {
	correlationID := middleware.CorrelationID(c)
	userID, _ := c.Locals("user_id").(string)
	logger := logging.WithRequest(correlationID, userID).With("method", c.Method(), "path", c.Path())

	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		authErr       *services.AuthError
	)

	switch {
	case errors.As(err, &validationErr):
		logger.Warn("[API] request rejected", "code", "validation_error", "field", validationErr.Field, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":         validationErr.Error(),
			"field":         validationErr.Field,
			"code":          "validation_error",
			"correlationId": correlationID,
		})
	case errors.As(err, &notFoundErr):
		logger.Warn("[API] resource not found", "code", "not_found", "resource", notFoundErr.Resource, "id", notFoundErr.ID)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":         notFoundErr.Error(),
			"resource":      notFoundErr.Resource,
			"code":          "not_found",
			"correlationId": correlationID,
		})
	case errors.As(err, &authErr):
		logger.Warn("[API] unauthenticated request", "code", "auth_error", "reason", authErr.Reason)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":         authErr.Error(),
			"code":          "auth_error",
			"correlationId": correlationID,
		})
	default:
		logger.Error("❌ [API] internal error", "code", "internal_error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":         "Internal server error",
			"code":          "internal_error",
			"correlationId": correlationID,
		})
	}
}

// identity builds the caller identity from the auth middleware locals.
// Routes mounted without authentication get an AuthError.
func identity(c *fiber.Ctx) (services.Identity, error) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return services.Identity{}, &services.AuthError{Reason: "no authenticated caller"}
	}
	return services.Identity{
		UserID:        userID,
		CorrelationID: middleware.CorrelationID(c),
	}, nil
}

// requestContext carries the request-scoped logger down into the services
func requestContext(c *fiber.Ctx, who services.Identity) context.Context {
	return logging.NewContext(c.UserContext(), logging.WithRequest(who.CorrelationID, who.UserID))
}
