package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

// serviceError maps the service error taxonomy onto HTTP statuses.
// Validation and conflict messages are always safe to surface; unexpected
// errors are redacted in production-like environments and logged in full.
func serviceError(c *fiber.Ctx, cfg *config.Config, err error) error {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: vErr.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Resource not found",
		})
	case services.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message := "Internal server error"
		if !cfg.IsProdLike() {
			message = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: message,
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: true, Message: "Resource not found",
	})
}
