package handlers

import (
	"log"

	"worklink_backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// respondServiceError maps the service layer's sentinel errors onto HTTP
// statuses. Authorization failures additionally leave a potential-abuse log
// line carrying the caller's identity.
func respondServiceError(c *fiber.Ctx, userID uint, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		log.Printf("Potential abuse by user %d: %v", userID, err)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not allowed to perform this action"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Resource not found"})
	default:
		log.Printf("Request failed for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong"})
	}
}
