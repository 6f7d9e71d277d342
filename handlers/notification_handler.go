package handlers

import (
	"worklink_backend/models"
	"worklink_backend/services"

	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

// List returns one page of the caller's notifications, newest first.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	notifications, total, err := h.Notifications.List(c.Context(), userID, page, pageSize)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	return c.JSON(models.SuccessResponse(
		"Notifications fetched successfully",
		notifications,
		models.NewPaginationMeta(page, pageSize, total),
	))
}

// UnreadCount returns the caller's notification badge number.
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	count, err := h.Notifications.UnreadCount(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// MarkRead flips one notification's read flag. Only the recipient can.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	notificationID, err := c.ParamsInt("notificationID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	if err := h.Notifications.MarkRead(c.Context(), uint(notificationID), userID); err != nil {
		return respondServiceError(c, userID, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// RegisterDeviceRequest defines the payload for registering a push token.
type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterDevice stores or refreshes a push destination for the caller.
func (h *NotificationHandler) RegisterDevice(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var req RegisterDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	if err := h.Notifications.RegisterDevice(c.Context(), userID, req.Token, req.Platform); err != nil {
		return respondServiceError(c, userID, err)
	}
	return c.JSON(fiber.Map{"message": "Device registered successfully"})
}
