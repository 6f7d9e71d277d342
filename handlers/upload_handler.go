package handlers

import (
	"fmt"
	"path/filepath"

	"worklink_backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadHandler handles multipart uploads that live outside the chat flow.
// Chat attachments arrive inline over the websocket instead.
type UploadHandler struct {
	DB         *gorm.DB
	UploadRoot string
}

func NewUploadHandler(db *gorm.DB, uploadRoot string) *UploadHandler {
	return &UploadHandler{DB: db, UploadRoot: uploadRoot}
}

// UploadAvatar stores a profile image and points the caller's profile at it.
func (h *UploadHandler) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image file is required",
		})
	}

	ext := filepath.Ext(file.Filename)
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only .jpg, .jpeg, and .png files are allowed",
		})
	}

	filename := fmt.Sprintf("%d_%s%s", userID, uuid.New().String(), ext)
	destination := filepath.Join(h.UploadRoot, "avatars", filename)

	if err := c.SaveFile(file, destination); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save file",
		})
	}

	imageURL := fmt.Sprintf("/uploads/avatars/%s", filename)
	if err := h.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("image_url", imageURL).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update profile",
		})
	}

	return c.JSON(fiber.Map{"url": imageURL})
}
