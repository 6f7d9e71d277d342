package handlers

import (
	"log"

	"worklink_backend/models"
	"worklink_backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserHandler struct {
	DB            *gorm.DB
	Notifications *services.NotificationService
}

func NewUserHandler(db *gorm.DB, notifications *services.NotificationService) *UserHandler {
	return &UserHandler{DB: db, Notifications: notifications}
}

// SearchUsers allows searching for users by username or email.
func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter 'q' is required",
		})
	}

	currentUserID := c.Locals("user_id")

	var users []models.User
	err := h.DB.Select("id, username, email, full_name, image_url, headline, role").
		Where("(username LIKE ? OR email LIKE ?) AND id != ? AND is_active = ?",
			"%"+query+"%", "%"+query+"%", currentUserID, true).
		Limit(10).
		Find(&users).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not search users",
		})
	}

	return c.JSON(fiber.Map{"data": users})
}

// GetProfile returns one user's public profile.
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var user models.User
	if err := h.DB.Select("id, username, full_name, image_url, headline, role, created_at").
		Where("is_active = ?", true).
		First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var followers int64
	h.DB.Model(&models.Follow{}).Where("followed_id = ?", user.ID).Count(&followers)

	return c.JSON(fiber.Map{
		"data":      user,
		"followers": followers,
	})
}

// FollowUser records a follow edge and notifies the followed user. Following
// someone you already follow is a no-op.
func (h *UserHandler) FollowUser(c *fiber.Ctx) error {
	followerID := c.Locals("user_id").(uint)
	targetID, err := c.ParamsInt("userID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}
	if uint(targetID) == followerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot follow yourself"})
	}

	var target models.User
	if err := h.DB.Where("is_active = ?", true).First(&target, targetID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	var existing models.Follow
	findErr := h.DB.Where("follower_id = ? AND followed_id = ?", followerID, targetID).
		First(&existing).Error
	if findErr == nil {
		return c.JSON(fiber.Map{"message": "Already following"})
	}

	var follower models.User
	if err := h.DB.First(&follower, followerID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not follow user"})
	}

	follow := models.Follow{FollowerID: followerID, FollowedID: uint(targetID)}
	if err := h.DB.Create(&follow).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not follow user"})
	}

	if err := h.Notifications.NotifyFollow(c.Context(), uint(targetID), followerID, follower.FullName); err != nil {
		log.Printf("Failed to record follow notification: %v", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Followed successfully"})
}

// UnfollowUser removes the follow edge if present.
func (h *UserHandler) UnfollowUser(c *fiber.Ctx) error {
	followerID := c.Locals("user_id").(uint)
	targetID, err := c.ParamsInt("userID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	h.DB.Where("follower_id = ? AND followed_id = ?", followerID, targetID).
		Delete(&models.Follow{})

	return c.JSON(fiber.Map{"message": "Unfollowed successfully"})
}
