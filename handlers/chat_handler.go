package handlers

import (
	"log"
	"strconv"
	"time"

	"worklink_backend/internal/ws"
	"worklink_backend/models"
	"worklink_backend/services"
	"worklink_backend/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ChatHandler struct {
	Hub      *ws.Hub
	DB       *gorm.DB
	Chat     *services.ChatService
	Presence *services.PresenceService
	Deps     *ws.Deps
}

func NewChatHandler(hub *ws.Hub, db *gorm.DB, chat *services.ChatService, presence *services.PresenceService, deps *ws.Deps) *ChatHandler {
	return &ChatHandler{
		Hub:      hub,
		DB:       db,
		Chat:     chat,
		Presence: presence,
		Deps:     deps,
	}
}

// WebSocketUpgradeMiddleware ensures the client is trying to upgrade to
// WebSocket and stashes the raw query string, which the upgraded connection
// can no longer reach but token extraction needs.
func (h *ChatHandler) WebSocketUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		c.Locals("raw_query", string(c.Request().URI().QueryString()))
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket handler. Authentication happens after the
// upgrade so the close frame can carry a code telling the client why it was
// rejected.
func (h *ChatHandler) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		rawQuery, _ := c.Locals("raw_query").(string)
		token := utils.TokenFromQuery(c.Query("token"), rawQuery)
		if token == "" {
			closeWithCode(c, ws.CloseMissingToken, "authentication token required")
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			closeWithCode(c, ws.CloseInvalidToken, "invalid or expired token")
			return
		}
		if claims.TokenType != utils.TokenTypeAccess {
			closeWithCode(c, ws.CloseWrongTokenType, "access token required")
			return
		}

		var user models.User
		if err := h.DB.First(&user, claims.UserID).Error; err != nil || !user.IsActive {
			closeWithCode(c, ws.CloseInactiveAccount, "account is not active")
			return
		}

		client := ws.NewClient(h.Hub, c, claims.UserID, h.Deps)

		// Last connect wins: the previous session for this user, if any,
		// is told why it is going away and closed.
		if prev := h.Hub.Registry.Register(claims.UserID, client); prev != nil {
			log.Printf("Evicting previous connection of user %d", claims.UserID)
			prev.Evict()
		}

		// Optional room pre-selection so the client starts focused.
		if roomID, err := strconv.Atoi(c.Query("room_id")); err == nil && roomID > 0 {
			h.Hub.Registry.SetRoom(claims.UserID, uint(roomID))
		}

		go client.WritePump()
		client.AnnounceOnline()
		client.ReadPump()
	})
}

func closeWithCode(c *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.Close()
}

// InitDirectChatRequest defines the payload for starting a chat.
type InitDirectChatRequest struct {
	TargetUserID uint `json:"target_user_id"`
}

// InitDirectChat gets the existing direct room with the target user or
// creates a new one. Calling it twice, in either order, lands on the same
// room.
func (h *ChatHandler) InitDirectChat(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	var req InitDirectChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	room, created, err := h.Chat.GetOrCreateDirectRoom(c.Context(), userID, req.TargetUserID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"room_id": room.ID,
		"created": created,
	})
}

// GetMyChats returns the user's chat list with the other participant, the
// last-message preview and the unread count per room.
func (h *ChatHandler) GetMyChats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	summaries, err := h.Chat.ListRoomsWithMeta(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// GetChatMessages retrieves one page of a room's messages, newest first.
func (h *ChatHandler) GetChatMessages(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	roomID, err := c.ParamsInt("roomID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room ID"})
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 50)

	views, total, err := h.Chat.PageMessages(c.Context(), uint(roomID), userID, page, pageSize)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	return c.JSON(models.SuccessResponse(
		"Messages fetched successfully",
		views,
		models.NewPaginationMeta(page, pageSize, total),
	))
}

// MarkRoomRead flags every message addressed to the caller in the room as
// read and tells the other live participants via a message_read event.
func (h *ChatHandler) MarkRoomRead(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	roomID, err := c.ParamsInt("roomID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room ID"})
	}

	if err := h.Chat.MarkRoomRead(c.Context(), uint(roomID), userID); err != nil {
		return respondServiceError(c, userID, err)
	}

	frame := ws.Frame(ws.EventMessageRead, map[string]interface{}{
		"room_id":   uint(roomID),
		"reader_id": userID,
	})
	h.Hub.BroadcastToRoom(c.Context(), frame, uint(roomID), userID)

	return c.JSON(fiber.Map{"message": "Messages marked as read"})
}

// UnreadCounts returns, per room, how many unread messages await the caller.
func (h *ChatHandler) UnreadCounts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	counts, err := h.Chat.UnreadCountsByRoom(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}
	return c.JSON(fiber.Map{"data": counts})
}

// GetRoomStatus returns, for each participant of the room, whether they are
// online and whether their connection is currently focused on this room.
func (h *ChatHandler) GetRoomStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	roomID, err := c.ParamsInt("roomID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room ID"})
	}

	in, err := h.Chat.IsActiveParticipant(c.Context(), uint(roomID), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}
	if !in {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a member of this chat room"})
	}

	participantIDs, err := h.Chat.ActiveParticipantIDs(c.Context(), uint(roomID))
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	inRoom := make(map[uint]bool)
	for _, id := range h.Hub.Registry.UsersInRoom(uint(roomID)) {
		inRoom[id] = true
	}

	type UserRoomStatus struct {
		UserID   uint `json:"user_id"`
		InRoom   bool `json:"in_room"`
		IsOnline bool `json:"is_online"`
	}

	statuses := make([]UserRoomStatus, 0, len(participantIDs))
	for _, id := range participantIDs {
		online, err := h.Presence.IsOnline(c.Context(), id)
		if err != nil {
			return respondServiceError(c, userID, err)
		}
		statuses = append(statuses, UserRoomStatus{
			UserID:   id,
			InRoom:   inRoom[id],
			IsOnline: online,
		})
	}

	return c.JSON(fiber.Map{
		"room_id":  roomID,
		"statuses": statuses,
	})
}

// DeleteChat soft-deletes the room and tells its live participants via a
// room_deleted event.
func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	roomID, err := c.ParamsInt("roomID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid room ID"})
	}

	participantIDs, err := h.Chat.DeactivateRoom(c.Context(), uint(roomID), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	frame := ws.Frame(ws.EventRoomDeleted, map[string]interface{}{
		"room_id":    uint(roomID),
		"deleted_by": userID,
	})
	h.Hub.BroadcastToUsers(frame, participantIDs...)

	return c.JSON(fiber.Map{"message": "Chat deleted successfully"})
}

// UpdateMessageRequest defines the payload for editing a message.
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// UpdateMessage edits a text message the caller sent and broadcasts the new
// shape to the room.
func (h *ChatHandler) UpdateMessage(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	messageID, err := c.ParamsInt("messageID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message ID"})
	}

	var req UpdateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	msg, err := h.Chat.UpdateMessage(c.Context(), uint(messageID), userID, req.Content)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	frame := ws.Frame(ws.EventMessageUpdated, map[string]interface{}{"message": msg})
	h.Hub.BroadcastToRoom(c.Context(), frame, msg.ChatRoomID, 0)

	return c.JSON(fiber.Map{"data": msg})
}

// DeleteMessage soft-deletes a message the caller sent. The row survives
// with placeholder content so already fetched pages keep stable ids, and the
// room sees the change as a message_updated event.
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	messageID, err := c.ParamsInt("messageID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message ID"})
	}

	msg, err := h.Chat.DeleteMessage(c.Context(), uint(messageID), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	frame := ws.Frame(ws.EventMessageUpdated, map[string]interface{}{"message": msg})
	h.Hub.BroadcastToRoom(c.Context(), frame, msg.ChatRoomID, 0)

	return c.JSON(fiber.Map{"data": msg})
}

// ToggleLike flips the caller's like on a message and broadcasts the new
// count to the room.
func (h *ChatHandler) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	messageID, err := c.ParamsInt("messageID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message ID"})
	}

	liked, count, err := h.Chat.ToggleLike(c.Context(), uint(messageID), userID)
	if err != nil {
		return respondServiceError(c, userID, err)
	}

	var msg models.Message
	if err := h.DB.Select("id, chat_room_id").First(&msg, messageID).Error; err == nil {
		frame := ws.Frame(ws.EventMessageUpdated, map[string]interface{}{
			"message_id": uint(messageID),
			"like_count": count,
		})
		h.Hub.BroadcastToRoom(c.Context(), frame, msg.ChatRoomID, 0)
	}

	return c.JSON(fiber.Map{
		"liked":      liked,
		"like_count": count,
	})
}
