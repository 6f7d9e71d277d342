package ws

import (
	"context"
	"log"

	"worklink_backend/models"

	"gorm.io/gorm"
)

// Hub is the fan-out broadcaster: given a serialized frame and an audience,
// it pushes to whichever recipients currently hold a live connection. This
// is a best-effort live channel: absent recipients are silently skipped,
// durability is the notification dispatcher's job.
type Hub struct {
	Registry *Registry
	DB       *gorm.DB
}

func NewHub(registry *Registry, db *gorm.DB) *Hub {
	return &Hub{Registry: registry, DB: db}
}

// Send pushes one frame to one user's live connection, if any. A recipient
// whose send buffer is wedged is treated as gone: removed from the registry
// and closed, so one broken socket never blocks the rest of the fan-out.
func (h *Hub) Send(userID uint, frame []byte) bool {
	client := h.Registry.Client(userID)
	if client == nil {
		return false
	}

	select {
	case client.Send <- frame:
		return true
	default:
		log.Printf("Dropping stale connection for user %d", userID)
		h.Registry.Unregister(userID, client)
		client.Close()
		return false
	}
}

// BroadcastToUsers pushes a frame to each named user that is live.
func (h *Hub) BroadcastToUsers(frame []byte, userIDs ...uint) {
	for _, id := range userIDs {
		h.Send(id, frame)
	}
}

// BroadcastToRoom resolves the room's active participants from the store and
// pushes to the live ones, optionally excluding one user (usually the
// originator).
func (h *Hub) BroadcastToRoom(ctx context.Context, frame []byte, roomID, excludeUserID uint) {
	var participantIDs []uint
	err := h.DB.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("chat_room_id = ? AND is_active = ?", roomID, true).
		Pluck("user_id", &participantIDs).Error
	if err != nil {
		log.Printf("Failed to resolve participants of room %d: %v", roomID, err)
		return
	}

	for _, id := range participantIDs {
		if id == excludeUserID {
			continue
		}
		h.Send(id, frame)
	}
}
