package services

import (
	"context"
	"time"

	"worklink_backend/models"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MinPageSize = 1
	MaxPageSize = 100
)

// ChatService owns room, participant, message, read-receipt and like
// operations against the durable store.
type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// MessageView is a message hydrated with like information for the requester.
type MessageView struct {
	models.Message
	LikeCount int64 `json:"like_count"`
	LikedByMe bool  `json:"liked_by_me"`
}

// ChatRoomSummary is one entry of a user's chat list.
type ChatRoomSummary struct {
	ID            uint               `json:"id"`
	Type          string             `json:"type"`
	Name          *string            `json:"name"`
	LastMessage   string             `json:"last_message"`
	LastMessageAt *time.Time         `json:"last_message_at"`
	OtherUser     models.UserSummary `json:"other_user"`
	UnreadCount   int64              `json:"unread_count"`
}

// GetOrCreateDirectRoom returns the direct room between two users, creating
// it (with both participant rows) when absent. Lookup is order-independent
// and repeated calls return the same room.
func (s *ChatService) GetOrCreateDirectRoom(ctx context.Context, userID, targetUserID uint) (*models.ChatRoom, bool, error) {
	if userID == targetUserID {
		return nil, false, errors.Wrap(ErrValidation, "cannot chat with yourself")
	}

	var target models.User
	if err := s.db.WithContext(ctx).First(&target, targetUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, errors.Wrapf(ErrNotFound, "user %d", targetUserID)
		}
		return nil, false, errors.Wrap(err, "lookup target user")
	}

	// Find an existing active direct room shared by exactly this pair.
	var roomID uint
	query := `
		SELECT cr.id
		FROM chat_rooms cr
		JOIN chat_participants cp1 ON cr.id = cp1.chat_room_id
		JOIN chat_participants cp2 ON cr.id = cp2.chat_room_id
		WHERE cr.type = 'direct'
		AND cr.is_active = true
		AND cr.deleted_at IS NULL
		AND cp1.user_id = ?
		AND cp2.user_id = ?
		LIMIT 1
	`
	if err := s.db.WithContext(ctx).Raw(query, userID, targetUserID).Scan(&roomID).Error; err != nil {
		return nil, false, errors.Wrap(err, "lookup direct room")
	}

	if roomID != 0 {
		// The caller may have left the room earlier; restore their
		// participation so the pair lookup stays idempotent.
		s.db.WithContext(ctx).Model(&models.ChatParticipant{}).
			Where("chat_room_id = ? AND user_id = ?", roomID, userID).
			Update("is_active", true)

		var room models.ChatRoom
		if err := s.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
			return nil, false, errors.Wrap(err, "load direct room")
		}
		return &room, false, nil
	}

	newRoom := models.ChatRoom{
		Type:      models.RoomTypeDirect,
		CreatorID: userID,
		IsActive:  true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRoom).Error; err != nil {
			return errors.Wrap(err, "create room")
		}
		participants := []models.ChatParticipant{
			{ChatRoomID: newRoom.ID, UserID: userID, IsActive: true},
			{ChatRoomID: newRoom.ID, UserID: targetUserID, IsActive: true},
		}
		if err := tx.Create(&participants).Error; err != nil {
			return errors.Wrap(err, "create participants")
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &newRoom, true, nil
}

// IsActiveParticipant reports whether a user actively belongs to a room.
func (s *ChatService) IsActiveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("chat_room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count participants")
	}
	return count > 0, nil
}

// ActiveParticipantIDs returns the user ids actively in a room.
func (s *ChatService) ActiveParticipantIDs(ctx context.Context, roomID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("chat_room_id = ? AND is_active = ?", roomID, true).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list participants")
	}
	return ids, nil
}

// ActivePeerIDs returns the distinct users sharing at least one active room
// with the given user. Used to scope presence broadcasts.
func (s *ChatService) ActivePeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	query := `
		SELECT DISTINCT cp2.user_id
		FROM chat_participants cp1
		JOIN chat_rooms cr ON cr.id = cp1.chat_room_id AND cr.is_active = true AND cr.deleted_at IS NULL
		JOIN chat_participants cp2 ON cp2.chat_room_id = cp1.chat_room_id
		WHERE cp1.user_id = ?
		AND cp1.is_active = true
		AND cp2.is_active = true
		AND cp2.user_id != ?
	`
	if err := s.db.WithContext(ctx).Raw(query, userID, userID).Scan(&ids).Error; err != nil {
		return nil, errors.Wrap(err, "list peers")
	}
	return ids, nil
}

// EnsureDirectPair verifies the sender actively belongs to the room and the
// receiver is the other active participant. Called before any attachment work
// so unauthorized senders never reach storage.
func (s *ChatService) EnsureDirectPair(ctx context.Context, roomID, senderID, receiverID uint) error {
	var room models.ChatRoom
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrapf(ErrNotFound, "room %d", roomID)
		}
		return errors.Wrap(err, "load room")
	}

	senderIn, err := s.IsActiveParticipant(ctx, roomID, senderID)
	if err != nil {
		return err
	}
	if !senderIn {
		return errors.Wrapf(ErrForbidden, "user %d is not a participant of room %d", senderID, roomID)
	}

	receiverIn, err := s.IsActiveParticipant(ctx, roomID, receiverID)
	if err != nil {
		return err
	}
	if !receiverIn {
		return errors.Wrapf(ErrForbidden, "receiver %d is not a participant of room %d", receiverID, roomID)
	}
	return nil
}

// CreateMessage persists a message and touches the room's preview metadata.
// The returned message carries sender and receiver summaries so callers can
// broadcast it without a second read.
func (s *ChatService) CreateMessage(
	ctx context.Context,
	roomID, senderID, receiverID uint,
	messageType string,
	content *string,
	files []models.FileDescriptor,
) (*models.Message, error) {
	switch messageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile, models.MessageTypeVoice:
	default:
		return nil, errors.Wrapf(ErrValidation, "unknown message type %q", messageType)
	}

	hasText := content != nil && *content != ""
	if !hasText && len(files) == 0 {
		return nil, errors.Wrap(ErrValidation, "message needs text content or at least one attachment")
	}

	if err := s.EnsureDirectPair(ctx, roomID, senderID, receiverID); err != nil {
		return nil, err
	}

	msg := models.Message{
		ChatRoomID: roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       messageType,
		Content:    content,
		Files:      datatypes.NewJSONType(files),
	}
	if len(files) > 0 {
		// Legacy single-attachment columns mirror the first file.
		msg.FileName = files[0].FileName
		msg.FileURL = files[0].FileURL
		msg.FileSize = files[0].FileSize
		msg.MimeType = files[0].MimeType
		msg.Duration = files[0].Duration
	}

	preview := ""
	if hasText {
		preview = *content
	} else {
		preview = files[0].FileName
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return errors.Wrap(err, "create message")
		}
		return errors.Wrap(tx.Model(&models.ChatRoom{}).
			Where("id = ?", roomID).
			Updates(map[string]interface{}{
				"last_message_content": preview,
				"last_message_at":      time.Now(),
			}).Error, "touch room metadata")
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		First(&msg, msg.ID).Error; err != nil {
		return nil, errors.Wrap(err, "hydrate message")
	}

	return &msg, nil
}

// PageMessages returns one page of a room's messages, newest first, each
// annotated with its like count and whether the requester liked it.
func (s *ChatService) PageMessages(ctx context.Context, roomID, requesterID uint, page, pageSize int) ([]MessageView, int64, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, 0, errors.Wrapf(ErrValidation, "page_size must be between %d and %d", MinPageSize, MaxPageSize)
	}
	if page < 1 {
		page = 1
	}

	var room models.ChatRoom
	if err := s.db.WithContext(ctx).First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, errors.Wrapf(ErrNotFound, "room %d", roomID)
		}
		return nil, 0, errors.Wrap(err, "load room")
	}

	in, err := s.IsActiveParticipant(ctx, roomID, requesterID)
	if err != nil {
		return nil, 0, err
	}
	if !in {
		return nil, 0, errors.Wrapf(ErrForbidden, "user %d is not a participant of room %d", requesterID, roomID)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ?", roomID).
		Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count messages")
	}

	var messages []models.Message
	err = s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "fetch messages")
	}

	views := make([]MessageView, len(messages))
	if len(messages) == 0 {
		return views, total, nil
	}

	ids := make([]uint, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	type likeRow struct {
		MessageID uint
		Count     int64
	}
	var likeRows []likeRow
	if err := s.db.WithContext(ctx).Model(&models.MessageLike{}).
		Select("message_id, COUNT(*) as count").
		Where("message_id IN ?", ids).
		Group("message_id").
		Scan(&likeRows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count likes")
	}
	likeCounts := make(map[uint]int64, len(likeRows))
	for _, r := range likeRows {
		likeCounts[r.MessageID] = r.Count
	}

	var mine []uint
	if err := s.db.WithContext(ctx).Model(&models.MessageLike{}).
		Where("message_id IN ? AND user_id = ?", ids, requesterID).
		Pluck("message_id", &mine).Error; err != nil {
		return nil, 0, errors.Wrap(err, "fetch own likes")
	}
	likedByMe := make(map[uint]bool, len(mine))
	for _, id := range mine {
		likedByMe[id] = true
	}

	for i, m := range messages {
		views[i] = MessageView{
			Message:   m,
			LikeCount: likeCounts[m.ID],
			LikedByMe: likedByMe[m.ID],
		}
	}

	return views, total, nil
}

// MarkRoomRead flags every message addressed to the requester in the room as
// read and stamps the participant's last-read time. Safe to call repeatedly.
func (s *ChatService) MarkRoomRead(ctx context.Context, roomID, requesterID uint) error {
	in, err := s.IsActiveParticipant(ctx, roomID, requesterID)
	if err != nil {
		return err
	}
	if !in {
		return errors.Wrapf(ErrForbidden, "user %d is not a participant of room %d", requesterID, roomID)
	}

	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("chat_room_id = ? AND receiver_id = ? AND is_read = ?", roomID, requesterID, false).
			Update("is_read", true).Error; err != nil {
			return errors.Wrap(err, "mark messages read")
		}
		return errors.Wrap(tx.Model(&models.ChatParticipant{}).
			Where("chat_room_id = ? AND user_id = ?", roomID, requesterID).
			Update("last_read_at", &now).Error, "stamp last read")
	})
}

// UpdateMessage edits a text message. Only the original sender may edit, and
// only text messages are editable.
func (s *ChatService) UpdateMessage(ctx context.Context, messageID, requesterID uint, newText string) (*models.Message, error) {
	if newText == "" {
		return nil, errors.Wrap(ErrValidation, "content cannot be empty")
	}

	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "message %d", messageID)
		}
		return nil, errors.Wrap(err, "load message")
	}

	if msg.SenderID != requesterID {
		return nil, errors.Wrapf(ErrForbidden, "user %d is not the sender of message %d", requesterID, messageID)
	}
	if msg.Type != models.MessageTypeText {
		return nil, errors.Wrapf(ErrValidation, "only text messages are editable, this is %q", msg.Type)
	}
	if msg.IsDeleted {
		return nil, errors.Wrap(ErrValidation, "deleted messages are not editable")
	}

	if err := s.db.WithContext(ctx).Model(&msg).
		Update("content", &newText).Error; err != nil {
		return nil, errors.Wrap(err, "update message")
	}

	if err := s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		First(&msg, msg.ID).Error; err != nil {
		return nil, errors.Wrap(err, "hydrate message")
	}
	return &msg, nil
}

// DeleteMessage soft-deletes: the row stays (stable ids and ordering for
// already-fetched pages), content becomes a placeholder.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, requesterID uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "message %d", messageID)
		}
		return nil, errors.Wrap(err, "load message")
	}

	if msg.SenderID != requesterID {
		return nil, errors.Wrapf(ErrForbidden, "user %d is not the sender of message %d", requesterID, messageID)
	}

	placeholder := models.DeletedMessagePlaceholder
	if err := s.db.WithContext(ctx).Model(&msg).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"content":    &placeholder,
		}).Error; err != nil {
		return nil, errors.Wrap(err, "delete message")
	}

	if err := s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		First(&msg, msg.ID).Error; err != nil {
		return nil, errors.Wrap(err, "hydrate message")
	}
	return &msg, nil
}

// ToggleLike flips the requester's like on a message and returns the new
// state plus the total count. An even number of calls restores the original
// state.
func (s *ChatService) ToggleLike(ctx context.Context, messageID, requesterID uint) (bool, int64, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, errors.Wrapf(ErrNotFound, "message %d", messageID)
		}
		return false, 0, errors.Wrap(err, "load message")
	}

	in, err := s.IsActiveParticipant(ctx, msg.ChatRoomID, requesterID)
	if err != nil {
		return false, 0, err
	}
	if !in {
		return false, 0, errors.Wrapf(ErrForbidden, "user %d is not a participant of room %d", requesterID, msg.ChatRoomID)
	}

	liked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MessageLike
		findErr := tx.Where("message_id = ? AND user_id = ?", messageID, requesterID).
			First(&existing).Error
		switch {
		case findErr == nil:
			return errors.Wrap(tx.Delete(&existing).Error, "remove like")
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			liked = true
			return errors.Wrap(tx.Create(&models.MessageLike{
				MessageID: messageID,
				UserID:    requesterID,
			}).Error, "create like")
		default:
			return errors.Wrap(findErr, "lookup like")
		}
	})
	if err != nil {
		return false, 0, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.MessageLike{}).
		Where("message_id = ?", messageID).
		Count(&count).Error; err != nil {
		return false, 0, errors.Wrap(err, "count likes")
	}

	return liked, count, nil
}

// UnreadCountsByRoom returns, for every room the user actively participates
// in, the number of unread messages addressed to them.
func (s *ChatService) UnreadCountsByRoom(ctx context.Context, userID uint) (map[uint]int64, error) {
	type row struct {
		ChatRoomID uint
		Count      int64
	}
	var rows []row
	query := `
		SELECT m.chat_room_id, COUNT(*) as count
		FROM messages m
		JOIN chat_participants cp ON cp.chat_room_id = m.chat_room_id AND cp.user_id = ? AND cp.is_active = true
		WHERE m.receiver_id = ? AND m.is_read = false AND m.deleted_at IS NULL
		GROUP BY m.chat_room_id
	`
	if err := s.db.WithContext(ctx).Raw(query, userID, userID).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count unread")
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.ChatRoomID] = r.Count
	}
	return counts, nil
}

// ListRoomsWithMeta returns the user's chat list: per room the other user's
// summary, the last-message preview and the unread count, newest first.
func (s *ChatService) ListRoomsWithMeta(ctx context.Context, userID uint) ([]ChatRoomSummary, error) {
	type row struct {
		ID                 uint
		Type               string
		Name               *string
		LastMessageContent string
		LastMessageAt      *time.Time
		OtherUserID        uint
		OtherUsername      string
		OtherFullName      string
		OtherImageURL      string
		UnreadCount        int64
	}
	var rows []row

	query := `
		SELECT
			cr.id, cr.type, cr.name, cr.last_message_content, cr.last_message_at,
			u.id as other_user_id, u.username as other_username,
			u.full_name as other_full_name, u.image_url as other_image_url,
			(
				SELECT COUNT(*)
				FROM messages m
				WHERE m.chat_room_id = cr.id
				AND m.is_read = false
				AND m.receiver_id = ?
				AND m.deleted_at IS NULL
			) as unread_count
		FROM chat_rooms cr
		JOIN chat_participants cp ON cr.id = cp.chat_room_id
		LEFT JOIN chat_participants cp_other ON cr.id = cp_other.chat_room_id AND cp_other.user_id != ?
		LEFT JOIN users u ON cp_other.user_id = u.id
		WHERE cp.user_id = ? AND cp.is_active = true AND cr.is_active = true AND cr.deleted_at IS NULL
		ORDER BY cr.last_message_at DESC
	`
	if err := s.db.WithContext(ctx).Raw(query, userID, userID, userID).Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "fetch chat list")
	}

	summaries := make([]ChatRoomSummary, len(rows))
	for i, r := range rows {
		summaries[i] = ChatRoomSummary{
			ID:            r.ID,
			Type:          r.Type,
			Name:          r.Name,
			LastMessage:   r.LastMessageContent,
			LastMessageAt: r.LastMessageAt,
			OtherUser: models.UserSummary{
				ID:       r.OtherUserID,
				Username: r.OtherUsername,
				FullName: r.OtherFullName,
				ImageURL: r.OtherImageURL,
			},
			UnreadCount: r.UnreadCount,
		}
	}
	return summaries, nil
}

// DeactivateRoom soft-deletes a room: room and participants are flagged
// inactive, rows stay. Returns the participant ids so callers can broadcast
// the room_deleted event.
func (s *ChatService) DeactivateRoom(ctx context.Context, roomID, requesterID uint) ([]uint, error) {
	in, err := s.IsActiveParticipant(ctx, roomID, requesterID)
	if err != nil {
		return nil, err
	}
	if !in {
		return nil, errors.Wrapf(ErrForbidden, "user %d is not a participant of room %d", requesterID, roomID)
	}

	participantIDs, err := s.ActiveParticipantIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChatRoom{}).
			Where("id = ?", roomID).
			Update("is_active", false).Error; err != nil {
			return errors.Wrap(err, "deactivate room")
		}
		return errors.Wrap(tx.Model(&models.ChatParticipant{}).
			Where("chat_room_id = ?", roomID).
			Update("is_active", false).Error, "deactivate participants")
	})
	if err != nil {
		return nil, err
	}
	return participantIDs, nil
}
