package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"worklink_backend/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Pusher is the external push sink. It delivers one title/body/payload to a
// set of device tokens and reports which tokens the provider rejected as
// permanently invalid.
type Pusher interface {
	Push(ctx context.Context, tokens []string, title, body string, data map[string]string) (invalidTokens []string, err error)
}

// NotificationService records durable notification rows and attempts
// best-effort push delivery afterward. Push failures never propagate: by the
// time the push runs, the notification row is already committed.
type NotificationService struct {
	db     *gorm.DB
	pusher Pusher
}

func NewNotificationService(db *gorm.DB, pusher Pusher) *NotificationService {
	return &NotificationService{db: db, pusher: pusher}
}

// Dispatch persists the notification and then pushes it to the recipient's
// active devices. The returned error only ever concerns the durable write.
func (s *NotificationService) Dispatch(ctx context.Context, n *models.Notification) error {
	if n.RecipientID == 0 {
		return errors.Wrap(ErrValidation, "notification needs a recipient")
	}
	if n.Title == "" {
		return errors.Wrap(ErrValidation, "notification needs a title")
	}

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return errors.Wrap(err, "store notification")
	}

	s.pushToDevices(ctx, n)
	return nil
}

func (s *NotificationService) pushToDevices(ctx context.Context, n *models.Notification) {
	if s.pusher == nil {
		log.Printf("Push provider not configured, notification %d stored only", n.ID)
		return
	}

	tokens, err := s.activeTokens(ctx, n.RecipientID)
	if err != nil {
		log.Printf("Failed to resolve device tokens for user %d: %v", n.RecipientID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{"type": n.Type}
	if n.MessageID != nil {
		data["message_id"] = strconv.FormatUint(uint64(*n.MessageID), 10)
	}
	if n.ChatRoomID != nil {
		data["chat_room_id"] = strconv.FormatUint(uint64(*n.ChatRoomID), 10)
	}
	if n.SenderID != nil {
		data["sender_id"] = strconv.FormatUint(uint64(*n.SenderID), 10)
	}
	if n.ProposalID != nil {
		data["proposal_id"] = strconv.FormatUint(uint64(*n.ProposalID), 10)
	}

	invalid, err := s.pusher.Push(ctx, tokens, n.Title, n.Body, data)
	if err != nil {
		log.Printf("Push delivery failed for notification %d: %v", n.ID, err)
	}
	for _, token := range invalid {
		if err := s.db.WithContext(ctx).Model(&models.Device{}).
			Where("token = ?", token).
			Update("is_active", false).Error; err != nil {
			log.Printf("Failed to deactivate invalid token: %v", err)
		} else {
			log.Printf("Marked invalid device token as inactive for user %d", n.RecipientID)
		}
	}
}

// activeTokens returns the recipient's push destinations, newest first, one
// per platform (duplicates are tolerated by taking the most recent active).
func (s *NotificationService) activeTokens(ctx context.Context, userID uint) ([]string, error) {
	var devices []models.Device
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").
		Find(&devices).Error
	if err != nil {
		return nil, errors.Wrap(err, "list devices")
	}

	seenPlatform := make(map[string]bool, 2)
	var tokens []string
	for _, d := range devices {
		if seenPlatform[d.Platform] {
			continue
		}
		seenPlatform[d.Platform] = true
		tokens = append(tokens, d.Token)
	}
	return tokens, nil
}

// NotifyChatMessage records the durable counterpart of a live new_message
// broadcast for the receiver.
func (s *NotificationService) NotifyChatMessage(ctx context.Context, msg *models.Message) error {
	preview := ""
	if msg.Content != nil {
		preview = *msg.Content
	} else if msg.FileName != "" {
		preview = msg.FileName
	}
	if len(preview) > 120 {
		preview = preview[:120]
	}

	senderID := msg.SenderID
	messageID := msg.ID
	roomID := msg.ChatRoomID
	return s.Dispatch(ctx, &models.Notification{
		RecipientID: msg.ReceiverID,
		Type:        models.NotificationChatMessage,
		Title:       fmt.Sprintf("New message from %s", msg.Sender.FullName),
		Body:        preview,
		MessageID:   &messageID,
		ChatRoomID:  &roomID,
		SenderID:    &senderID,
	})
}

// NotifyApplicationReceived tells a recruiter a candidate applied.
func (s *NotificationService) NotifyApplicationReceived(ctx context.Context, recruiterID uint, proposal *models.Proposal, candidateName, jobTitle string) error {
	proposalID := proposal.ID
	candidateID := proposal.CandidateID
	return s.Dispatch(ctx, &models.Notification{
		RecipientID: recruiterID,
		Type:        models.NotificationApplicationReceived,
		Title:       "New application received",
		Body:        fmt.Sprintf("%s applied to %s", candidateName, jobTitle),
		ProposalID:  &proposalID,
		SenderID:    &candidateID,
	})
}

// NotifyProposalViewed tells a candidate their proposal was opened.
func (s *NotificationService) NotifyProposalViewed(ctx context.Context, proposal *models.Proposal, jobTitle string) error {
	proposalID := proposal.ID
	return s.Dispatch(ctx, &models.Notification{
		RecipientID: proposal.CandidateID,
		Type:        models.NotificationProposalViewed,
		Title:       "Your proposal was viewed",
		Body:        fmt.Sprintf("Your application to %s was viewed by the recruiter", jobTitle),
		ProposalID:  &proposalID,
	})
}

// NotifyFollow tells a user someone followed their profile.
func (s *NotificationService) NotifyFollow(ctx context.Context, recipientID, followerID uint, followerName string) error {
	return s.Dispatch(ctx, &models.Notification{
		RecipientID: recipientID,
		Type:        models.NotificationFollow,
		Title:       "New follower",
		Body:        fmt.Sprintf("%s started following you", followerName),
		SenderID:    &followerID,
	})
}

// List returns one page of a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, page, pageSize int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count notifications")
	}

	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "fetch notifications")
	}
	return notifications, total, nil
}

// UnreadCount is the badge number for a user's notification bell.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, errors.Wrap(err, "count unread notifications")
}

// MarkRead flips the read flag. Only the recipient may mark their own rows.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return errors.Wrap(result.Error, "mark notification read")
	}
	if result.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "notification %d", notificationID)
	}
	return nil
}

// RegisterDevice stores or refreshes a push destination for a user.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uint, token, platform string) error {
	if token == "" {
		return errors.Wrap(ErrValidation, "device token is required")
	}
	if platform != models.PlatformIOS && platform != models.PlatformAndroid {
		return errors.Wrapf(ErrValidation, "unknown platform %q", platform)
	}

	var existing models.Device
	findErr := s.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		First(&existing).Error
	switch {
	case findErr == nil:
		return errors.Wrap(s.db.WithContext(ctx).Model(&existing).
			Updates(map[string]interface{}{"is_active": true, "platform": platform}).Error,
			"refresh device")
	case errors.Is(findErr, gorm.ErrRecordNotFound):
		return errors.Wrap(s.db.WithContext(ctx).Create(&models.Device{
			UserID:   userID,
			Token:    token,
			Platform: platform,
			IsActive: true,
		}).Error, "register device")
	default:
		return errors.Wrap(findErr, "lookup device")
	}
}
