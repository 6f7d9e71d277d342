package services

import (
	"context"
	"time"

	"worklink_backend/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PresenceService tracks logical online state per user, decoupled from raw
// socket connectedness: a user counts as online only while their flag is set
// AND their last-seen timestamp is within the staleness window.
type PresenceService struct {
	db     *gorm.DB
	window time.Duration
}

func NewPresenceService(db *gorm.DB, window time.Duration) *PresenceService {
	return &PresenceService{db: db, window: window}
}

// SetOnline upserts the user's presence row with last-seen = now and returns
// the previously computed online status, so callers know whether the change
// is worth broadcasting.
func (s *PresenceService) SetOnline(ctx context.Context, userID uint, online bool) (bool, error) {
	wasOnline := false
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Presence
		findErr := tx.Where("user_id = ?", userID).First(&p).Error
		switch {
		case findErr == nil:
			wasOnline = p.IsOnline && now.Sub(p.LastSeenAt) < s.window
			return errors.Wrap(tx.Model(&models.Presence{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"is_online":    online,
					"last_seen_at": now,
				}).Error, "update presence")
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			return errors.Wrap(tx.Create(&models.Presence{
				UserID:     userID,
				IsOnline:   online,
				LastSeenAt: now,
			}).Error, "create presence")
		default:
			return errors.Wrap(findErr, "lookup presence")
		}
	})
	if err != nil {
		return false, err
	}
	return wasOnline, nil
}

// Touch refreshes last-seen without changing the flag, used by the keepalive
// path so a long-lived quiet connection does not go stale.
func (s *PresenceService) Touch(ctx context.Context, userID uint) error {
	return errors.Wrap(s.db.WithContext(ctx).Model(&models.Presence{}).
		Where("user_id = ?", userID).
		Update("last_seen_at", time.Now()).Error, "touch presence")
}

// IsOnline reports the computed online status of one user.
func (s *PresenceService) IsOnline(ctx context.Context, userID uint) (bool, error) {
	var p models.Presence
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "lookup presence")
	}
	return p.IsOnline && time.Since(p.LastSeenAt) < s.window, nil
}

// OnlineUsersSharingRoomsWith returns the online users who co-participate in
// at least one active room with the given user. Presence queries are scoped
// to relevant peers, never the whole user base.
func (s *PresenceService) OnlineUsersSharingRoomsWith(ctx context.Context, userID uint) ([]uint, error) {
	cutoff := time.Now().Add(-s.window)

	var ids []uint
	query := `
		SELECT DISTINCT p.user_id
		FROM presences p
		JOIN chat_participants cp2 ON cp2.user_id = p.user_id AND cp2.is_active = true
		JOIN chat_rooms cr ON cr.id = cp2.chat_room_id AND cr.is_active = true AND cr.deleted_at IS NULL
		JOIN chat_participants cp1 ON cp1.chat_room_id = cp2.chat_room_id AND cp1.user_id = ? AND cp1.is_active = true
		WHERE p.is_online = true
		AND p.last_seen_at > ?
		AND p.user_id != ?
	`
	if err := s.db.WithContext(ctx).Raw(query, userID, cutoff, userID).Scan(&ids).Error; err != nil {
		return nil, errors.Wrap(err, "list online peers")
	}
	return ids, nil
}
