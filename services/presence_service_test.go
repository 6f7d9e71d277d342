package services

import (
	"context"
	"testing"
	"time"

	"worklink_backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOnlineReportsPriorState(t *testing.T) {
	db := newTestDB(t)
	svc := NewPresenceService(db, 5*time.Minute)
	ctx := context.Background()
	user := createUser(t, db, "alice")

	wasOnline, err := svc.SetOnline(ctx, user.ID, true)
	require.NoError(t, err)
	assert.False(t, wasOnline, "first connect is a change worth broadcasting")

	wasOnline, err = svc.SetOnline(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, wasOnline, "a reconnect within the window is not a change")

	wasOnline, err = svc.SetOnline(ctx, user.ID, false)
	require.NoError(t, err)
	assert.True(t, wasOnline)

	online, err := svc.IsOnline(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestStaleOnlineFlagCountsAsOffline(t *testing.T) {
	db := newTestDB(t)
	svc := NewPresenceService(db, 5*time.Minute)
	ctx := context.Background()
	user := createUser(t, db, "alice")

	_, err := svc.SetOnline(ctx, user.ID, true)
	require.NoError(t, err)

	// A crashed process never flips the flag back; the window catches it.
	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&models.Presence{}).
		Where("user_id = ?", user.ID).
		Update("last_seen_at", stale).Error)

	online, err := svc.IsOnline(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, online)

	// And the next connect counts as a fresh change.
	wasOnline, err := svc.SetOnline(ctx, user.ID, true)
	require.NoError(t, err)
	assert.False(t, wasOnline)
}

func TestTouchKeepsPresenceFresh(t *testing.T) {
	db := newTestDB(t)
	svc := NewPresenceService(db, time.Minute)
	ctx := context.Background()
	user := createUser(t, db, "alice")

	_, err := svc.SetOnline(ctx, user.ID, true)
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Minute)
	require.NoError(t, db.Model(&models.Presence{}).
		Where("user_id = ?", user.ID).
		Update("last_seen_at", stale).Error)

	require.NoError(t, svc.Touch(ctx, user.ID))

	online, err := svc.IsOnline(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestIsOnlineUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewPresenceService(db, time.Minute)

	online, err := svc.IsOnline(context.Background(), 9999)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestOnlineUsersSharingRoomsWith(t *testing.T) {
	db := newTestDB(t)
	presence := NewPresenceService(db, 5*time.Minute)
	chat := NewChatService(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	stranger := createUser(t, db, "stranger")

	_, _, err := chat.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = chat.GetOrCreateDirectRoom(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	for _, id := range []uint{bob.ID, stranger.ID} {
		_, err := presence.SetOnline(ctx, id, true)
		require.NoError(t, err)
	}
	// Carol shares a room but is offline.
	_, err = presence.SetOnline(ctx, carol.ID, false)
	require.NoError(t, err)

	online, err := presence.OnlineUsersSharingRoomsWith(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID}, online,
		"only online co-room peers are visible, never the whole user base")
}
