package services

import (
	"context"
	"testing"

	"worklink_backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupChat(t *testing.T) (*ChatService, *gorm.DB, *models.User, *models.User) {
	t.Helper()
	db := newTestDB(t)
	return NewChatService(db), db, createUser(t, db, "alice"), createUser(t, db, "bob")
}

func TestGetOrCreateDirectRoomCreatesOnce(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()

	room, created, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoomTypeDirect, room.Type)

	var participants int64
	db.Model(&models.ChatParticipant{}).Where("chat_room_id = ?", room.ID).Count(&participants)
	assert.EqualValues(t, 2, participants)

	again, created, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, again.ID)
}

func TestGetOrCreateDirectRoomOrderIndependent(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	reversed, created, err := svc.GetOrCreateDirectRoom(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, reversed.ID)
}

func TestGetOrCreateDirectRoomRejectsSelf(t *testing.T) {
	svc, _, alice, _ := setupChat(t)

	_, _, err := svc.GetOrCreateDirectRoom(context.Background(), alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetOrCreateDirectRoomUnknownTarget(t *testing.T) {
	svc, _, alice, _ := setupChat(t)

	_, _, err := svc.GetOrCreateDirectRoom(context.Background(), alice.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateMessageUpdatesRoomPreview(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("hello bob"), nil)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, "alice", msg.Sender.Username, "the returned message is hydrated")

	var updated models.ChatRoom
	require.NoError(t, db.First(&updated, room.ID).Error)
	assert.Equal(t, "hello bob", updated.LastMessageContent)
	assert.False(t, updated.LastMessageAt.IsZero())
}

func TestCreateMessageMirrorsFirstFile(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	files := []models.FileDescriptor{
		{FileName: "a.png", FileURL: "/uploads/chat/image/a.png", FileSize: 10, MimeType: "image/png"},
		{FileName: "b.png", FileURL: "/uploads/chat/image/b.png", FileSize: 20, MimeType: "image/png"},
	}
	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeImage, nil, files)
	require.NoError(t, err)

	assert.Equal(t, "a.png", msg.FileName)
	assert.Len(t, msg.Files.Data(), 2)
}

func TestCreateMessageValidation(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, "carrier-pigeon", strptr("hi"), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateMessageRejectsOutsider(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()
	mallory := createUser(t, db, "mallory")

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.CreateMessage(ctx, room.ID, mallory.ID, bob.ID, models.MessageTypeText, strptr("hi"), nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateMessageUnknownRoom(t *testing.T) {
	svc, _, alice, bob := setupChat(t)

	_, err := svc.CreateMessage(context.Background(), 404, alice.ID, bob.ID, models.MessageTypeText, strptr("hi"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPageMessagesNewestFirst(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr(text), nil)
		require.NoError(t, err)
	}

	views, total, err := svc.PageMessages(ctx, room.ID, bob.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, views, 2)
	assert.Equal(t, "third", *views[0].Content)
	assert.Equal(t, "second", *views[1].Content)

	views, _, err = svc.PageMessages(ctx, room.ID, bob.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "first", *views[0].Content)
}

func TestPageMessagesSizeBounds(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = svc.PageMessages(ctx, room.ID, alice.ID, 1, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.PageMessages(ctx, room.ID, alice.ID, 1, MaxPageSize+1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPageMessagesRejectsOutsider(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()
	mallory := createUser(t, db, "mallory")

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = svc.PageMessages(ctx, room.ID, mallory.ID, 1, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteMessageKeepsRowWithPlaceholder(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("oops"), nil)
	require.NoError(t, err)

	deleted, err := svc.DeleteMessage(ctx, msg.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, models.DeletedMessagePlaceholder, *deleted.Content)

	// The row still shows up in pages with its original id.
	views, total, err := svc.PageMessages(ctx, room.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, msg.ID, views[0].ID)
	assert.Equal(t, models.DeletedMessagePlaceholder, *views[0].Content)
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("mine"), nil)
	require.NoError(t, err)

	_, err = svc.DeleteMessage(ctx, msg.ID, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateMessageRules(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("draft"), nil)
	require.NoError(t, err)

	updated, err := svc.UpdateMessage(ctx, msg.ID, alice.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", *updated.Content)

	_, err = svc.UpdateMessage(ctx, msg.ID, bob.ID, "hijacked")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateMessage(ctx, msg.ID, alice.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	voice, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeVoice, nil,
		[]models.FileDescriptor{{FileName: "v.ogg", FileURL: "/u/v.ogg"}})
	require.NoError(t, err)
	_, err = svc.UpdateMessage(ctx, voice.ID, alice.ID, "text on a voice note")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.DeleteMessage(ctx, msg.ID, alice.ID)
	require.NoError(t, err)
	_, err = svc.UpdateMessage(ctx, msg.ID, alice.ID, "necromancy")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestToggleLikeParity(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("like me"), nil)
	require.NoError(t, err)

	liked, count, err := svc.ToggleLike(ctx, msg.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	liked, count, err = svc.ToggleLike(ctx, msg.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, count)

	// An even number of toggles restores the original state.
	views, _, err := svc.PageMessages(ctx, room.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, views[0].LikeCount)
	assert.False(t, views[0].LikedByMe)
}

func TestToggleLikeRejectsOutsider(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()
	mallory := createUser(t, db, "mallory")

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("hi"), nil)
	require.NoError(t, err)

	_, _, err = svc.ToggleLike(ctx, msg.ID, mallory.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkRoomReadIdempotent(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("ping"), nil)
		require.NoError(t, err)
	}

	counts, err := svc.UnreadCountsByRoom(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts[room.ID])

	require.NoError(t, svc.MarkRoomRead(ctx, room.ID, bob.ID))
	require.NoError(t, svc.MarkRoomRead(ctx, room.ID, bob.ID))

	counts, err = svc.UnreadCountsByRoom(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[room.ID])

	// The sender's own unread count is untouched by the receiver reading.
	counts, err = svc.UnreadCountsByRoom(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[room.ID])
}

func TestListRoomsWithMeta(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.CreateMessage(ctx, room.ID, alice.ID, bob.ID, models.MessageTypeText, strptr("latest"), nil)
	require.NoError(t, err)

	summaries, err := svc.ListRoomsWithMeta(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, room.ID, summaries[0].ID)
	assert.Equal(t, "latest", summaries[0].LastMessage)
	assert.Equal(t, alice.ID, summaries[0].OtherUser.ID)
	assert.EqualValues(t, 1, summaries[0].UnreadCount)
}

func TestDeactivateRoomHidesChat(t *testing.T) {
	svc, _, alice, bob := setupChat(t)
	ctx := context.Background()

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	participantIDs, err := svc.DeactivateRoom(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, participantIDs)

	summaries, err := svc.ListRoomsWithMeta(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// A fresh init makes a new room rather than resurrecting the old one.
	fresh, created, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, room.ID, fresh.ID)
}

func TestActivePeerIDs(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()
	carol := createUser(t, db, "carol")
	dave := createUser(t, db, "dave")

	_, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = svc.GetOrCreateDirectRoom(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	peers, err := svc.ActivePeerIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, peers)
	assert.NotContains(t, peers, dave.ID)
}

func TestEnsureDirectPair(t *testing.T) {
	svc, db, alice, bob := setupChat(t)
	ctx := context.Background()
	mallory := createUser(t, db, "mallory")

	room, _, err := svc.GetOrCreateDirectRoom(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	assert.NoError(t, svc.EnsureDirectPair(ctx, room.ID, alice.ID, bob.ID))
	assert.ErrorIs(t, svc.EnsureDirectPair(ctx, room.ID, mallory.ID, bob.ID), ErrForbidden)
	assert.ErrorIs(t, svc.EnsureDirectPair(ctx, room.ID, alice.ID, mallory.ID), ErrForbidden)
	assert.ErrorIs(t, svc.EnsureDirectPair(ctx, 404, alice.ID, bob.ID), ErrNotFound)
}
