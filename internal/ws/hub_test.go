package ws

import (
	"context"
	"testing"

	"worklink_backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newHubTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ChatRoom{}, &models.ChatParticipant{}))
	return db
}

func TestHubSendDeliversToLiveClient(t *testing.T) {
	hub := NewHub(NewRegistry(), nil)
	c := newTestClient(1)
	hub.Registry.Register(1, c)

	assert.True(t, hub.Send(1, []byte(`{"type":"presence"}`)))

	select {
	case frame := <-c.Send:
		assert.JSONEq(t, `{"type":"presence"}`, string(frame))
	default:
		t.Fatal("expected a queued frame")
	}
}

func TestHubSendSkipsAbsentUser(t *testing.T) {
	hub := NewHub(NewRegistry(), nil)
	assert.False(t, hub.Send(99, []byte(`{}`)))
}

func TestHubSendDropsWedgedClient(t *testing.T) {
	hub := NewHub(NewRegistry(), nil)

	// Zero-capacity channel with no reader: the send cannot proceed.
	wedged := &Client{Send: make(chan []byte), UserID: 1, done: make(chan struct{})}
	hub.Registry.Register(1, wedged)

	assert.False(t, hub.Send(1, []byte(`{}`)))
	assert.Nil(t, hub.Registry.Client(1), "a wedged client should be dropped")

	// It is signalled shut down so the write pump can exit.
	select {
	case <-wedged.Done():
	default:
		t.Fatal("expected the wedged client to be closed")
	}
}

func TestHubBroadcastToUsers(t *testing.T) {
	hub := NewHub(NewRegistry(), nil)
	a := newTestClient(1)
	b := newTestClient(2)
	hub.Registry.Register(1, a)
	hub.Registry.Register(2, b)

	hub.BroadcastToUsers([]byte(`{"type":"x"}`), 1, 2, 3)

	assert.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 1)
}

func TestHubBroadcastToRoom(t *testing.T) {
	db := newHubTestDB(t)
	hub := NewHub(NewRegistry(), db)

	room := models.ChatRoom{Type: models.RoomTypeDirect, CreatorID: 1, IsActive: true}
	require.NoError(t, db.Create(&room).Error)
	require.NoError(t, db.Create(&[]models.ChatParticipant{
		{ChatRoomID: room.ID, UserID: 1, IsActive: true},
		{ChatRoomID: room.ID, UserID: 2, IsActive: true},
		{ChatRoomID: room.ID, UserID: 3, IsActive: false},
	}).Error)

	sender := newTestClient(1)
	receiver := newTestClient(2)
	left := newTestClient(3)
	hub.Registry.Register(1, sender)
	hub.Registry.Register(2, receiver)
	hub.Registry.Register(3, left)

	hub.BroadcastToRoom(context.Background(), []byte(`{"type":"typing"}`), room.ID, 1)

	assert.Len(t, sender.Send, 0, "the originator is excluded")
	assert.Len(t, receiver.Send, 1)
	assert.Len(t, left.Send, 0, "inactive participants do not receive room events")
}
