package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID uint) *Client {
	return &Client{
		Send:   make(chan []byte, 256),
		UserID: userID,
		done:   make(chan struct{}),
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(1)

	prev := r.Register(1, c)
	assert.Nil(t, prev)
	assert.Same(t, c, r.Client(1))
	assert.Nil(t, r.Client(2))
}

func TestRegisterLastConnectWins(t *testing.T) {
	r := NewRegistry()
	first := newTestClient(1)
	second := newTestClient(1)

	require.Nil(t, r.Register(1, first))
	prev := r.Register(1, second)

	assert.Same(t, first, prev)
	assert.Same(t, second, r.Client(1))
}

func TestUnregisterOnlyRemovesCurrentClient(t *testing.T) {
	r := NewRegistry()
	old := newTestClient(1)
	replacement := newTestClient(1)

	r.Register(1, old)
	r.Register(1, replacement)

	// The evicted session's late cleanup must not tear down the
	// replacement.
	assert.False(t, r.Unregister(1, old))
	assert.Same(t, replacement, r.Client(1))

	assert.True(t, r.Unregister(1, replacement))
	assert.Nil(t, r.Client(1))
}

func TestRoomAffinity(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(1)
	r.Register(1, c)

	r.SetRoom(1, 42)
	assert.Equal(t, uint(42), r.RoomOf(1))
	assert.Equal(t, []uint{1}, r.UsersInRoom(42))

	r.LeaveRoom(1)
	assert.Equal(t, uint(0), r.RoomOf(1))
	assert.Empty(t, r.UsersInRoom(42))
}

func TestSetRoomIgnoresUnregisteredUser(t *testing.T) {
	r := NewRegistry()
	r.SetRoom(99, 5)
	assert.Equal(t, uint(0), r.RoomOf(99))
}

func TestReconnectClearsRoomAffinity(t *testing.T) {
	r := NewRegistry()
	first := newTestClient(1)
	r.Register(1, first)
	r.SetRoom(1, 10)

	r.Register(1, newTestClient(1))
	assert.Equal(t, uint(0), r.RoomOf(1))
}

func TestUnregisterClearsRoomAffinity(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(1)
	r.Register(1, c)
	r.SetRoom(1, 10)

	r.Unregister(1, c)
	assert.Empty(t, r.UsersInRoom(10))
}

func TestOnlineUserIDs(t *testing.T) {
	r := NewRegistry()
	r.Register(1, newTestClient(1))
	r.Register(2, newTestClient(2))

	ids := r.OnlineUserIDs()
	assert.ElementsMatch(t, []uint{1, 2}, ids)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			c := newTestClient(userID)
			r.Register(userID, c)
			r.SetRoom(userID, userID%5)
			r.Client(userID)
			r.OnlineUserIDs()
			r.Unregister(userID, c)
		}(uint(i))
	}
	wg.Wait()

	assert.Empty(t, r.OnlineUserIDs())
}
