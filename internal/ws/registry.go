package ws

import "sync"

// Registry maps an authenticated user to exactly one live connection plus
// the room that connection is currently focused on. It is constructed once
// at process start and shared by every connection goroutine; all access is
// internally synchronized and none of it blocks on I/O.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint]*Client
	rooms   map[uint]uint
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint]*Client),
		rooms:   make(map[uint]uint),
	}
}

// Register installs the client as the user's live connection and returns any
// previously registered client. Last connect wins: the caller is expected to
// close the returned client so the evicted session stops receiving events.
func (r *Registry) Register(userID uint, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[userID]
	r.clients[userID] = c
	delete(r.rooms, userID)
	return prev
}

// Unregister removes the mapping, but only if the given client is still the
// current one; an evicted session unregistering late must not tear down its
// replacement. Reports whether the mapping was removed.
func (r *Registry) Unregister(userID uint, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clients[userID] != c {
		return false
	}
	delete(r.clients, userID)
	delete(r.rooms, userID)
	return true
}

// Client returns the user's live connection, or nil.
func (r *Registry) Client(userID uint) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[userID]
}

// SetRoom records which room the user's connection is focused on.
func (r *Registry) SetRoom(userID, roomID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[userID]; ok {
		r.rooms[userID] = roomID
	}
}

// RoomOf returns the user's focused room, zero if none.
func (r *Registry) RoomOf(userID uint) uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[userID]
}

// LeaveRoom clears the user's room affinity.
func (r *Registry) LeaveRoom(userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, userID)
}

// OnlineUserIDs lists every user with a live connection.
func (r *Registry) OnlineUserIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// UsersInRoom lists the users whose connection is focused on the room.
func (r *Registry) UsersInRoom(roomID uint) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []uint
	for userID, room := range r.rooms {
		if room == roomID {
			ids = append(ids, userID)
		}
	}
	return ids
}
