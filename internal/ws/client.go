package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"worklink_backend/models"
	"worklink_backend/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/pkg/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Inline base64 attachments ride
	// inside frames, so the limit must fit the largest allowed file plus
	// encoding overhead.
	maxMessageSize = 80 << 20

	// Close codes distinguishing why an authentication attempt failed.
	CloseMissingToken    = 4001
	CloseInvalidToken    = 4002
	CloseWrongTokenType  = 4003
	CloseInactiveAccount = 4004
	CloseSessionReplaced = 4005
)

// Deps are the domain collaborators a connection drives while processing
// frames.
type Deps struct {
	Chat          *services.ChatService
	Presence      *services.PresenceService
	Attachments   *services.AttachmentService
	Notifications *services.NotificationService
}

// Client is a middleman between one websocket connection and the hub. One
// read pump and one write pump run per connection; frames are processed
// strictly in arrival order by the single read loop.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	// User ID derived from authentication.
	UserID uint

	Deps *Deps

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint, deps *Deps) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
		Deps:   deps,
		done:   make(chan struct{}),
	}
}

// Close signals shutdown exactly once; the write pump notices and closes the
// underlying socket. The Send channel itself is never closed, so broadcasts
// racing a teardown queue harmlessly instead of panicking.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the client has been shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Evict closes a session that was replaced by a newer connection for the
// same user. The close frame carries a distinguishing code so the old
// device can tell eviction apart from a network drop.
func (c *Client) Evict() {
	deadline := time.Now().Add(writeWait)
	c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseSessionReplaced, "session replaced by a newer connection"), deadline)
	c.Close()
}

// AnnounceOnline flips the user's presence online and, when that is an
// actual change, broadcasts it to the users sharing a room with them.
func (c *Client) AnnounceOnline() {
	ctx := context.Background()

	wasOnline, err := c.Deps.Presence.SetOnline(ctx, c.UserID, true)
	if err != nil {
		log.Printf("Failed to set user %d online: %v", c.UserID, err)
		return
	}
	if wasOnline {
		return
	}

	peers, err := c.Deps.Chat.ActivePeerIDs(ctx, c.UserID)
	if err != nil {
		log.Printf("Failed to resolve peers of user %d: %v", c.UserID, err)
		return
	}
	c.Hub.BroadcastToUsers(PresenceFrame(c.UserID, true), peers...)
}

// ReadPump pumps frames from the websocket connection into the dispatcher.
// Cleanup is deferred so it runs on clean closes, abrupt drops and
// mid-frame failures alike.
func (c *Client) ReadPump() {
	defer c.cleanup()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := c.Deps.Presence.Touch(context.Background(), c.UserID); err != nil {
			log.Printf("Failed to refresh presence for user %d: %v", c.UserID, err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Connection error for user %d: %v", c.UserID, err)
			}
			break
		}
		c.dispatch(message)
	}
}

// cleanup tears down a closed connection: registry removal, presence flip
// and the offline broadcast to co-room peers. A session that was already
// replaced skips the presence flip; the replacement owns it now.
func (c *Client) cleanup() {
	removed := c.Hub.Registry.Unregister(c.UserID, c)
	c.Conn.Close()
	c.Close()

	if !removed {
		return
	}

	ctx := context.Background()
	peers, peersErr := c.Deps.Chat.ActivePeerIDs(ctx, c.UserID)

	if _, err := c.Deps.Presence.SetOnline(ctx, c.UserID, false); err != nil {
		log.Printf("Failed to set user %d offline: %v", c.UserID, err)
	}

	if peersErr != nil {
		log.Printf("Failed to resolve peers of user %d: %v", c.UserID, peersErr)
		return
	}
	c.Hub.BroadcastToUsers(PresenceFrame(c.UserID, false), peers...)
}

// WritePump pumps frames from the send channel to the websocket connection
// and keeps the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame. Malformed input and per-frame failures
// answer with an error frame to this connection only; the connection stays
// open.
func (c *Client) dispatch(raw []byte) {
	event, err := DecodeFrame(raw)
	if err != nil {
		c.sendError("Invalid JSON format: " + err.Error())
		return
	}

	switch ev := event.(type) {
	case TypingEvent:
		c.handleTyping(ev)
	case JoinRoomEvent:
		if ev.RoomID == 0 {
			c.sendError("room_id is required")
			return
		}
		c.Hub.Registry.SetRoom(c.UserID, ev.RoomID)
	case LeaveRoomEvent:
		c.Hub.Registry.LeaveRoom(c.UserID)
	case SendMessageEvent:
		c.handleSendMessage(&ev)
	case UnknownEvent:
		// Forward-compatible: unrecognized types are ignored without error.
	}
}

func (c *Client) handleTyping(ev TypingEvent) {
	if ev.RoomID == 0 {
		c.sendError("room_id is required")
		return
	}

	ctx := context.Background()
	in, err := c.Deps.Chat.IsActiveParticipant(ctx, ev.RoomID, c.UserID)
	if err != nil {
		log.Printf("Typing check failed for user %d: %v", c.UserID, err)
		c.sendError("Could not process typing event")
		return
	}
	if !in {
		c.replyError(errors.Wrapf(services.ErrForbidden,
			"user %d typed into room %d without membership", c.UserID, ev.RoomID))
		return
	}

	frame := Frame(EventTyping, map[string]interface{}{
		"room_id":   ev.RoomID,
		"user_id":   c.UserID,
		"is_typing": ev.IsTyping,
	})
	c.Hub.BroadcastToRoom(ctx, frame, ev.RoomID, c.UserID)
}

func (c *Client) handleSendMessage(ev *SendMessageEvent) {
	if ev.RoomID == 0 || ev.ReceiverID == 0 {
		c.sendError("room_id and receiver_id are required")
		return
	}

	messageType := ev.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	ctx := context.Background()

	// Authorization runs before any attachment touches storage.
	if err := c.Deps.Chat.EnsureDirectPair(ctx, ev.RoomID, c.UserID, ev.ReceiverID); err != nil {
		c.replyError(err)
		return
	}

	var files []models.FileDescriptor
	if len(ev.FilesData) > 0 {
		var fileErrors []services.FileError
		files, fileErrors = c.Deps.Attachments.Ingest(c.UserID, messageType, ev.FilesData)
		for _, fe := range fileErrors {
			c.sendError(fe.Error())
		}
		hasText := ev.Content != nil && *ev.Content != ""
		if len(files) == 0 && !hasText {
			c.sendError("Message rejected: no attachment could be stored and no text content was provided")
			return
		}
	}

	msg, err := c.Deps.Chat.CreateMessage(ctx, ev.RoomID, c.UserID, ev.ReceiverID, messageType, ev.Content, files)
	if err != nil {
		c.replyError(err)
		return
	}

	frame := Frame(EventNewMessage, map[string]interface{}{
		"message":       msg,
		"local_temp_id": ev.LocalTempID,
	})
	// Echo to the sender for optimistic-UI reconciliation, push to the
	// receiver if live. Durable delivery is the notification's job.
	c.Hub.BroadcastToUsers(frame, c.UserID, ev.ReceiverID)

	if err := c.Deps.Notifications.NotifyChatMessage(ctx, msg); err != nil {
		log.Printf("Failed to record notification for message %d: %v", msg.ID, err)
	}
}

// sendError queues an error frame for this connection only.
func (c *Client) sendError(message string) {
	select {
	case c.Send <- ErrorFrame(message):
	default:
	}
}

// replyError turns a service error into the matching error frame.
// Authorization failures additionally leave a potential-abuse log line.
func (c *Client) replyError(err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		log.Printf("Potential abuse by user %d: %v", c.UserID, err)
		c.sendError("You are not allowed to perform this action")
	case errors.Is(err, services.ErrNotFound):
		c.sendError("Resource not found")
	case errors.Is(err, services.ErrValidation):
		c.sendError(err.Error())
	default:
		log.Printf("Frame handling failed for user %d: %v", c.UserID, err)
		c.sendError("Something went wrong, please try again")
	}
}
