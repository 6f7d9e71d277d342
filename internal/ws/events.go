package ws

import (
	"encoding/json"

	"worklink_backend/services"

	"github.com/pkg/errors"
)

// Inbound frame types.
const (
	FrameTyping      = "typing"
	FrameJoinRoom    = "join_room"
	FrameLeaveRoom   = "leave_room"
	FrameSendMessage = "send_message"
)

// Outbound event types mirrored to clients.
const (
	EventError          = "error"
	EventTyping         = "typing"
	EventPresence       = "presence"
	EventNewMessage     = "new_message"
	EventMessageUpdated = "message_updated"
	EventMessageRead    = "message_read"
	EventRoomDeleted    = "room_deleted"
)

// Envelope is the wire shape of every inbound frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// InboundEvent is the closed set of events a client may send. Unrecognized
// frame types decode to UnknownEvent and are ignored, keeping the protocol
// forward-compatible.
type InboundEvent interface {
	inboundEvent()
}

type TypingEvent struct {
	RoomID   uint `json:"room_id"`
	IsTyping bool `json:"is_typing"`
}

type JoinRoomEvent struct {
	RoomID uint `json:"room_id"`
}

type LeaveRoomEvent struct{}

type SendMessageEvent struct {
	RoomID      uint                    `json:"room_id"`
	ReceiverID  uint                    `json:"receiver_id"`
	MessageType string                  `json:"message_type"`
	Content     *string                 `json:"content"`
	LocalTempID string                  `json:"local_temp_id"`
	FilesData   []services.IncomingFile `json:"files_data"`
}

type UnknownEvent struct {
	Type string
}

func (TypingEvent) inboundEvent()      {}
func (JoinRoomEvent) inboundEvent()    {}
func (LeaveRoomEvent) inboundEvent()   {}
func (SendMessageEvent) inboundEvent() {}
func (UnknownEvent) inboundEvent()     {}

// DecodeFrame sanitizes and parses one inbound frame into its typed event.
func DecodeFrame(raw []byte) (InboundEvent, error) {
	var env Envelope
	if err := json.Unmarshal(SanitizeFrame(raw), &env); err != nil {
		return nil, errors.Wrap(err, "parse envelope")
	}

	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch env.Type {
	case FrameTyping:
		var ev TypingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, errors.Wrap(err, "parse typing data")
		}
		return ev, nil
	case FrameJoinRoom:
		var ev JoinRoomEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, errors.Wrap(err, "parse join_room data")
		}
		return ev, nil
	case FrameLeaveRoom:
		return LeaveRoomEvent{}, nil
	case FrameSendMessage:
		var ev SendMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, errors.Wrap(err, "parse send_message data")
		}
		return ev, nil
	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}

// Frame serializes an outbound event: the type plus its inline fields.
func Frame(eventType string, fields map[string]interface{}) []byte {
	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["type"] = eventType
	raw, _ := json.Marshal(payload)
	return raw
}

// ErrorFrame builds the per-frame error acknowledgement sent back to the
// originating connection only.
func ErrorFrame(message string) []byte {
	return Frame(EventError, map[string]interface{}{"message": message})
}

// PresenceFrame announces a user's logical online state change.
func PresenceFrame(userID uint, isOnline bool) []byte {
	return Frame(EventPresence, map[string]interface{}{
		"user_id":   userID,
		"is_online": isOnline,
	})
}
