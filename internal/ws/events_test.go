package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameTyping(t *testing.T) {
	raw := []byte(`{"type":"typing","data":{"room_id":5,"is_typing":true}}`)

	event, err := DecodeFrame(raw)
	require.NoError(t, err)

	typing, ok := event.(TypingEvent)
	require.True(t, ok)
	assert.Equal(t, uint(5), typing.RoomID)
	assert.True(t, typing.IsTyping)
}

func TestDecodeFrameSendMessage(t *testing.T) {
	raw := []byte(`{
		"type": "send_message",
		"data": {
			"room_id": 3,
			"receiver_id": 9,
			"message_type": "image",
			"local_temp_id": "tmp-1",
			"files_data": [{"file_data": "aGk=", "file_name": "pic.png", "mime_type": "image/png"}]
		}
	}`)

	event, err := DecodeFrame(raw)
	require.NoError(t, err)

	send, ok := event.(SendMessageEvent)
	require.True(t, ok)
	assert.Equal(t, uint(3), send.RoomID)
	assert.Equal(t, uint(9), send.ReceiverID)
	assert.Equal(t, "image", send.MessageType)
	assert.Equal(t, "tmp-1", send.LocalTempID)
	require.Len(t, send.FilesData, 1)
	assert.Equal(t, "pic.png", send.FilesData[0].FileName)
	assert.Nil(t, send.Content)
}

func TestDecodeFrameToleratesSloppyJSON(t *testing.T) {
	raw := []byte(`{
		"type": "join_room", // switch focus
		"data": {"room_id": 12,},
	}`)

	event, err := DecodeFrame(raw)
	require.NoError(t, err)

	join, ok := event.(JoinRoomEvent)
	require.True(t, ok)
	assert.Equal(t, uint(12), join.RoomID)
}

func TestDecodeFrameUnknownType(t *testing.T) {
	raw := []byte(`{"type":"rocket_launch","data":{"target":"moon"}}`)

	event, err := DecodeFrame(raw)
	require.NoError(t, err)

	unknown, ok := event.(UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "rocket_launch", unknown.Type)
}

func TestDecodeFrameMissingData(t *testing.T) {
	event, err := DecodeFrame([]byte(`{"type":"leave_room"}`))
	require.NoError(t, err)
	assert.IsType(t, LeaveRoomEvent{}, event)
}

func TestDecodeFrameMalformed(t *testing.T) {
	_, err := DecodeFrame([]byte(`this is not json`))
	assert.Error(t, err)
}

func TestFrameCarriesTypeAndFields(t *testing.T) {
	raw := Frame(EventTyping, map[string]interface{}{
		"room_id": uint(4),
		"user_id": uint(8),
	})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "typing", parsed["type"])
	assert.EqualValues(t, 4, parsed["room_id"])
	assert.EqualValues(t, 8, parsed["user_id"])
}

func TestErrorFrame(t *testing.T) {
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(ErrorFrame("bad frame"), &parsed))
	assert.Equal(t, "error", parsed["type"])
	assert.Equal(t, "bad frame", parsed["message"])
}

func TestPresenceFrame(t *testing.T) {
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(PresenceFrame(7, true), &parsed))
	assert.Equal(t, "presence", parsed["type"])
	assert.EqualValues(t, 7, parsed["user_id"])
	assert.Equal(t, true, parsed["is_online"])
}
