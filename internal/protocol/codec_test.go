package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		event   string
		wantErr error
	}{
		{name: "valid envelope", raw: `{"event":"join_room","data":{"room":"abc123","username":"bob"}}`, event: EventJoinRoom},
		{name: "envelope without data", raw: `{"event":"leave_room"}`, event: EventLeaveRoom},
		{name: "not json", raw: `hello`, wantErr: ErrMalformedFrame},
		{name: "json array", raw: `[1,2,3]`, wantErr: ErrMalformedFrame},
		{name: "missing event", raw: `{"data":{}}`, wantErr: ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env, err := Decode([]byte(tt.raw))
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.event, env.Event)
		})
	}
}

func TestDecodePayload_ClientMessage(t *testing.T) {
	req := require.New(t)

	env, err := Decode([]byte(`{"event":"clientMessage","data":{"message":"hi","username":"alice","timestamp":"2024-01-01T00:00:00Z"}}`))
	req.NoError(err)

	var msg ClientMessage
	req.NoError(DecodePayload(env, &msg))
	req.Equal(ClientMessage{Message: "hi", Username: "alice", Timestamp: "2024-01-01T00:00:00Z"}, msg)
}

func TestDecodePayload_Rejects_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		target any
	}{
		{name: "missing data", raw: `{"event":"join_room"}`, target: &JoinRoom{}},
		{name: "missing username", raw: `{"event":"clientMessage","data":{"message":"hi"}}`, target: &ClientMessage{}},
		{name: "join room too long", raw: `{"event":"join_room","data":{"room":"` + strings.Repeat("r", MaxRoomIDLength+1) + `","username":"bob"}}`, target: &JoinRoom{}},
		{name: "message room too long", raw: `{"event":"clientMessage","data":{"message":"hi","username":"a","room":"` + strings.Repeat("r", MaxRoomIDLength+1) + `"}}`, target: &ClientMessage{}},
		{name: "leave without room", raw: `{"event":"leave_room","data":{"username":"bob"}}`, target: &LeaveRoom{}},
		{name: "wrong type", raw: `{"event":"join_room","data":{"room":42,"username":"bob"}}`, target: &JoinRoom{}},
		{name: "room too long", raw: `{"event":"leave_room","data":{"room":"` + strings.Repeat("r", 65) + `"}}`, target: &LeaveRoom{}},
		{name: "empty create", raw: `{"event":"create_room","data":""}`, target: &CreateRoom{}},
		{name: "message too long", raw: `{"event":"clientMessage","data":{"message":"` + strings.Repeat("m", 4097) + `","username":"a"}}`, target: &ClientMessage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env, err := Decode([]byte(tt.raw))
			req.NoError(err)
			req.ErrorIs(DecodePayload(env, tt.target), ErrInvalidPayload)
		})
	}
}

func TestDecodePayload_JoinRoom_Without_Room(t *testing.T) {
	req := require.New(t)
	env, err := Decode([]byte(`{"event":"join_room","data":{"username":"bob"}}`))
	req.NoError(err)

	var join JoinRoom
	req.NoError(DecodePayload(env, &join))
	req.Equal(JoinRoom{Username: "bob"}, join)
}

func TestDecodePayload_Room_At_Limit(t *testing.T) {
	req := require.New(t)
	room := strings.Repeat("r", MaxRoomIDLength)
	env, err := Decode([]byte(`{"event":"leave_room","data":{"room":"` + room + `"}}`))
	req.NoError(err)

	var leave LeaveRoom
	req.NoError(DecodePayload(env, &leave))
	req.Equal(room, leave.Room)
}

func TestCreateRoom_Accepts_Both_Shapes(t *testing.T) {
	req := require.New(t)

	for _, raw := range []string{
		`{"event":"create_room","data":"alice"}`,
		`{"event":"create_room","data":{"username":"alice"}}`,
	} {
		env, err := Decode([]byte(raw))
		req.NoError(err)

		var create CreateRoom
		req.NoError(DecodePayload(env, &create))
		req.Equal("alice", create.Username)
	}
}

func TestEncode(t *testing.T) {
	req := require.New(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := Encode(EventMessage, Message{Message: "hi", Username: "alice", Timestamp: ts})
	req.NoError(err)
	req.JSONEq(`{"event":"message","data":{"message":"hi","username":"alice","isRoomMessage":false,"timestamp":"2024-01-02T03:04:05Z"}}`, string(raw))

	raw, err = Encode(EventActivePeople, 0)
	req.NoError(err)
	req.JSONEq(`{"event":"activePeople","data":0}`, string(raw))

	raw, err = Encode(EventLeftRoomSuccess, nil)
	req.NoError(err)
	req.JSONEq(`{"event":"left_room_success"}`, string(raw))

	_, err = Encode(EventMessage, json.RawMessage(`{bad`))
	req.Error(err)
}

func TestNoticeText(t *testing.T) {
	req := require.New(t)

	req.Equal("Private room created. Only room members can see messages here.", NoticeText(NotificationCreate, "alice"))
	req.Equal("bob has joined the room", NoticeText(NotificationJoin, "bob"))
	req.Equal("bob has left the room", NoticeText(NotificationLeave, "bob"))
	req.Equal("bob has disconnected", NoticeText(NotificationDisconnect, "bob"))
	req.Empty(NoticeText(NotificationType("other"), "bob"))
}
