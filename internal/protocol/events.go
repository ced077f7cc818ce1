// Package protocol defines the JSON frames exchanged with relay clients.
//
// Every websocket text frame carries a single Envelope naming the event
// and its payload. Inbound payloads are validated at decode time so the
// relay never acts on a frame with missing fields.
package protocol

import (
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventClientMessage = "clientMessage"
	EventCreateRoom    = "create_room"
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventClearChat     = "clearChat"
)

// Outbound event names.
const (
	EventActivePeople     = "activePeople"
	EventMessage          = "message"
	EventRoomCreated      = "room_created"
	EventRoomJoined       = "room_joined"
	EventRoomError        = "room_error"
	EventLeftRoomSuccess  = "left_room_success"
	EventRoomNotification = "room_notification"
	EventRoomMembers      = "room_members"
	EventChatCleared      = "chatCleared"
)

// Reasons sent with EventRoomError.
const (
	ReasonRoomNotFound    = "Room not found"
	ReasonRoomUnavailable = "Room could not be created"
)

// Envelope is the inbound wire frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Frame is the outbound wire frame.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ClientMessage is a chat message sent by a client. Room is empty for the
// global chat. Timestamp is accepted for compatibility and ignored.
type ClientMessage struct {
	Message   string `json:"message" validate:"max=4096"`
	Username  string `json:"username" validate:"required,max=64"`
	Room      string `json:"room,omitempty" validate:"roomid"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CreateRoom asks the server to create a room with the sender as its
// first member.
type CreateRoom struct {
	Username string `json:"username" validate:"required,max=64"`
}

// UnmarshalJSON accepts either {"username": "..."} or a bare JSON string.
func (c *CreateRoom) UnmarshalJSON(data []byte) error {
	var username string
	if err := json.Unmarshal(data, &username); err == nil {
		c.Username = username
		return nil
	}

	type plain CreateRoom
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CreateRoom(p)
	return nil
}

// JoinRoom asks to join an existing room.
//
// A missing room is not a decode error; it is answered like an unknown room.
type JoinRoom struct {
	Room     string `json:"room" validate:"roomid"`
	Username string `json:"username" validate:"required,max=64"`
}

// LeaveRoom asks to leave a room.
type LeaveRoom struct {
	Room     string `json:"room" validate:"required,roomid"`
	Username string `json:"username,omitempty" validate:"max=64"`
}

// ClearChat asks the server to acknowledge a local history clear.
type ClearChat struct {
	Room     string `json:"room,omitempty" validate:"roomid"`
	Username string `json:"username,omitempty" validate:"max=64"`
}

// Message is a chat message delivered to clients.
type Message struct {
	Message       string    `json:"message"`
	Username      string    `json:"username"`
	Room          string    `json:"room,omitempty"`
	IsRoomMessage bool      `json:"isRoomMessage"`
	Timestamp     time.Time `json:"timestamp"`
}

// NotificationType classifies a membership notification.
type NotificationType string

// Membership notification types.
const (
	NotificationCreate     NotificationType = "create"
	NotificationJoin       NotificationType = "join"
	NotificationLeave      NotificationType = "leave"
	NotificationDisconnect NotificationType = "disconnect"
)

// Notification announces a membership change to a room.
type Notification struct {
	Type      NotificationType `json:"type"`
	Username  string           `json:"username"`
	Room      string           `json:"room"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// MemberCount reports the number of members in a room.
type MemberCount struct {
	Room  string `json:"room"`
	Count int    `json:"count"`
}

// ChatCleared acknowledges a clearChat request.
type ChatCleared struct {
	Username string `json:"username"`
}
