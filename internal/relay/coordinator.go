package relay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/gossipgrid/internal/metrics"
	"github.com/Tyrowin/gossipgrid/internal/presence"
	"github.com/Tyrowin/gossipgrid/internal/protocol"
	"github.com/Tyrowin/gossipgrid/internal/room"
)

// Coordinator applies connection lifecycle events to the presence registry
// and the room store and emits the notifications they imply.
//
// Every operation runs under one mutex, so membership counts are read and
// announced strictly after the mutation they describe and never from a
// stale snapshot. Deliverer calls made while holding the mutex must not
// block.
type Coordinator struct {
	mu      sync.Mutex
	conns   *presence.Registry
	rooms   *room.Store
	router  *Router
	out     Deliverer
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMetrics records presence and room gauges on m.
func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithClock replaces the clock used for message and notification
// timestamps.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
			c.router.now = now
		}
	}
}

// NewCoordinator wires a Coordinator and its Router around the given
// registry, store and deliverer.
func NewCoordinator(
	conns *presence.Registry,
	rooms *room.Store,
	out Deliverer,
	log logrus.FieldLogger,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		conns:  conns,
		rooms:  rooms,
		router: NewRouter(conns, rooms, out, log),
		out:    out,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect registers a connection and broadcasts the new presence count.
func (c *Coordinator) Connect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.conns.Add(connID)
	c.metrics.SetConnections(count)
	c.log.WithFields(logrus.Fields{"conn_id": connID, "presence": count}).Info("Client connected")

	c.broadcastPresence(count)
}

// Disconnect removes a connection, purges its room membership and tells
// the remaining room members, then broadcasts the new presence count.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.conns.Remove(connID)
	c.metrics.SetConnections(count)

	if dep, ok := c.rooms.RemoveConnectionEverywhere(connID); ok {
		c.announceDeparture(dep, protocol.NotificationDisconnect)
	}
	c.log.WithFields(logrus.Fields{"conn_id": connID, "presence": count}).Info("Client disconnected")

	c.broadcastPresence(count)
}

// Message routes a chat message and returns the number of recipients.
func (c *Coordinator) Message(connID string, msg protocol.ClientMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.router.Route(msg, connID)
}

// CreateRoom creates a room owned by the connection and returns the new
// room's identifier. Once the room exists the connection leaves the room it
// was in; a failed creation leaves its membership untouched.
func (c *Coordinator) CreateRoom(connID string, req protocol.CreateRoom) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, hadRoom := c.rooms.RoomOf(connID)

	roomID, err := c.rooms.CreateRoom(req.Username, connID)
	if err != nil {
		c.log.WithError(err).WithField("conn_id", connID).Error("Room creation failed")
		c.sendTo(connID, protocol.EventRoomError, protocol.ReasonRoomUnavailable)
		return "", err
	}
	// the store already indexes the connection under the new room, so the
	// old membership is dropped by id
	if hadRoom {
		c.leaveLocked(connID, previous)
	}
	c.metrics.SetRooms(c.rooms.Len())
	c.log.WithFields(logrus.Fields{"conn_id": connID, "room": roomID}).Info("Room created")

	c.sendTo(connID, protocol.EventRoomCreated, roomID)
	c.notifyRoom(roomID, protocol.NotificationCreate, req.Username)
	c.announceCount(roomID, c.rooms.MemberCount(roomID))
	return roomID, nil
}

// JoinRoom adds the connection to an existing room, leaving any other room
// first. An unknown or empty room identifier is reported to the requester
// only and changes nothing.
func (c *Coordinator) JoinRoom(connID string, req protocol.JoinRoom) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rooms.MemberCount(req.Room) == 0 {
		c.log.WithFields(logrus.Fields{"conn_id": connID, "room": req.Room}).Debug("Join of unknown room")
		c.sendTo(connID, protocol.EventRoomError, protocol.ReasonRoomNotFound)
		return room.ErrRoomNotFound
	}

	if current, ok := c.rooms.RoomOf(connID); ok && current == req.Room {
		c.sendTo(connID, protocol.EventRoomJoined, req.Room)
		return nil
	}

	c.leaveCurrentLocked(connID)

	count, err := c.rooms.Join(req.Room, req.Username, connID)
	if err != nil {
		c.sendTo(connID, protocol.EventRoomError, protocol.ReasonRoomNotFound)
		return err
	}
	c.log.WithFields(logrus.Fields{"conn_id": connID, "room": req.Room, "members": count}).Info("Client joined room")

	c.sendTo(connID, protocol.EventRoomJoined, req.Room)
	c.notifyRoom(req.Room, protocol.NotificationJoin, req.Username)
	c.announceCount(req.Room, count)
	return nil
}

// LeaveRoom removes the connection from the room. Leaving a room that does
// not exist, or that the connection is not a member of, does nothing.
func (c *Coordinator) LeaveRoom(connID string, req protocol.LeaveRoom) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	dep, ok := c.rooms.Leave(req.Room, connID)
	if !ok {
		c.log.WithFields(logrus.Fields{"conn_id": connID, "room": req.Room}).Debug("Leave ignored, not a member")
		return false
	}

	c.announceDeparture(dep, protocol.NotificationLeave)
	c.sendTo(connID, protocol.EventLeftRoomSuccess, nil)
	return true
}

// ClearChat acknowledges a client's local history clear to that client.
func (c *Coordinator) ClearChat(connID string, req protocol.ClearChat) {
	c.sendTo(connID, protocol.EventChatCleared, protocol.ChatCleared{Username: req.Username})
}

// Dispatch decodes an inbound frame and applies it on behalf of the
// connection. Malformed frames, unknown events and invalid payloads are
// returned as errors without touching any state.
func (c *Coordinator) Dispatch(connID string, raw []byte) error {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.metrics.FrameRejected("malformed")
		return err
	}

	switch env.Event {
	case protocol.EventClientMessage:
		var msg protocol.ClientMessage
		if err := c.decode(env, &msg); err != nil {
			return err
		}
		c.Message(connID, msg)

	case protocol.EventCreateRoom:
		var req protocol.CreateRoom
		if err := c.decode(env, &req); err != nil {
			return err
		}
		if _, err := c.CreateRoom(connID, req); err != nil {
			return err
		}

	case protocol.EventJoinRoom:
		var req protocol.JoinRoom
		if err := c.decode(env, &req); err != nil {
			return err
		}
		// unknown rooms are answered with room_error and are not a
		// transport failure
		if err := c.JoinRoom(connID, req); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			return err
		}

	case protocol.EventLeaveRoom:
		var req protocol.LeaveRoom
		if err := c.decode(env, &req); err != nil {
			return err
		}
		c.LeaveRoom(connID, req)

	case protocol.EventClearChat:
		var req protocol.ClearChat
		if len(env.Data) > 0 {
			if err := c.decode(env, &req); err != nil {
				return err
			}
		}
		c.ClearChat(connID, req)

	default:
		c.metrics.FrameRejected("unknown_event")
		return fmt.Errorf("%w: %q", protocol.ErrUnknownEvent, env.Event)
	}

	c.metrics.EventHandled(env.Event)
	return nil
}

func (c *Coordinator) decode(env protocol.Envelope, v any) error {
	if err := protocol.DecodePayload(env, v); err != nil {
		c.metrics.FrameRejected("invalid_payload")
		return err
	}
	return nil
}

// leaveCurrentLocked runs the full leave sequence for whatever room the
// connection is in, keeping the one-room-per-connection invariant.
func (c *Coordinator) leaveCurrentLocked(connID string) {
	if current, ok := c.rooms.RoomOf(connID); ok {
		c.leaveLocked(connID, current)
	}
}

func (c *Coordinator) leaveLocked(connID, roomID string) {
	if dep, ok := c.rooms.Leave(roomID, connID); ok {
		c.announceDeparture(dep, protocol.NotificationLeave)
	}
}

// announceDeparture tells the remaining members who left and how many are
// left. An emptied room has no audience.
func (c *Coordinator) announceDeparture(dep room.Departure, kind protocol.NotificationType) {
	c.metrics.SetRooms(c.rooms.Len())
	c.log.WithFields(logrus.Fields{
		"room":      dep.RoomID,
		"username":  dep.Username,
		"remaining": dep.Remaining,
		"reason":    kind,
	}).Info("Member left room")

	if dep.Emptied() {
		c.log.WithField("room", dep.RoomID).Info("Room deleted")
		return
	}
	c.notifyRoom(dep.RoomID, kind, dep.Username)
	c.announceCount(dep.RoomID, dep.Remaining)
}

func (c *Coordinator) notifyRoom(roomID string, kind protocol.NotificationType, username string) {
	c.deliver(c.rooms.MemberIDs(roomID), protocol.EventRoomNotification, protocol.Notification{
		Type:      kind,
		Username:  username,
		Room:      roomID,
		Message:   protocol.NoticeText(kind, username),
		Timestamp: c.now().UTC(),
	})
}

func (c *Coordinator) announceCount(roomID string, count int) {
	c.deliver(c.rooms.MemberIDs(roomID), protocol.EventRoomMembers, protocol.MemberCount{Room: roomID, Count: count})
}

func (c *Coordinator) broadcastPresence(count int) {
	c.deliver(c.conns.IDs(), protocol.EventActivePeople, count)
}

func (c *Coordinator) sendTo(connID, event string, data any) {
	c.deliver([]string{connID}, event, data)
}

func (c *Coordinator) deliver(recipients []string, event string, data any) {
	if len(recipients) == 0 {
		return
	}
	c.out.Deliver(recipients, event, data)
}
