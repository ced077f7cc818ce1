// Package relay routes chat messages and coordinates room membership
// changes on top of the presence registry and the room store.
//
// The package never touches the network: outbound frames are handed to a
// Deliverer, which the transport implements.
package relay

import (
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/gossipgrid/internal/presence"
	"github.com/Tyrowin/gossipgrid/internal/protocol"
	"github.com/Tyrowin/gossipgrid/internal/room"
)

// Deliverer sends an outbound frame to a set of connections. Delivery is
// best effort and must not block; unknown recipients are skipped.
type Deliverer interface {
	Deliver(recipients []string, event string, data any)
}

// Router computes the recipients of a chat message and delivers it.
type Router struct {
	conns *presence.Registry
	rooms *room.Store
	out   Deliverer
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewRouter returns a Router reading membership from conns and rooms.
func NewRouter(conns *presence.Registry, rooms *room.Store, out Deliverer, log logrus.FieldLogger) *Router {
	return &Router{
		conns: conns,
		rooms: rooms,
		out:   out,
		now:   time.Now,
		log:   log,
	}
}

// Route delivers msg and returns the number of recipients. A message
// naming a room goes to every current member of that room, sender
// included; a room that no longer exists reaches nobody. A message without
// a room goes to every connection except the sender. The timestamp is
// always the server's receipt time.
func (r *Router) Route(msg protocol.ClientMessage, senderID string) int {
	out := protocol.Message{
		Message:   msg.Message,
		Username:  msg.Username,
		Room:      msg.Room,
		Timestamp: r.now().UTC(),
	}

	var recipients []string
	if msg.Room != "" {
		out.IsRoomMessage = true
		recipients = r.rooms.MemberIDs(msg.Room)
	} else {
		recipients = lo.Without(r.conns.IDs(), senderID)
	}

	if len(recipients) == 0 {
		r.log.WithFields(logrus.Fields{
			"conn_id": senderID,
			"room":    msg.Room,
		}).Debug("Message has no recipients")
		return 0
	}

	r.out.Deliver(recipients, protocol.EventMessage, out)
	return len(recipients)
}
