// Package room holds the room table: which connections are members of which
// room, and when each room was created.
//
// A connection holds at most one membership at a time. The Store indexes
// memberships by connection so that a disconnect resolves the single room a
// connection belongs to without scanning the table. Rooms are removed in the
// same critical section that removes their last member, so the table never
// holds an empty room.
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrRoomNotFound is returned when joining a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrIDExhausted is returned when no unused room identifier could be
	// generated within the configured number of attempts.
	ErrIDExhausted = errors.New("room id space exhausted")
)

const defaultMaxAttempts = 8

// Member is one connection's participation in a room.
type Member struct {
	Username string
	ConnID   string
}

// Room is a point-in-time copy of a room's state.
type Room struct {
	ID        string
	Creator   string
	CreatedAt time.Time
	Members   []Member
}

// Departure describes a member that was removed from a room.
type Departure struct {
	RoomID    string
	Username  string
	Remaining int
}

// Emptied reports whether the departure deleted the room.
func (d Departure) Emptied() bool {
	return d.Remaining == 0
}

type room struct {
	id        string
	creator   string
	createdAt time.Time
	members   []Member
}

func (r *room) indexOf(connID string) int {
	_, idx, found := lo.FindIndexOf(r.members, func(m Member) bool {
		return m.ConnID == connID
	})
	if !found {
		return -1
	}
	return idx
}

func (r *room) snapshot() Room {
	return Room{
		ID:        r.id,
		Creator:   r.creator,
		CreatedAt: r.createdAt,
		Members:   append([]Member(nil), r.members...),
	}
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the room identifier generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock replaces the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxAttempts bounds how many identifiers CreateRoom tries before
// giving up with ErrIDExhausted.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Store maps room identifiers to their members. It is safe for concurrent
// use.
type Store struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]string

	newID       func() (string, error)
	now         func() time.Time
	maxAttempts int
}

// NewStore returns an empty Store. Room identifiers default to six
// character base36 tokens.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:       make(map[string]*room),
		byConn:      make(map[string]string),
		newID:       IDGenerator(DefaultIDLength),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom creates a room whose only member is the creator and returns
// its identifier. Identifiers already in use are skipped.
func (s *Store) CreateRoom(username, connID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[id]; taken {
			continue
		}

		s.rooms[id] = &room{
			id:        id,
			creator:   username,
			createdAt: s.now().UTC(),
			members:   []Member{{Username: username, ConnID: connID}},
		}
		s.byConn[connID] = id
		return id, nil
	}
	return "", ErrIDExhausted
}

// Join adds a member to an existing room and returns the new member count.
// Joining a room the connection already belongs to leaves the room
// unchanged. Clearing a membership held elsewhere is the caller's job.
func (s *Store) Join(roomID, username, connID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}
	if r.indexOf(connID) >= 0 {
		return len(r.members), nil
	}

	r.members = append(r.members, Member{Username: username, ConnID: connID})
	s.byConn[connID] = roomID
	return len(r.members), nil
}

// Leave removes the connection from the room, deleting the room if it
// becomes empty. It returns false when the room does not exist or the
// connection is not a member.
func (s *Store) Leave(roomID, connID string) (Departure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(roomID, connID)
}

// RemoveConnectionEverywhere removes the connection from the room it
// belongs to, if any, deleting that room if it becomes empty.
func (s *Store) RemoveConnectionEverywhere(connID string) (Departure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.byConn[connID]
	if !ok {
		return Departure{}, false
	}
	return s.removeLocked(roomID, connID)
}

func (s *Store) removeLocked(roomID, connID string) (Departure, bool) {
	r, ok := s.rooms[roomID]
	if !ok {
		return Departure{}, false
	}
	idx := r.indexOf(connID)
	if idx < 0 {
		return Departure{}, false
	}

	member := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	if s.byConn[connID] == roomID {
		delete(s.byConn, connID)
	}
	if len(r.members) == 0 {
		delete(s.rooms, roomID)
	}

	return Departure{
		RoomID:    roomID,
		Username:  member.Username,
		Remaining: len(r.members),
	}, true
}

// MemberCount returns the number of members in the room, or 0 if the room
// does not exist.
func (s *Store) MemberCount(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rooms[roomID]; ok {
		return len(r.members)
	}
	return 0
}

// Members returns a copy of the room's members.
func (s *Store) Members(roomID string) []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]Member(nil), r.members...)
}

// MemberIDs returns the connection identifiers of the room's members.
func (s *Store) MemberIDs(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return lo.Map(r.members, func(m Member, _ int) string {
		return m.ConnID
	})
}

// RoomOf returns the room the connection currently belongs to.
func (s *Store) RoomOf(connID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byConn[connID]
	return id, ok
}

// Get returns a copy of the room.
func (s *Store) Get(roomID string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return r.snapshot(), true
}

// Len returns the number of rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
