package app

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Departure describes the room a connection just left.
type Departure struct {
	Room      domain.RoomID
	Remaining []domain.ConnID
}

// RoomRegistry is the single source of truth for room membership.
// Both maps are only touched under mu, so a connection is listed in
// rooms[r] exactly when conns[c] == r, and rooms never holds an empty slice.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID][]domain.ConnID
	conns map[domain.ConnID]domain.RoomID
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[domain.RoomID][]domain.ConnID),
		conns: make(map[domain.ConnID]domain.RoomID),
	}
}

// Join adds conn to room and returns the members that were already there,
// in the order they joined.
func (r *RoomRegistry) Join(conn domain.ConnID, room domain.RoomID) ([]domain.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[conn]; ok {
		return nil, fmt.Errorf("%w %q", domain.ErrAlreadyInRoom, cur)
	}
	members := r.rooms[room]
	peers := make([]domain.ConnID, len(members))
	copy(peers, members)

	r.rooms[room] = append(members, conn)
	r.conns[conn] = room
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Int("members", len(members)+1).Msg("joined")
	return peers, nil
}

// Leave removes conn from its room. It reports false when conn is not in
// any room, so calling it twice is harmless.
func (r *RoomRegistry) Leave(conn domain.ConnID) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.conns[conn]
	if !ok {
		return Departure{}, false
	}
	delete(r.conns, conn)

	members := slices.DeleteFunc(r.rooms[room], func(id domain.ConnID) bool { return id == conn })
	remaining := make([]domain.ConnID, len(members))
	copy(remaining, members)
	if len(members) == 0 {
		delete(r.rooms, room)
		log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("room closed")
	} else {
		r.rooms[room] = members
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Int("members", len(remaining)).Msg("left")
	return Departure{Room: room, Remaining: remaining}, true
}

func (r *RoomRegistry) IsMember(conn domain.ConnID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur, ok := r.conns[conn]
	return ok && cur == room
}

// PeersExcluding returns the members of room other than exclude.
func (r *RoomRegistry) PeersExcluding(room domain.RoomID, exclude domain.ConnID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]domain.ConnID, 0, len(members))
	for _, id := range members {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

func (r *RoomRegistry) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.conns[conn]
	return room, ok
}

// Members returns a copy of the member list, or false if room does not exist.
func (r *RoomRegistry) Members(room domain.RoomID) ([]domain.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[room]
	if !ok {
		return nil, false
	}
	return slices.Clone(members), true
}

// Rooms lists every open room sorted by id.
func (r *RoomRegistry) Rooms() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(members)})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *RoomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
