package repository

import (
	"errors"
	"sync"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// roomState is the registry-private state of one country room. The member
// list holds snapshots of user records keyed by id; active count is always
// derived from its length.
type roomState struct {
	meta     models.Room
	messages []*models.Message
	members  []*models.User
}

// RoomRegistry owns the fixed set of country rooms, created up front. One
// coarse lock covers the whole registry; room operations are linearizable in
// the order the gateway accepts their events.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
}

func NewRoomRegistry() *RoomRegistry {
	r := &RoomRegistry{rooms: make(map[string]*roomState)}
	for _, c := range domain.Countries {
		r.rooms[c.ID] = &roomState{
			meta: models.Room{
				ID:      c.ID,
				Name:    c.Name,
				Country: c.ID,
				Flag:    c.Flag,
			},
		}
	}
	return r
}

// Join registers a member and returns the room snapshot to push to the
// joiner. Idempotent per user: a stale entry from an unclean disconnect is
// dropped before the fresh one is inserted.
func (r *RoomRegistry) Join(country string, user *models.User) (*models.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[country]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.members = removeMember(room.members, user.ID)
	cp := *user
	room.members = append(room.members, &cp)
	return r.snapshotLocked(room), nil
}

// Leave removes the member. Unknown users are a no-op.
func (r *RoomRegistry) Leave(country, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[country]
	if !ok {
		return ErrRoomNotFound
	}
	room.members = removeMember(room.members, userID)
	return nil
}

// Post appends a message to the room's history and bumps the counter.
// History grows without bound; capping is left to a swappable store.
func (r *RoomRegistry) Post(country string, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[country]
	if !ok {
		return ErrRoomNotFound
	}
	cp := *msg
	room.messages = append(room.messages, &cp)
	room.meta.TotalMessages++
	return nil
}

// Like increments a message's like counter. Repeated likes from the same
// user are not deduplicated. Unknown message ids report ok=false.
func (r *RoomRegistry) Like(country, messageID string) (likes int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, found := r.rooms[country]
	if !found {
		return 0, false
	}
	for _, m := range room.messages {
		if m.ID == messageID {
			m.Likes++
			return m.Likes, true
		}
	}
	return 0, false
}

// Members returns copies of the room's current member set.
func (r *RoomRegistry) Members(country string) []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[country]
	if !ok {
		return nil
	}
	return copyMembers(room.members)
}

// ActiveCount is the member-set size, recomputed on every call.
func (r *RoomRegistry) ActiveCount(country string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[country]
	if !ok {
		return 0
	}
	return len(room.members)
}

// Snapshot returns the room view served on initial page load and on join.
func (r *RoomRegistry) Snapshot(country string) (*models.RoomSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[country]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.snapshotLocked(room), nil
}

// Rooms lists the public views of all rooms.
func (r *RoomRegistry) Rooms() []models.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Room, 0, len(r.rooms))
	for _, c := range domain.Countries {
		room := r.rooms[c.ID]
		meta := room.meta
		meta.ActiveUsers = len(room.members)
		out = append(out, meta)
	}
	return out
}

// TotalMessages sums message counts across all rooms.
func (r *RoomRegistry) TotalMessages() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, room := range r.rooms {
		n += len(room.messages)
	}
	return n
}

// MessageCount returns the history length for one room.
func (r *RoomRegistry) MessageCount(country string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[country]
	if !ok {
		return 0
	}
	return len(room.messages)
}

func (r *RoomRegistry) snapshotLocked(room *roomState) *models.RoomSnapshot {
	meta := room.meta
	meta.ActiveUsers = len(room.members)
	msgs := make([]*models.Message, 0, len(room.messages))
	for _, m := range room.messages {
		cp := *m
		msgs = append(msgs, &cp)
	}
	return &models.RoomSnapshot{
		Room:     meta,
		Messages: msgs,
		Users:    copyMembers(room.members),
	}
}

func removeMember(members []*models.User, userID string) []*models.User {
	out := members[:0]
	for _, m := range members {
		if m.ID != userID {
			out = append(out, m)
		}
	}
	return out
}

func copyMembers(members []*models.User) []*models.User {
	out := make([]*models.User, 0, len(members))
	for _, m := range members {
		cp := *m
		out = append(out, &cp)
	}
	return out
}
