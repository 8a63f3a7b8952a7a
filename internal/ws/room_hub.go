package ws

import "sync"

// RoomHub fans events out to the clients currently joined to each country
// room. Membership here tracks live connections only; the authoritative
// member set lives in the room registry.
type RoomHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRoomHub() *RoomHub {
	return &RoomHub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *RoomHub) Join(country string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[country] == nil {
		h.rooms[country] = make(map[*Client]struct{})
	}
	h.rooms[country][c] = struct{}{}
}

func (h *RoomHub) Leave(country string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.rooms[country]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.rooms, country)
		}
	}
}

func (h *RoomHub) members(country string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := h.rooms[country]
	out := make([]*Client, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}

// Broadcast sends an event to everyone in the room, sender included.
func (h *RoomHub) Broadcast(country, event string, data interface{}) {
	for _, c := range h.members(country) {
		c.SendEvent(event, data)
	}
}

// BroadcastExcept sends an event to everyone in the room but the given
// client (typing indicators, join notices).
func (h *RoomHub) BroadcastExcept(country string, from *Client, event string, data interface{}) {
	for _, c := range h.members(country) {
		if c != from {
			c.SendEvent(event, data)
		}
	}
}
