package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Client-to-server event names.
const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventLikeMessage = "like-message"
	EventTyping      = "typing"
)

// Server-to-client event names.
const (
	EventRoomData          = "room-data"
	EventNewMessage        = "new-message"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventActiveUsers       = "active-users-updated"
	EventMessageLiked      = "message-liked"
	EventUserTyping        = "user-typing"
	EventModerationWarning = "moderation-warning"
	EventAuthError         = "auth-error"
	EventCountryRestricted = "country-restricted"
	EventBanned            = "banned"
	EventStatsUpdate       = "stats-update"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client represents a single WebSocket connection with user context. UserID
// and Country are set by the gateway on a successful join.
type Client struct {
	ID        string
	UserID    string
	Username  string
	Country   string
	Send      chan []byte
	Hub       *Hub
	CloseConn func() // closes the underlying transport; set by the ws handler

	mu     sync.Mutex
	closed bool
}

// SendEvent queues an event for delivery. Slow consumers drop frames rather
// than block the sender.
func (c *Client) SendEvent(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	frame, _ := json.Marshal(Envelope{Event: event, Data: payload})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	select {
	case c.Send <- frame:
	default:
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// Hub maintains the set of active clients across all rooms, indexed by user.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if c.UserID != "" {
		if h.byUser[c.UserID] == nil {
			h.byUser[c.UserID] = make(map[*Client]struct{})
		}
		h.byUser[c.UserID][c] = struct{}{}
	}
}

// Bind indexes an already-registered client under its user id once the
// gateway has authenticated a join.
func (h *Hub) Bind(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.UserID != "" && c.UserID != userID {
		if m := h.byUser[c.UserID]; m != nil {
			delete(m, c)
			if len(m) == 0 {
				delete(h.byUser, c.UserID)
			}
		}
	}
	c.UserID = userID
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

func (h *Hub) clientsForUser(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := h.byUser[userID]
	out := make([]*Client, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}

// HasOtherClients reports whether the user holds a live connection besides
// the given one. A reconnect registers before the superseded connection's
// disconnect fires, so this distinguishes a stale close from a real one.
func (h *Hub) HasOtherClients(userID string, except *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		if c != except {
			return true
		}
	}
	return false
}

// SendToUser delivers an event to every connection of one user.
func (h *Hub) SendToUser(userID, event string, data interface{}) {
	for _, c := range h.clientsForUser(userID) {
		c.SendEvent(event, data)
	}
}

// BroadcastAll delivers an event to every connected client. Used for the
// periodic stats publication.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.SendEvent(event, data)
	}
}

// DisconnectUser pushes a final event to all of a user's connections and
// then closes their transports. The read loops observe the close and run
// normal disconnect cleanup.
func (h *Hub) DisconnectUser(userID, event string, data interface{}) {
	clients := h.clientsForUser(userID)
	for _, c := range clients {
		c.SendEvent(event, data)
	}
	// Give the write pumps a moment to flush the final event.
	time.AfterFunc(200*time.Millisecond, func() {
		for _, c := range clients {
			if c.CloseConn != nil {
				c.CloseConn()
			}
		}
	})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
