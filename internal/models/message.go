package models

import "time"

// ModerationDetails carries the evidence collected for a flagged message.
type ModerationDetails struct {
	Language     string   `json:"language,omitempty"`     // first lexicon language that matched
	Words        []string `json:"words,omitempty"`        // matched lexicon terms
	ContactTypes []string `json:"contactTypes,omitempty"` // phone, email, social_media, ...
	Matches      []string `json:"matches,omitempty"`      // literal contact matches
}

// Message is a single room message. Immutable after creation except for the
// Likes and Replies counters. Rooms hold these in memory; Firebase keeps the
// per-consultancy history as a side channel.
type Message struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Username    string             `json:"username"`
	Text        string             `json:"text"` // moderated text, never the original
	Timestamp   time.Time          `json:"timestamp"`
	Country     string             `json:"country"`
	Avatar      string             `json:"avatar"`
	Likes       int                `json:"likes"`
	Replies     int                `json:"replies"`
	IsModerated bool               `json:"isModerated"`
	Violations  []string           `json:"violations,omitempty"`
	Details     *ModerationDetails `json:"violationDetails,omitempty"`
}

// Room is the public view of a country room. ActiveUsers always equals the
// member-set size; it is never incremented independently.
type Room struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Country       string `json:"country"`
	Flag          string `json:"flag,omitempty"`
	ActiveUsers   int    `json:"activeUsers"`
	TotalMessages int    `json:"totalMessages"`
}

// RoomSnapshot is pushed to a client on join and served on initial page load.
type RoomSnapshot struct {
	Room     Room       `json:"room"`
	Messages []*Message `json:"messages"`
	Users    []*User    `json:"users"`
}
