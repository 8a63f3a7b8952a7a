package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studentconnect/config"
	"studentconnect/internal/auth"
	"studentconnect/internal/domain"
	"studentconnect/internal/models"
	"studentconnect/internal/moderation"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
	"studentconnect/internal/ws"
)

// Gateway dispatches chat events from connected clients. It is transport-free:
// the WebSocket handler feeds it decoded envelopes and it talks back through
// ws.Client / ws.Hub. Every inbound event re-verifies the token; nothing is
// trusted from a previous event.
type Gateway struct {
	cfg      *config.Config
	hub      *ws.Hub
	roomHub  *ws.RoomHub
	users    *repository.UserRepository
	rooms    *repository.RoomRegistry
	stats    *service.StatsService
	firebase *service.FirebaseService
	archive  *service.ArchiveService
	log      *zap.SugaredLogger
}

func NewGateway(
	cfg *config.Config,
	hub *ws.Hub,
	roomHub *ws.RoomHub,
	users *repository.UserRepository,
	rooms *repository.RoomRegistry,
	stats *service.StatsService,
	firebase *service.FirebaseService,
	archive *service.ArchiveService,
) *Gateway {
	return &Gateway{
		cfg:      cfg,
		hub:      hub,
		roomHub:  roomHub,
		users:    users,
		rooms:    rooms,
		stats:    stats,
		firebase: firebase,
		archive:  archive,
		log:      zap.S(),
	}
}

type joinPayload struct {
	Token   string `json:"token"`
	Country string `json:"country"`
}

type sendPayload struct {
	Token   string `json:"token"`
	Text    string `json:"text"`
	Country string `json:"country"`
}

type likePayload struct {
	Token     string `json:"token"`
	MessageID string `json:"messageId"`
}

type typingPayload struct {
	Token    string `json:"token"`
	IsTyping bool   `json:"isTyping"`
}

// HandleEvent routes one decoded envelope. Unknown events are ignored.
func (g *Gateway) HandleEvent(c *ws.Client, env ws.Envelope) {
	switch env.Event {
	case ws.EventJoinRoom:
		var p joinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.SendEvent(ws.EventAuthError, map[string]string{"message": "malformed join payload"})
			return
		}
		g.handleJoin(c, p)
	case ws.EventSendMessage:
		var p sendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		g.handleSend(c, p)
	case ws.EventLikeMessage:
		var p likePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		g.handleLike(c, p)
	case ws.EventTyping:
		var p typingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		g.handleTyping(c, p)
	default:
		g.log.Debugw("[ws] unknown event", "event", env.Event)
	}
}

func (g *Gateway) handleJoin(c *ws.Client, p joinPayload) {
	claims, err := auth.ParseToken(&g.cfg.JWT, p.Token)
	if err != nil {
		c.SendEvent(ws.EventAuthError, map[string]string{"message": "authentication required"})
		return
	}
	user, err := g.users.GetByID(claims.UserID)
	if err != nil {
		c.SendEvent(ws.EventAuthError, map[string]string{"message": "account not found"})
		return
	}
	if user.IsBanned {
		c.SendEvent(ws.EventBanned, map[string]string{
			"message": "Your account has been banned due to multiple reports.",
		})
		return
	}
	if _, ok := domain.CountryByID(p.Country); !ok {
		c.SendEvent(ws.EventAuthError, map[string]string{"message": "unknown country room"})
		return
	}
	if user.AssignedCountry != "" && user.AssignedCountry != p.Country {
		c.SendEvent(ws.EventCountryRestricted, map[string]string{
			"message":         "You can only join your assigned country room.",
			"assignedCountry": user.AssignedCountry,
		})
		return
	}

	// First successful join locks the account to this country.
	if user.AssignedCountry == "" {
		if err := g.users.BindCountry(user.ID, p.Country); err != nil {
			g.log.Warnw("[ws] country bind failed", "userId", user.ID, "error", err)
		}
		user.AssignedCountry = p.Country
		user.Country = p.Country
		if fresh, err := g.users.GetByID(user.ID); err == nil {
			g.firebase.SaveUser(fresh)
			g.archive.SaveUser(fresh)
		}
	}

	// A rejoin from the same user replaces any stale member entry.
	if c.Country != "" && c.Country != p.Country {
		g.leaveRoom(c)
	}

	_ = g.users.SetOnline(user.ID, true)
	user.IsOnline = true

	snapshot, err := g.rooms.Join(p.Country, user)
	if err != nil {
		c.SendEvent(ws.EventAuthError, map[string]string{"message": "room unavailable"})
		return
	}

	c.UserID = user.ID
	c.Username = user.Username
	c.Country = p.Country
	g.hub.Bind(c, user.ID)
	g.roomHub.Join(p.Country, c)

	c.SendEvent(ws.EventRoomData, snapshot)
	g.roomHub.BroadcastExcept(p.Country, c, ws.EventUserJoined, map[string]interface{}{
		"user": user,
	})
	g.broadcastActiveUsers(p.Country)

	g.firebase.PersistUserActivity(user.ID, p.Country)
	g.stats.Kick()
	g.log.Infow("[ws] user joined room", "userId", user.ID, "username", user.Username, "country", p.Country)
}

func (g *Gateway) handleSend(c *ws.Client, p sendPayload) {
	// Invalid or missing tokens drop the message silently; the join handshake
	// is where auth errors surface.
	claims, err := auth.ParseToken(&g.cfg.JWT, p.Token)
	if err != nil || claims.UserID != c.UserID || c.Country == "" {
		return
	}
	user, err := g.users.GetByID(c.UserID)
	if err != nil || user.IsBanned {
		return
	}
	// The country lock is enforced per message, not just at join time.
	if user.AssignedCountry != "" && user.AssignedCountry != p.Country {
		c.SendEvent(ws.EventCountryRestricted, map[string]string{
			"message":         "You can only send messages in your assigned country room.",
			"assignedCountry": user.AssignedCountry,
		})
		return
	}
	text := p.Text
	if text == "" {
		return
	}

	res := moderation.Moderate(text)
	msg := &models.Message{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Username:    user.Username,
		Text:        res.CleanText,
		Timestamp:   time.Now(),
		Country:     c.Country,
		Avatar:      user.Avatar,
		IsModerated: !res.IsClean,
		Violations:  res.Violations,
	}
	if !res.IsClean {
		d := res.Details
		msg.Details = &d
	}

	if err := g.rooms.Post(c.Country, msg); err != nil {
		return
	}
	if user.IsReferral() {
		g.firebase.PersistMessage(user.ConsultancyName, user.ReferralCode, msg)
	}
	g.firebase.IncrementMessageCount(c.Country)

	if !res.IsClean {
		c.SendEvent(ws.EventModerationWarning, map[string]interface{}{
			"message":    moderation.ViolationMessage(res.Violations, res.Details),
			"violations": res.Violations,
			"details":    res.Details,
		})
		count, bannedNow, err := g.users.AddReportWeight(user.ID, domain.ReportWeightModeration)
		if err == nil {
			g.log.Infow("[moderation] violation recorded",
				"userId", user.ID, "violations", res.Violations, "reportCount", count)
			if fresh, ferr := g.users.GetByID(user.ID); ferr == nil {
				g.firebase.SaveUser(fresh)
				g.archive.SaveUser(fresh)
			}
			if bannedNow {
				g.banUser(user.ID)
			}
		}
	}

	g.roomHub.Broadcast(c.Country, ws.EventNewMessage, msg)
	g.stats.Kick()
}

func (g *Gateway) handleLike(c *ws.Client, p likePayload) {
	if c.Country == "" || p.MessageID == "" {
		return
	}
	claims, err := auth.ParseToken(&g.cfg.JWT, p.Token)
	if err != nil || claims.UserID != c.UserID {
		return
	}
	likes, ok := g.rooms.Like(c.Country, p.MessageID)
	if !ok {
		return
	}
	g.roomHub.Broadcast(c.Country, ws.EventMessageLiked, map[string]interface{}{
		"messageId": p.MessageID,
		"likes":     likes,
	})
	g.stats.Kick()
}

func (g *Gateway) handleTyping(c *ws.Client, p typingPayload) {
	if c.Country == "" {
		return
	}
	claims, err := auth.ParseToken(&g.cfg.JWT, p.Token)
	if err != nil || claims.UserID != c.UserID {
		return
	}
	g.roomHub.BroadcastExcept(c.Country, c, ws.EventUserTyping, map[string]interface{}{
		"userId":   c.UserID,
		"username": c.Username,
		"isTyping": p.IsTyping,
	})
}

// HandleDisconnect runs exactly once per connection, from the read loop's
// deferred cleanup.
func (g *Gateway) HandleDisconnect(c *ws.Client) {
	// A reconnect can land before the old connection's disconnect fires. The
	// room membership and online flag then belong to the live connection, so
	// a superseded connection only detaches itself.
	if c.UserID != "" && g.hub.HasOtherClients(c.UserID, c) {
		if c.Country != "" {
			g.roomHub.Leave(c.Country, c)
			c.Country = ""
		}
		c.Close()
		g.log.Debugw("[ws] stale connection closed", "userId", c.UserID)
		return
	}
	if c.UserID != "" {
		_ = g.users.SetOnline(c.UserID, false)
	}
	g.leaveRoom(c)
	c.Close()
	if c.UserID != "" {
		g.stats.Kick()
		g.log.Infow("[ws] user disconnected", "userId", c.UserID, "username", c.Username)
	}
}

func (g *Gateway) leaveRoom(c *ws.Client) {
	if c.Country == "" {
		return
	}
	country := c.Country
	g.roomHub.Leave(country, c)
	if c.UserID != "" {
		if err := g.rooms.Leave(country, c.UserID); err == nil {
			g.roomHub.Broadcast(country, ws.EventUserLeft, map[string]interface{}{
				"userId":   c.UserID,
				"username": c.Username,
			})
			g.broadcastActiveUsers(country)
		}
	}
	c.Country = ""
}

func (g *Gateway) broadcastActiveUsers(country string) {
	g.roomHub.Broadcast(country, ws.EventActiveUsers, map[string]interface{}{
		"country":     country,
		"activeUsers": g.rooms.ActiveCount(country),
		"users":       g.rooms.Members(country),
	})
}

// BanUser applies a ban that originated outside the gateway (explicit
// reports, admin action): notify, then force-disconnect every connection.
func (g *Gateway) BanUser(userID string) {
	g.banUser(userID)
}

func (g *Gateway) banUser(userID string) {
	g.log.Infow("[moderation] user banned", "userId", userID)
	if fresh, err := g.users.GetByID(userID); err == nil {
		g.firebase.SaveUser(fresh)
		g.archive.SaveUser(fresh)
	}
	g.hub.DisconnectUser(userID, ws.EventBanned, map[string]string{
		"message": "Your account has been banned due to multiple reports.",
	})
	g.stats.Kick()
}

// PublishStats is wired as the StatsService publish func.
func (g *Gateway) PublishStats(st service.Stats) {
	g.hub.BroadcastAll(ws.EventStatsUpdate, st)
}
