package handler_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentconnect/config"
	"studentconnect/internal/auth"
	"studentconnect/internal/domain"
	"studentconnect/internal/handler"
	"studentconnect/internal/models"
	"studentconnect/internal/repository"
	"studentconnect/internal/service"
	"studentconnect/internal/ws"
)

type testEnv struct {
	cfg     *config.Config
	users   *repository.UserRepository
	rooms   *repository.RoomRegistry
	hub     *ws.Hub
	roomHub *ws.RoomHub
	gateway *handler.Gateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "test"},
	}
	users := repository.NewUserRepository()
	rooms := repository.NewRoomRegistry()
	referrals := repository.NewReferralRepository()
	reports := repository.NewReportRepository()
	hub := ws.NewHub()
	roomHub := ws.NewRoomHub()
	stats := service.NewStatsService(users, rooms, referrals, reports, time.Second, nil)
	gw := handler.NewGateway(cfg, hub, roomHub, users, rooms, stats, nil, nil)
	return &testEnv{cfg: cfg, users: users, rooms: rooms, hub: hub, roomHub: roomHub, gateway: gw}
}

func (e *testEnv) newUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u := &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		AccountType: domain.AccountReferral,
		JoinedAt:    time.Now(),
	}
	require.NoError(t, e.users.Create(u))
	token, err := auth.GenerateToken(&e.cfg.JWT, u.ID, u.AccountType)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) newClient() *ws.Client {
	c := &ws.Client{
		ID:        uuid.NewString(),
		Send:      make(chan []byte, 64),
		Hub:       e.hub,
		CloseConn: func() {},
	}
	e.hub.Register(c)
	return c
}

func envelope(t *testing.T, event string, payload interface{}) ws.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return ws.Envelope{Event: event, Data: data}
}

// drain decodes every frame currently queued on the client.
func drain(t *testing.T, c *ws.Client) []ws.Envelope {
	t.Helper()
	var out []ws.Envelope
	for {
		select {
		case frame := <-c.Send:
			var env ws.Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func events(envs []ws.Envelope) []string {
	names := make([]string, len(envs))
	for i, e := range envs {
		names[i] = e.Event
	}
	return names
}

func find(envs []ws.Envelope, event string) (ws.Envelope, bool) {
	for _, e := range envs {
		if e.Event == event {
			return e, true
		}
	}
	return ws.Envelope{}, false
}

func (e *testEnv) join(t *testing.T, c *ws.Client, token, country string) {
	t.Helper()
	e.gateway.HandleEvent(c, envelope(t, ws.EventJoinRoom, map[string]string{
		"token": token, "country": country,
	}))
}

func (e *testEnv) send(t *testing.T, c *ws.Client, token, text, country string) {
	t.Helper()
	e.gateway.HandleEvent(c, envelope(t, ws.EventSendMessage, map[string]string{
		"token": token, "text": text, "country": country,
	}))
}

func TestGatewayJoinRoom(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "alice")
	client := env.newClient()

	env.join(t, client, token, "us")

	got := drain(t, client)
	roomData, ok := find(got, ws.EventRoomData)
	require.True(t, ok, "joiner gets the room snapshot, got %v", events(got))
	var snap models.RoomSnapshot
	require.NoError(t, json.Unmarshal(roomData.Data, &snap))
	assert.Equal(t, "us", snap.Room.Country)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "alice", snap.Users[0].Username)

	_, ok = find(got, ws.EventActiveUsers)
	assert.True(t, ok)

	fresh, err := env.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsOnline)
	assert.Equal(t, "us", fresh.AssignedCountry, "first join locks the country")
}

func TestGatewayJoinNotifiesRoom(t *testing.T) {
	env := newTestEnv(t)
	_, tokenA := env.newUser(t, "alice")
	userB, tokenB := env.newUser(t, "bob")

	clientA := env.newClient()
	env.join(t, clientA, tokenA, "us")
	drain(t, clientA)

	clientB := env.newClient()
	env.join(t, clientB, tokenB, "us")

	gotA := drain(t, clientA)
	joined, ok := find(gotA, ws.EventUserJoined)
	require.True(t, ok, "existing members see user-joined, got %v", events(gotA))
	var payload struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(joined.Data, &payload))
	assert.Equal(t, userB.ID, payload.User.ID)

	// The joiner gets the snapshot, not its own user-joined echo.
	gotB := drain(t, clientB)
	_, ok = find(gotB, ws.EventUserJoined)
	assert.False(t, ok)
	assert.Equal(t, 2, env.rooms.ActiveCount("us"))
}

func TestGatewayJoinRejections(t *testing.T) {
	env := newTestEnv(t)

	t.Run("invalid token", func(t *testing.T) {
		client := env.newClient()
		env.join(t, client, "garbage", "us")
		got := drain(t, client)
		_, ok := find(got, ws.EventAuthError)
		assert.True(t, ok)
		assert.Equal(t, 0, env.rooms.ActiveCount("us"))
	})

	t.Run("country mismatch", func(t *testing.T) {
		_, token := env.newUser(t, "carol")
		client := env.newClient()
		env.join(t, client, token, "us")
		drain(t, client)

		env.join(t, client, token, "uk")
		got := drain(t, client)
		restricted, ok := find(got, ws.EventCountryRestricted)
		require.True(t, ok, "got %v", events(got))
		var payload map[string]string
		require.NoError(t, json.Unmarshal(restricted.Data, &payload))
		assert.Equal(t, "us", payload["assignedCountry"])
		assert.Equal(t, 0, env.rooms.ActiveCount("uk"))
	})

	t.Run("banned account", func(t *testing.T) {
		user, token := env.newUser(t, "dave")
		_, _, err := env.users.AddReportWeight(user.ID, domain.BanThreshold)
		require.NoError(t, err)

		client := env.newClient()
		env.join(t, client, token, "us")
		got := drain(t, client)
		_, ok := find(got, ws.EventBanned)
		assert.True(t, ok, "got %v", events(got))
	})

	t.Run("unknown country", func(t *testing.T) {
		_, token := env.newUser(t, "erin")
		client := env.newClient()
		env.join(t, client, token, "atlantis")
		got := drain(t, client)
		_, ok := find(got, ws.EventAuthError)
		assert.True(t, ok)
	})
}

func TestGatewaySendMessage(t *testing.T) {
	env := newTestEnv(t)
	userA, tokenA := env.newUser(t, "alice")
	_, tokenB := env.newUser(t, "bob")

	clientA, clientB := env.newClient(), env.newClient()
	env.join(t, clientA, tokenA, "us")
	env.join(t, clientB, tokenB, "us")
	drain(t, clientA)
	drain(t, clientB)

	env.send(t, clientA, tokenA, "good morning everyone", "us")

	gotB := drain(t, clientB)
	msg, ok := find(gotB, ws.EventNewMessage)
	require.True(t, ok, "got %v", events(gotB))
	var m models.Message
	require.NoError(t, json.Unmarshal(msg.Data, &m))
	assert.Equal(t, userA.ID, m.UserID)
	assert.False(t, m.IsModerated)

	// Sender receives its own broadcast too.
	_, ok = find(drain(t, clientA), ws.EventNewMessage)
	assert.True(t, ok)
	assert.Equal(t, 1, env.rooms.MessageCount("us"))
}

func TestGatewayModeratedMessage(t *testing.T) {
	env := newTestEnv(t)
	userA, tokenA := env.newUser(t, "alice")
	_, tokenB := env.newUser(t, "bob")

	clientA, clientB := env.newClient(), env.newClient()
	env.join(t, clientA, tokenA, "us")
	env.join(t, clientB, tokenB, "us")
	drain(t, clientA)
	drain(t, clientB)

	env.send(t, clientA, tokenA, "you are stupid", "us")

	t.Run("room sees only the masked text", func(t *testing.T) {
		gotB := drain(t, clientB)
		msg, ok := find(gotB, ws.EventNewMessage)
		require.True(t, ok)
		var m models.Message
		require.NoError(t, json.Unmarshal(msg.Data, &m))
		assert.True(t, m.IsModerated)
		assert.Equal(t, "you are ******", m.Text)
		_, sawWarning := find(gotB, ws.EventModerationWarning)
		assert.False(t, sawWarning, "warnings go to the sender only")
	})

	t.Run("sender gets the warning and half a report point", func(t *testing.T) {
		gotA := drain(t, clientA)
		warning, ok := find(gotA, ws.EventModerationWarning)
		require.True(t, ok, "got %v", events(gotA))
		var payload struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(warning.Data, &payload))
		assert.Contains(t, payload.Message, "Inappropriate language")

		fresh, err := env.users.GetByID(userA.ID)
		require.NoError(t, err)
		assert.InDelta(t, domain.ReportWeightModeration, fresh.ReportCount, 1e-9)
	})
}

func TestGatewayModerationBansAtThreshold(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "alice")
	client := env.newClient()
	env.join(t, client, token, "us")
	drain(t, client)

	// Nine prior violations leave the account half a point short.
	for i := 0; i < 9; i++ {
		_, bannedNow, err := env.users.AddReportWeight(user.ID, domain.ReportWeightModeration)
		require.NoError(t, err)
		require.False(t, bannedNow)
	}

	env.send(t, client, token, "you are stupid", "us")

	got := drain(t, client)
	_, ok := find(got, ws.EventBanned)
	assert.True(t, ok, "got %v", events(got))

	fresh, err := env.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsBanned)
}

func TestGatewaySendMessageDropped(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newUser(t, "alice")
	client := env.newClient()
	env.join(t, client, token, "us")
	drain(t, client)

	t.Run("invalid token drops silently", func(t *testing.T) {
		env.send(t, client, "garbage", "hi", "us")
		assert.Empty(t, drain(t, client))
		assert.Equal(t, 0, env.rooms.MessageCount("us"))
	})

	t.Run("empty text drops silently", func(t *testing.T) {
		env.send(t, client, token, "", "us")
		assert.Empty(t, drain(t, client))
	})
}

func TestGatewaySendCountryMismatch(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "alice")
	_, tokenB := env.newUser(t, "bob")

	clientA, clientB := env.newClient(), env.newClient()
	env.join(t, clientA, token, "us")
	env.join(t, clientB, tokenB, "us")
	drain(t, clientA)
	drain(t, clientB)

	env.send(t, clientA, token, "hello uk", "uk")

	got := drain(t, clientA)
	restricted, ok := find(got, ws.EventCountryRestricted)
	require.True(t, ok, "got %v", events(got))
	var payload map[string]string
	require.NoError(t, json.Unmarshal(restricted.Data, &payload))
	assert.Equal(t, "us", payload["assignedCountry"])

	// Nothing is appended or broadcast anywhere.
	_, sawMessage := find(got, ws.EventNewMessage)
	assert.False(t, sawMessage)
	assert.Empty(t, drain(t, clientB))
	assert.Equal(t, 0, env.rooms.MessageCount("us"))
	assert.Equal(t, 0, env.rooms.MessageCount("uk"))

	fresh, err := env.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "us", fresh.AssignedCountry)
}

func TestGatewayLikeAndTyping(t *testing.T) {
	env := newTestEnv(t)
	_, tokenA := env.newUser(t, "alice")
	userB, tokenB := env.newUser(t, "bob")

	clientA, clientB := env.newClient(), env.newClient()
	env.join(t, clientA, tokenA, "us")
	env.join(t, clientB, tokenB, "us")
	drain(t, clientA)
	drain(t, clientB)

	env.send(t, clientA, tokenA, "like this one", "us")
	msgEnv, ok := find(drain(t, clientA), ws.EventNewMessage)
	require.True(t, ok)
	var m models.Message
	require.NoError(t, json.Unmarshal(msgEnv.Data, &m))
	drain(t, clientB)

	t.Run("like broadcasts the counter", func(t *testing.T) {
		env.gateway.HandleEvent(clientB, envelope(t, ws.EventLikeMessage, map[string]string{
			"token": tokenB, "messageId": m.ID,
		}))
		liked, ok := find(drain(t, clientA), ws.EventMessageLiked)
		require.True(t, ok)
		var payload struct {
			MessageID string `json:"messageId"`
			Likes     int    `json:"likes"`
		}
		require.NoError(t, json.Unmarshal(liked.Data, &payload))
		assert.Equal(t, m.ID, payload.MessageID)
		assert.Equal(t, 1, payload.Likes)
	})

	t.Run("unknown message id is a no-op", func(t *testing.T) {
		env.gateway.HandleEvent(clientB, envelope(t, ws.EventLikeMessage, map[string]string{
			"token": tokenB, "messageId": "missing",
		}))
		assert.Empty(t, drain(t, clientA))
	})

	t.Run("like without a valid token is a no-op", func(t *testing.T) {
		env.gateway.HandleEvent(clientB, envelope(t, ws.EventLikeMessage, map[string]string{
			"token": "garbage", "messageId": m.ID,
		}))
		env.gateway.HandleEvent(clientB, envelope(t, ws.EventLikeMessage, map[string]string{
			"messageId": m.ID,
		}))
		assert.Empty(t, drain(t, clientA))
	})

	t.Run("typing reaches everyone but the typist", func(t *testing.T) {
		drain(t, clientB) // clear the like broadcast
		env.gateway.HandleEvent(clientB, envelope(t, ws.EventTyping, map[string]interface{}{
			"token": tokenB, "isTyping": true,
		}))
		typing, ok := find(drain(t, clientA), ws.EventUserTyping)
		require.True(t, ok)
		var payload struct {
			UserID   string `json:"userId"`
			IsTyping bool   `json:"isTyping"`
		}
		require.NoError(t, json.Unmarshal(typing.Data, &payload))
		assert.Equal(t, userB.ID, payload.UserID)
		assert.True(t, payload.IsTyping)

		assert.Empty(t, drain(t, clientB))
	})

	t.Run("typing without a valid token is a no-op", func(t *testing.T) {
		env.gateway.HandleEvent(clientB, envelope(t, ws.EventTyping, map[string]interface{}{
			"token": "garbage", "isTyping": true,
		}))
		assert.Empty(t, drain(t, clientA))
	})
}

func TestGatewayDisconnect(t *testing.T) {
	env := newTestEnv(t)
	userA, tokenA := env.newUser(t, "alice")
	_, tokenB := env.newUser(t, "bob")

	clientA, clientB := env.newClient(), env.newClient()
	env.join(t, clientA, tokenA, "us")
	env.join(t, clientB, tokenB, "us")
	drain(t, clientA)
	drain(t, clientB)

	env.gateway.HandleDisconnect(clientA)

	got := drain(t, clientB)
	left, ok := find(got, ws.EventUserLeft)
	require.True(t, ok, "got %v", events(got))
	var payload struct {
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(left.Data, &payload))
	assert.Equal(t, userA.ID, payload.UserID)

	_, ok = find(got, ws.EventActiveUsers)
	assert.True(t, ok)
	assert.Equal(t, 1, env.rooms.ActiveCount("us"))

	fresh, err := env.users.GetByID(userA.ID)
	require.NoError(t, err)
	assert.False(t, fresh.IsOnline)
	assert.False(t, fresh.LastSeen.IsZero())
}

func TestGatewayReconnectSupersedesDisconnect(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.newUser(t, "alice")

	oldClient := env.newClient()
	env.join(t, oldClient, token, "us")
	drain(t, oldClient)

	// Reconnect lands before the old connection's disconnect fires.
	newClient := env.newClient()
	env.join(t, newClient, token, "us")
	drain(t, newClient)
	require.Equal(t, 1, env.rooms.ActiveCount("us"))

	env.gateway.HandleDisconnect(oldClient)

	assert.Equal(t, 1, env.rooms.ActiveCount("us"), "the live connection keeps the membership")
	fresh, err := env.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsOnline)
	assert.Empty(t, drain(t, newClient), "no user-left for a superseded connection")

	// The real disconnect still cleans up.
	env.gateway.HandleDisconnect(newClient)
	assert.Equal(t, 0, env.rooms.ActiveCount("us"))
	fresh, err = env.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, fresh.IsOnline)
}
