package repository_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentconnect/internal/models"
	"studentconnect/internal/repository"
)

func newMessage(userID, text string) *models.Message {
	return &models.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func TestRoomRegistryFixedRooms(t *testing.T) {
	reg := repository.NewRoomRegistry()
	rooms := reg.Rooms()
	require.Len(t, rooms, 5)

	ids := map[string]bool{}
	for _, r := range rooms {
		ids[r.Country] = true
		assert.Equal(t, 0, r.ActiveUsers)
	}
	for _, want := range []string{"us", "uk", "de", "ca", "au"} {
		assert.True(t, ids[want], want)
	}

	_, err := reg.Join("fr", newUser("nobody"))
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestRoomRegistryJoinIsIdempotent(t *testing.T) {
	reg := repository.NewRoomRegistry()
	u := newUser("alice")

	snap, err := reg.Join("us", u)
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)
	assert.Equal(t, 1, snap.Room.ActiveUsers)

	// A rejoin replaces the stale entry instead of double counting.
	snap, err = reg.Join("us", u)
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)
	assert.Equal(t, 1, reg.ActiveCount("us"))
}

func TestRoomRegistryJoinLeaveNetZero(t *testing.T) {
	reg := repository.NewRoomRegistry()
	a, b := newUser("a"), newUser("b")

	_, err := reg.Join("uk", a)
	require.NoError(t, err)
	_, err = reg.Join("uk", b)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.ActiveCount("uk"))

	require.NoError(t, reg.Leave("uk", a.ID))
	assert.Equal(t, 1, reg.ActiveCount("uk"))
	require.NoError(t, reg.Leave("uk", b.ID))
	assert.Equal(t, 0, reg.ActiveCount("uk"))

	// Leaving twice does not go negative.
	require.NoError(t, reg.Leave("uk", b.ID))
	assert.Equal(t, 0, reg.ActiveCount("uk"))
}

func TestRoomRegistryPostAndLike(t *testing.T) {
	reg := repository.NewRoomRegistry()
	u := newUser("alice")
	_, err := reg.Join("de", u)
	require.NoError(t, err)

	msg := newMessage(u.ID, "hallo zusammen")
	require.NoError(t, reg.Post("de", msg))
	assert.Equal(t, 1, reg.MessageCount("de"))
	assert.Equal(t, 1, reg.TotalMessages())

	likes, ok := reg.Like("de", msg.ID)
	require.True(t, ok)
	assert.Equal(t, 1, likes)

	// No like dedup: the same user may like repeatedly.
	likes, _ = reg.Like("de", msg.ID)
	assert.Equal(t, 2, likes)

	t.Run("unknown message is a no-op", func(t *testing.T) {
		_, ok := reg.Like("de", "missing")
		assert.False(t, ok)
	})

	t.Run("message count survives leave", func(t *testing.T) {
		require.NoError(t, reg.Leave("de", u.ID))
		assert.Equal(t, 1, reg.MessageCount("de"))
	})
}

func TestRoomRegistrySnapshotIsCopy(t *testing.T) {
	reg := repository.NewRoomRegistry()
	u := newUser("alice")
	_, err := reg.Join("ca", u)
	require.NoError(t, err)
	require.NoError(t, reg.Post("ca", newMessage(u.ID, "hey")))

	snap, err := reg.Snapshot("ca")
	require.NoError(t, err)
	require.Len(t, snap.Messages, 1)

	// Mutating the snapshot must not leak into the registry.
	snap.Messages[0] = newMessage(u.ID, "tampered")
	fresh, _ := reg.Snapshot("ca")
	assert.Equal(t, "hey", fresh.Messages[0].Text)
}
