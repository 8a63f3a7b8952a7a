package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentconnect/internal/repository"
)

func TestSessionRepositoryDeviceBinding(t *testing.T) {
	repo := repository.NewSessionRepository()

	t.Run("no session means login allowed", func(t *testing.T) {
		check := repo.CheckDevice("u1", "device-a")
		assert.True(t, check.CanLogin)
	})

	session := repo.BindDevice("u1", "device-a", "CODE-1")
	require.NotNil(t, session)
	assert.True(t, session.IsActive)
	assert.Equal(t, "device-a", session.DeviceID)

	t.Run("same device may log in again", func(t *testing.T) {
		check := repo.CheckDevice("u1", "device-a")
		assert.True(t, check.CanLogin)
	})

	t.Run("different device is blocked", func(t *testing.T) {
		check := repo.CheckDevice("u1", "device-b")
		assert.False(t, check.CanLogin)
		assert.Equal(t, "device-a", check.ExistingDevice)
	})
}

func TestSessionRepositorySwitchKeepsHistory(t *testing.T) {
	repo := repository.NewSessionRepository()
	first := repo.BindDevice("u1", "device-a", "CODE-1")
	second := repo.BindDevice("u1", "device-b", "CODE-1")

	assert.NotEqual(t, first.ID, second.ID)

	active := repo.ActiveSession("u1")
	require.NotNil(t, active)
	assert.Equal(t, "device-b", active.DeviceID)

	// Exactly one session may be active at a time.
	check := repo.CheckDevice("u1", "device-a")
	assert.False(t, check.CanLogin)
	assert.Equal(t, "device-b", check.ExistingDevice)
}

func TestSessionRepositoryRelease(t *testing.T) {
	repo := repository.NewSessionRepository()
	repo.BindDevice("u1", "device-a", "")
	ended := repo.ReleaseDevice("u1")
	require.NotNil(t, ended)
	assert.Equal(t, "device-a", ended.DeviceID)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.LogoutAt)

	assert.Nil(t, repo.ActiveSession("u1"))
	check := repo.CheckDevice("u1", "device-b")
	assert.True(t, check.CanLogin)

	assert.Nil(t, repo.ReleaseDevice("u1"), "nothing left to release")
}
