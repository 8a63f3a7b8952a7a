package repository_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"
	"studentconnect/internal/repository"
)

func newUser(username string) *models.User {
	return &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		AccountType: domain.AccountReferral,
		JoinedAt:    time.Now(),
	}
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	repo := repository.NewUserRepository()
	u := newUser("alice")
	u.Email = "alice@example.com"
	require.NoError(t, repo.Create(u))

	got, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	byEmail, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	t.Run("duplicate email rejected", func(t *testing.T) {
		dup := newUser("bob")
		dup.Email = "alice@example.com"
		assert.ErrorIs(t, repo.Create(dup), repository.ErrEmailExists)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.GetByID("missing")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestUserRepositoryCountryBinding(t *testing.T) {
	repo := repository.NewUserRepository()
	u := newUser("carol")
	require.NoError(t, repo.Create(u))

	require.NoError(t, repo.BindCountry(u.ID, "us"))
	got, _ := repo.GetByID(u.ID)
	assert.Equal(t, "us", got.AssignedCountry)

	// Second bind is a no-op; the first join wins.
	require.NoError(t, repo.BindCountry(u.ID, "uk"))
	got, _ = repo.GetByID(u.ID)
	assert.Equal(t, "us", got.AssignedCountry)

	t.Run("update cannot clear the assignment", func(t *testing.T) {
		got.AssignedCountry = ""
		require.NoError(t, repo.Update(got))
		fresh, _ := repo.GetByID(u.ID)
		assert.Equal(t, "us", fresh.AssignedCountry)
	})
}

func TestUserRepositoryBanThreshold(t *testing.T) {
	repo := repository.NewUserRepository()
	u := newUser("dave")
	require.NoError(t, repo.Create(u))

	// Nine moderation violations: 4.5, still under the threshold.
	for i := 0; i < 9; i++ {
		count, bannedNow, err := repo.AddReportWeight(u.ID, domain.ReportWeightModeration)
		require.NoError(t, err)
		assert.False(t, bannedNow)
		assert.InDelta(t, float64(i+1)*0.5, count, 1e-9)
	}

	// One explicit report crosses 5.0 and bans exactly once.
	count, bannedNow, err := repo.AddReportWeight(u.ID, domain.ReportWeightExplicit)
	require.NoError(t, err)
	assert.True(t, bannedNow)
	assert.InDelta(t, 5.5, count, 1e-9)

	got, _ := repo.GetByID(u.ID)
	assert.True(t, got.IsBanned)
	require.NotNil(t, got.BannedAt)

	// Further weight accumulates but never re-reports the ban.
	_, bannedNow, err = repo.AddReportWeight(u.ID, domain.ReportWeightExplicit)
	require.NoError(t, err)
	assert.False(t, bannedNow)
}

func TestUserRepositoryOnlineCounters(t *testing.T) {
	repo := repository.NewUserRepository()
	a, b := newUser("a"), newUser("b")
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))
	require.NoError(t, repo.BindCountry(a.ID, "us"))
	require.NoError(t, repo.BindCountry(b.ID, "us"))

	require.NoError(t, repo.SetOnline(a.ID, true))
	assert.Equal(t, 2, repo.Count())
	assert.Equal(t, 1, repo.CountOnline())

	total, online := repo.CountByCountry("us")
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, online)

	require.NoError(t, repo.SetOnline(a.ID, false))
	assert.Equal(t, 0, repo.CountOnline())
	got, _ := repo.GetByID(a.ID)
	assert.False(t, got.LastSeen.IsZero())
}
