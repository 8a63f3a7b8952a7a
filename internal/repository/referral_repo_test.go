package repository_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentconnect/internal/repository"
)

func TestReferralRepositoryGenerateBatch(t *testing.T) {
	repo := repository.NewReferralRepository()
	consultancy, codes := repo.GenerateBatch("Global Study", "admin", 10)

	assert.Equal(t, 10, consultancy.TotalCodes)
	assert.Equal(t, 0, consultancy.UsedCodes)
	require.Len(t, codes, 10)

	seen := map[string]bool{}
	for _, rc := range codes {
		assert.True(t, strings.HasPrefix(rc.Code, "GLOBALSTUDY-"), rc.Code)
		assert.Len(t, rc.Code, len("GLOBALSTUDY-")+8)
		assert.False(t, seen[rc.Code], "codes must be unique")
		seen[rc.Code] = true
		assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), rc.ExpiresAt, time.Minute)
	}
}

func TestReferralRepositoryConsumeOnce(t *testing.T) {
	repo := repository.NewReferralRepository()
	_, codes := repo.GenerateBatch("Acme", "admin", 1)
	code := codes[0].Code

	rc, err := repo.Validate(code)
	require.NoError(t, err)
	assert.False(t, rc.IsUsed)

	consumed, err := repo.Consume(code, "user-1", "us", "device-a")
	require.NoError(t, err)
	assert.True(t, consumed.IsUsed)
	assert.Equal(t, "user-1", consumed.UsedBy)
	assert.Equal(t, "us", consumed.AssignedCountry)

	_, err = repo.Consume(code, "user-2", "uk", "device-b")
	assert.ErrorIs(t, err, repository.ErrCodeUsed)

	_, err = repo.Validate(code)
	assert.ErrorIs(t, err, repository.ErrCodeUsed)

	t.Run("consultancy counter follows", func(t *testing.T) {
		list := repo.ListConsultancies()
		require.Len(t, list, 1)
		assert.Equal(t, 1, list[0].UsedCodes)
	})
}

func TestReferralRepositoryConcurrentConsume(t *testing.T) {
	repo := repository.NewReferralRepository()
	_, codes := repo.GenerateBatch("Race", "admin", 1)
	code := codes[0].Code

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Consume(code, "user", "us", "device")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "a code is consumed exactly once")
}

func TestReferralRepositoryValidateErrors(t *testing.T) {
	repo := repository.NewReferralRepository()

	_, err := repo.Validate("NOPE-12345678")
	assert.ErrorIs(t, err, repository.ErrCodeNotFound)
}

func TestReferralRepositoryCodeStats(t *testing.T) {
	repo := repository.NewReferralRepository()
	_, codes := repo.GenerateBatch("Acme", "admin", 3)
	_, err := repo.Consume(codes[0].Code, "user-1", "us", "device-a")
	require.NoError(t, err)

	total, used, expired := repo.CodeStats(time.Now())
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, used)
	assert.Equal(t, 0, expired)

	// Expiry is evaluated lazily against the supplied clock.
	total, used, expired = repo.CodeStats(time.Now().Add(366 * 24 * time.Hour))
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, used)
	assert.Equal(t, 3, expired)
}

func TestReferralRepositoryRebindDevice(t *testing.T) {
	repo := repository.NewReferralRepository()
	_, codes := repo.GenerateBatch("Acme", "admin", 1)
	code := codes[0].Code

	// Unconsumed codes cannot be rebound.
	assert.Error(t, repo.RebindDevice(code, "device-b"))

	_, err := repo.Consume(code, "user-1", "us", "device-a")
	require.NoError(t, err)
	require.NoError(t, repo.RebindDevice(code, "device-b"))

	rc, err := repo.GetCode(code)
	require.NoError(t, err)
	assert.Equal(t, "device-b", rc.DeviceID)
	assert.Equal(t, "user-1", rc.UsedBy, "consumer never changes")
	assert.Equal(t, "us", rc.AssignedCountry, "country never changes")
}
