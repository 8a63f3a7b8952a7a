package repository

import (
	"errors"
	"sync"
	"time"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserBanned   = errors.New("user banned")
	ErrEmailExists  = errors.New("email already registered")
)

// UserRepository owns all User records. One coarse lock guards the map; every
// operation's effect is scoped to a single user record.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.User)}
}

func (r *UserRepository) Create(u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.Email != "" {
		for _, existing := range r.users {
			if existing.Email == u.Email {
				return ErrEmailExists
			}
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

// Restore places a record back without the uniqueness checks Create runs.
// Used when warming from the archive at boot.
func (r *UserRepository) Restore(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *UserRepository) GetByGoogleID(googleID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *UserRepository) GetByReferralCode(code string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ReferralCode != "" && u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// Update replaces the stored record. The assigned country is immutable once
// set; updates cannot clear or change it.
func (r *UserRepository) Update(u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	cp := *u
	if existing.AssignedCountry != "" {
		cp.AssignedCountry = existing.AssignedCountry
	}
	r.users[u.ID] = &cp
	return nil
}

// BindCountry sets the assigned country on first successful join. A no-op
// when already set.
func (r *UserRepository) BindCountry(id, country string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if u.AssignedCountry == "" {
		u.AssignedCountry = country
		u.Country = country
	}
	return nil
}

// SetOnline flips the online flag and stamps last-seen.
func (r *UserRepository) SetOnline(id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsOnline = online
	u.LastSeen = time.Now()
	return nil
}

// SetDevice records the device the user is currently bound to.
func (r *UserRepository) SetDevice(id, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.DeviceID = deviceID
	return nil
}

// AddReportWeight accumulates report weight and bans the user the first time
// the total reaches the threshold. Banning is monotonic: the bannedNow flag
// is returned exactly once and the ban is never reversed here.
func (r *UserRepository) AddReportWeight(id string, weight float64) (count float64, bannedNow bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, false, ErrUserNotFound
	}
	u.ReportCount += weight
	if !u.IsBanned && u.ReportCount >= domain.BanThreshold {
		u.IsBanned = true
		now := time.Now()
		u.BannedAt = &now
		bannedNow = true
	}
	return u.ReportCount, bannedNow, nil
}

// SetVisaVerified records visa approval and the resulting country binding.
func (r *UserRepository) SetVisaVerified(id, country, photoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.VisaPhotoURL = photoURL
	u.VisaVerified = true
	if u.AssignedCountry == "" {
		u.AssignedCountry = country
	}
	u.Country = u.AssignedCountry
	return nil
}

func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *UserRepository) CountOnline() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.IsOnline {
			n++
		}
	}
	return n
}

// CountByCountry returns total and online user counts for one country.
func (r *UserRepository) CountByCountry(country string) (total, online int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.AssignedCountry == country {
			total++
			if u.IsOnline {
				online++
			}
		}
	}
	return total, online
}

// List returns copies of all users, for boot-time warm loads and admin views.
func (r *UserRepository) List() []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out
}
