package repository

import (
	"sync"
	"time"

	"studentconnect/internal/models"

	"github.com/google/uuid"
)

// DeviceCheck is the outcome of a login-device probe.
type DeviceCheck struct {
	CanLogin       bool
	ExistingDevice string
}

// SessionRepository enforces the one-active-device invariant. Deactivated
// sessions are kept as history, never deleted.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*models.DeviceSession // userID -> sessions, newest last
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string][]*models.DeviceSession)}
}

func (r *SessionRepository) active(userID string) *models.DeviceSession {
	for _, s := range r.sessions[userID] {
		if s.IsActive {
			return s
		}
	}
	return nil
}

// CheckDevice reports whether userID may log in from deviceID. Only an
// active session on a different device blocks the login.
func (r *SessionRepository) CheckDevice(userID, deviceID string) DeviceCheck {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.active(userID)
	if s == nil || s.DeviceID == deviceID {
		return DeviceCheck{CanLogin: true}
	}
	return DeviceCheck{CanLogin: false, ExistingDevice: s.DeviceID}
}

// BindDevice deactivates any prior session and activates a new one for the
// given device. Returns the new session.
func (r *SessionRepository) BindDevice(userID, deviceID, referralCode string) *models.DeviceSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev := r.active(userID); prev != nil {
		now := time.Now()
		prev.IsActive = false
		prev.LogoutAt = &now
	}
	s := &models.DeviceSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		DeviceID:     deviceID,
		LoginAt:      time.Now(),
		IsActive:     true,
		ReferralCode: referralCode,
	}
	r.sessions[userID] = append(r.sessions[userID], s)
	cp := *s
	return &cp
}

// ReleaseDevice deactivates the user's active session, if any, and returns a
// copy of the ended session.
func (r *SessionRepository) ReleaseDevice(userID string) *models.DeviceSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.active(userID); s != nil {
		now := time.Now()
		s.IsActive = false
		s.LogoutAt = &now
		cp := *s
		return &cp
	}
	return nil
}

// ActiveSession returns a copy of the user's active session, or nil.
func (r *SessionRepository) ActiveSession(userID string) *models.DeviceSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.active(userID); s != nil {
		cp := *s
		return &cp
	}
	return nil
}

// Restore inserts a session record as-is, used when warming from the archive.
func (r *SessionRepository) Restore(s *models.DeviceSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.UserID] = append(r.sessions[s.UserID], &cp)
}
