package repository

import (
	"errors"
	"strings"
	"sync"
	"time"

	"studentconnect/internal/models"

	"github.com/google/uuid"
)

var (
	ErrCodeNotFound = errors.New("referral code not found")
	ErrCodeUsed     = errors.New("referral code already used")
	ErrCodeExpired  = errors.New("referral code has expired")
)

// codeTTL is the fixed expiry horizon for newly issued codes.
const codeTTL = 365 * 24 * time.Hour

// ReferralRepository owns referral codes and their consultancies. Codes are
// consumed exactly once and never deleted; expiry is evaluated lazily against
// the clock at read time.
type ReferralRepository struct {
	mu            sync.RWMutex
	codes         map[string]*models.ReferralCode // keyed by code string
	consultancies map[string]*models.Consultancy  // keyed by consultancy id
}

func NewReferralRepository() *ReferralRepository {
	return &ReferralRepository{
		codes:         make(map[string]*models.ReferralCode),
		consultancies: make(map[string]*models.Consultancy),
	}
}

// GenerateBatch creates a consultancy and n codes expiring one year out.
// Code format: CONSULTANCYNAME-XXXXXXXX, spaces stripped from the name.
func (r *ReferralRepository) GenerateBatch(consultancyName, createdBy string, n int) (*models.Consultancy, []*models.ReferralCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	expires := now.Add(codeTTL)
	consultancy := &models.Consultancy{
		ID:         uuid.NewString(),
		Name:       consultancyName,
		TotalCodes: n,
		CreatedAt:  now,
		IsActive:   true,
	}
	prefix := strings.ToUpper(strings.ReplaceAll(consultancyName, " ", ""))
	codes := make([]*models.ReferralCode, 0, n)
	for i := 0; i < n; i++ {
		code := prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
		rc := &models.ReferralCode{
			ID:              uuid.NewString(),
			Code:            code,
			ConsultancyName: consultancyName,
			ConsultancyID:   consultancy.ID,
			CreatedAt:       now,
			ExpiresAt:       expires,
			CreatedBy:       createdBy,
		}
		r.codes[code] = rc
		consultancy.Codes = append(consultancy.Codes, code)
		cp := *rc
		codes = append(codes, &cp)
	}
	r.consultancies[consultancy.ID] = consultancy
	cp := *consultancy
	cp.Codes = append([]string(nil), consultancy.Codes...)
	return &cp, codes
}

// GetCode returns a copy of the code record.
func (r *ReferralRepository) GetCode(code string) (*models.ReferralCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	cp := *rc
	return &cp, nil
}

// Validate checks that a code exists, is unused and unexpired.
func (r *ReferralRepository) Validate(code string) (*models.ReferralCode, error) {
	rc, err := r.GetCode(code)
	if err != nil {
		return nil, err
	}
	if rc.IsUsed {
		return nil, ErrCodeUsed
	}
	if rc.Expired(time.Now()) {
		return nil, ErrCodeExpired
	}
	return rc, nil
}

// Consume transitions a code used=false->true exactly once, binding the
// consuming user, country and device permanently. The owning consultancy's
// used counter is incremented with the same lock held.
func (r *ReferralRepository) Consume(code, userID, country, deviceID string) (*models.ReferralCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	if rc.IsUsed {
		return nil, ErrCodeUsed
	}
	if rc.Expired(time.Now()) {
		return nil, ErrCodeExpired
	}
	now := time.Now()
	rc.IsUsed = true
	rc.UsedBy = userID
	rc.UsedAt = &now
	rc.AssignedCountry = country
	rc.DeviceID = deviceID
	if c, ok := r.consultancies[rc.ConsultancyID]; ok && c.UsedCodes < c.TotalCodes {
		c.UsedCodes++
	}
	cp := *rc
	return &cp, nil
}

// RebindDevice updates the device recorded on a consumed code (device
// switch). Country and consumer stay fixed.
func (r *ReferralRepository) RebindDevice(code, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.codes[code]
	if !ok {
		return ErrCodeNotFound
	}
	if !rc.IsUsed {
		return ErrCodeNotFound
	}
	rc.DeviceID = deviceID
	return nil
}

// GetConsultancy returns a consultancy with its code list copied.
func (r *ReferralRepository) GetConsultancy(id string) (*models.Consultancy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.consultancies[id]
	if !ok {
		return nil, errors.New("consultancy not found")
	}
	cp := *c
	cp.Codes = append([]string(nil), c.Codes...)
	return &cp, nil
}

// ListConsultancies returns copies of all consultancies.
func (r *ReferralRepository) ListConsultancies() []*models.Consultancy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Consultancy, 0, len(r.consultancies))
	for _, c := range r.consultancies {
		cp := *c
		cp.Codes = append([]string(nil), c.Codes...)
		out = append(out, &cp)
	}
	return out
}

// ListCodes returns copies of all codes.
func (r *ReferralRepository) ListCodes() []*models.ReferralCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.ReferralCode, 0, len(r.codes))
	for _, rc := range r.codes {
		cp := *rc
		out = append(out, &cp)
	}
	return out
}

// CodeStats counts total, used and (lazily) expired codes at the given time.
func (r *ReferralRepository) CodeStats(now time.Time) (total, used, expired int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total = len(r.codes)
	for _, rc := range r.codes {
		if rc.IsUsed {
			used++
		}
		if rc.Expired(now) {
			expired++
		}
	}
	return total, used, expired
}

func (r *ReferralRepository) ConsultancyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consultancies)
}

// Restore inserts archive records as-is during boot.
func (r *ReferralRepository) Restore(c *models.Consultancy, codes []*models.ReferralCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c != nil {
		cp := *c
		r.consultancies[c.ID] = &cp
	}
	for _, rc := range codes {
		cp := *rc
		r.codes[rc.Code] = &cp
		if c2, ok := r.consultancies[rc.ConsultancyID]; ok {
			c2.Codes = append(c2.Codes, rc.Code)
		}
	}
}
