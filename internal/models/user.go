package models

import (
	"time"

	"studentconnect/internal/domain"
)

// User is the canonical identity record. The live copy is owned by the
// in-memory UserRepository; rows in MySQL are a best-effort archive.
type User struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	Username        string     `gorm:"size:64;not null" json:"username"`
	Email           string     `gorm:"size:255;index" json:"email,omitempty"`
	PasswordHash    string     `gorm:"size:255" json:"-"`
	Country         string     `gorm:"size:8" json:"country"`
	AssignedCountry string     `gorm:"size:8;index" json:"assignedCountry,omitempty"` // immutable once set
	IsOnline        bool       `gorm:"default:false" json:"isOnline"`
	LastSeen        time.Time  `json:"lastSeen"`
	Avatar          string     `gorm:"size:512" json:"avatar"`
	AccountType     string     `gorm:"size:16;not null;index" json:"accountType"` // referral | verified | admin | founder
	ReferralCode    string     `gorm:"size:64;index" json:"referralCode,omitempty"`
	ConsultancyName string     `gorm:"size:128" json:"consultancyName,omitempty"`
	VisaPhotoURL    string     `gorm:"size:512" json:"visaPhotoUrl,omitempty"`
	VisaVerified    bool       `gorm:"default:false" json:"visaVerified"`
	DeviceID        string     `gorm:"size:128" json:"-"`
	GoogleID        *string    `gorm:"uniqueIndex;size:255" json:"-"` // nil for non-OAuth accounts
	ReportCount     float64    `gorm:"default:0" json:"reportCount"`  // fractional: moderation flags add 0.5
	IsBanned        bool       `gorm:"default:false;index" json:"isBanned"`
	JoinedAt        time.Time  `json:"joinedAt"`
	BannedAt        *time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsReferral() bool { return u.AccountType == domain.AccountReferral }

func (u *User) IsAdmin() bool {
	return u.AccountType == domain.AccountAdmin || u.AccountType == domain.AccountFounder
}
