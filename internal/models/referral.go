package models

import "time"

// ReferralCode is a consultancy-issued invite. A code is consumed at most
// once; once used, its country and device are fixed for the code's lifetime.
type ReferralCode struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	Code            string     `gorm:"uniqueIndex;size:64;not null" json:"code"`
	ConsultancyName string     `gorm:"size:128;not null" json:"consultancyName"`
	ConsultancyID   string     `gorm:"size:64;index" json:"consultancyId"`
	IsUsed          bool       `gorm:"default:false;index" json:"isUsed"`
	UsedBy          string     `gorm:"size:64" json:"usedBy,omitempty"`
	UsedAt          *time.Time `json:"usedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       time.Time  `gorm:"index" json:"expiresAt"`
	CreatedBy       string     `gorm:"size:64" json:"createdBy"`
	AssignedCountry string     `gorm:"size:8" json:"assignedCountry,omitempty"`
	DeviceID        string     `gorm:"size:128" json:"-"`
}

func (ReferralCode) TableName() string { return "referral_codes" }

// Expired reports whether the code is past its expiry at the given time.
// Expiry is evaluated lazily; codes are never deleted.
func (rc *ReferralCode) Expired(now time.Time) bool { return now.After(rc.ExpiresAt) }

// Consultancy owns a batch of referral codes. UsedCodes only ever grows and
// never exceeds TotalCodes.
type Consultancy struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Name       string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	TotalCodes int       `gorm:"not null" json:"totalCodes"`
	UsedCodes  int       `gorm:"not null;default:0" json:"usedCodes"`
	CreatedAt  time.Time `json:"createdAt"`
	IsActive   bool      `gorm:"default:true" json:"isActive"`

	// Codes are the owned code strings; the relation lives in referral_codes.
	Codes []string `gorm:"-" json:"referralCodes"`
}

func (Consultancy) TableName() string { return "consultancies" }
