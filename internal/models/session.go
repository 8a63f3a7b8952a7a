package models

import "time"

// DeviceSession binds a user to one physical device. Switching devices
// deactivates the previous record instead of deleting it, so the login
// history survives.
type DeviceSession struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	UserID       string     `gorm:"size:64;not null;index" json:"userId"`
	DeviceID     string     `gorm:"size:128;not null" json:"deviceId"`
	LoginAt      time.Time  `json:"loginAt"`
	LogoutAt     *time.Time `json:"logoutAt,omitempty"`
	IsActive     bool       `gorm:"default:true;index" json:"isActive"`
	ReferralCode string     `gorm:"size:64" json:"referralCode,omitempty"`
}

func (DeviceSession) TableName() string { return "device_sessions" }
