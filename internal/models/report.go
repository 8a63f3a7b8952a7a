package models

import "time"

// Report is an explicit user-filed report. Review happens in the admin
// dashboard; the engine only creates reports and counts pending ones.
type Report struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	ReporterID     string     `gorm:"size:64;not null;index" json:"reporterId"`
	ReportedUserID string     `gorm:"size:64;not null;index" json:"reportedUserId"`
	Reason         string     `gorm:"size:64;not null" json:"reason"`
	Message        string     `gorm:"type:text" json:"message,omitempty"`
	Status         string     `gorm:"size:16;default:'pending';index" json:"status"` // pending | reviewed | resolved
	CreatedAt      time.Time  `json:"createdAt"`
	ReviewedBy     string     `gorm:"size:64" json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
}

func (Report) TableName() string { return "reports" }
