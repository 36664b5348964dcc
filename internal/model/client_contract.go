package model

import "time"

// ClientContract is a client's purchased subscription with the template terms
// copied onto it at sale time.
type ClientContract struct {
	ID                    string     `gorm:"primaryKey;size:64"`
	ClientID              string     `gorm:"index;size:64;not null"`
	Status                string     `gorm:"size:32;not null;index"`
	StartDate             time.Time  `gorm:"type:date;not null"`
	EndDate               time.Time  `gorm:"type:date;not null"`
	TotalSuspendedDays    int        `gorm:"not null;default:0"`
	PendingSuspensionDays int        `gorm:"not null;default:0"`
	CancelReason          string     `gorm:"size:512"`
	CancelDate            *time.Time `gorm:"type:date;index"`
	AllowSuspension       bool       `gorm:"not null;default:false"`
	SuspensionMaxDays     int        `gorm:"not null;default:0"`
	AllowedWeekDays       string     `gorm:"size:32"` // "1,3,5"; empty means any day
	MaxWeeklyEnrollments  int        `gorm:"not null;default:0"`
	Version               int64      `gorm:"not null;default:1"`
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Associations
	Suspensions []Suspension `gorm:"foreignKey:ClientContractID"`
}
