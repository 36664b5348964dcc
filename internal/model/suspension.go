package model

import "time"

// Suspension is one pause of a client contract.
type Suspension struct {
	ID               string    `gorm:"primaryKey;size:64"`
	ClientContractID string    `gorm:"index;size:64;not null"`
	StartDate        time.Time `gorm:"type:date;not null;index"`
	EndDate          time.Time `gorm:"type:date;not null"`
	Reason           string    `gorm:"size:512"`
	Status           string    `gorm:"size:32;not null;index"`
	DaysUsed         int       `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
