package model

import "time"

// Enrollment is a client's participation in a class (regular) or a single
// dated session. Older documents reference the class through ActivityID.
type Enrollment struct {
	ID          string     `gorm:"primaryKey;size:64"`
	ClientID    string     `gorm:"index;size:64;not null"`
	ClassID     string     `gorm:"size:64"`
	ActivityID  string     `gorm:"size:64"`
	Status      string     `gorm:"size:32;not null"`
	Type        string     `gorm:"size:32"`
	Weekday     *int
	WeekDays    string     `gorm:"size:32"`
	StartDate   *time.Time `gorm:"type:date"`
	EndDate     *time.Time `gorm:"type:date"`
	SessionDate *time.Time `gorm:"type:date"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
