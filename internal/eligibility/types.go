package eligibility

import (
	"gym-contracts-backend/internal/calendar"
)

// Kind is the type of enrollment being requested or held.
type Kind string

const (
	KindRegular       Kind = "regular"
	KindExperimental  Kind = "experimental"
	KindSingleSession Kind = "single-session"
)

// EnrollmentStatus of a standing enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentCanceled EnrollmentStatus = "canceled"
)

// Session is one candidate class occurrence or recurring slot.
type Session struct {
	ClassID     string        `json:"idClass"`
	SessionDate calendar.Date `json:"sessionDate"`
	Weekday     *int          `json:"weekday"`
	WeekDays    []int         `json:"weekDays"`
}

// DerivedWeekday derives the session's weekday.
func (s Session) DerivedWeekday() (int, bool) {
	return DeriveWeekday(s.SessionDate, s.Weekday, s.WeekDays)
}

// Enrollment is a client's existing participation in a class or session.
type Enrollment struct {
	ID          string           `json:"id"`
	ClientID    string           `json:"idClient"`
	ClassID     string           `json:"idClass"`
	Status      EnrollmentStatus `json:"status"`
	Type        Kind             `json:"type"`
	Weekday     *int             `json:"weekday"`
	WeekDays    []int            `json:"weekDays"`
	StartDate   calendar.Date    `json:"startDate"`
	EndDate     calendar.Date    `json:"endDate"`
	SessionDate calendar.Date    `json:"sessionDate"`
}

// DerivedWeekday derives the enrollment's weekday with the same rule as sessions.
func (e Enrollment) DerivedWeekday() (int, bool) {
	return DeriveWeekday(e.SessionDate, e.Weekday, e.WeekDays)
}

// activeDuring reports whether the enrollment is active and its effective
// window overlaps [from, to].
func (e Enrollment) activeDuring(from, to calendar.Date) bool {
	if e.Status != EnrollmentActive {
		return false
	}
	if !e.SessionDate.IsZero() {
		return e.SessionDate.Within(from, to)
	}
	if !e.StartDate.IsZero() && e.StartDate.After(to) {
		return false
	}
	if !e.EndDate.IsZero() && e.EndDate.Before(from) {
		return false
	}
	return true
}

// Request asks whether a client may enroll in the given sessions.
type Request struct {
	ClientID string    `json:"idClient"`
	Sessions []Session `json:"sessions"`
	Kind     Kind      `json:"kind"`
}

// Governing identifies the contract an accepted enrollment is stamped with.
type Governing struct {
	ContractID string        `json:"id"`
	StartDate  calendar.Date `json:"startDate"`
	EndDate    calendar.Date `json:"endDate"`
}
