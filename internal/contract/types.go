package contract

import (
	"gym-contracts-backend/internal/calendar"
)

// Status is the lifecycle state of a contract instance.
type Status string

const (
	StatusActive                Status = "active"
	StatusSuspended             Status = "suspended"
	StatusScheduledCancellation Status = "scheduled_cancellation"
	StatusCanceled              Status = "canceled"
)

// Terms are the template fields copied onto an instance when it is sold.
// The engine treats the copy as authoritative.
type Terms struct {
	AllowSuspension      bool  `json:"allowSuspension"`
	SuspensionMaxDays    int   `json:"suspensionMaxDays"`
	AllowedWeekDays      []int `json:"allowedWeekDays"`
	MaxWeeklyEnrollments int   `json:"maxWeeklyEnrollments"`
}

// Instance is one client's subscription.
type Instance struct {
	ID                    string        `json:"id"`
	ClientID              string        `json:"idClient"`
	Status                Status        `json:"status"`
	StartDate             calendar.Date `json:"startDate"`
	EndDate               calendar.Date `json:"endDate"`
	TotalSuspendedDays    int           `json:"totalSuspendedDays"`
	PendingSuspensionDays int           `json:"pendingSuspensionDays"`
	CancelReason          string        `json:"cancelReason,omitempty"`
	CancelDate            calendar.Date `json:"cancelDate"`
	Terms
	// Version is the optimistic-concurrency token of the stored row.
	Version int64 `json:"version"`
}

// Covers reports whether d lies inside the contract's validity window.
func (c Instance) Covers(d calendar.Date) bool {
	return d.Within(c.StartDate, c.EndDate)
}

// RemainingSuspensionDays is the allowance not yet consumed or reserved.
func (c Instance) RemainingSuspensionDays() int {
	if !c.AllowSuspension {
		return 0
	}
	left := c.SuspensionMaxDays - c.TotalSuspendedDays - c.PendingSuspensionDays
	if left < 0 {
		return 0
	}
	return left
}

// SuspensionStatus is the state of a single suspension record.
type SuspensionStatus string

const (
	SuspensionScheduled SuspensionStatus = "scheduled"
	SuspensionActive    SuspensionStatus = "active"
	SuspensionStopped   SuspensionStatus = "stopped"
	SuspensionCancelled SuspensionStatus = "cancelled"
	SuspensionCompleted SuspensionStatus = "completed"
)

// Suspension is a pause of a contract's active period.
type Suspension struct {
	ID         string           `json:"id"`
	ContractID string           `json:"idClientContract"`
	StartDate  calendar.Date    `json:"startDate"`
	EndDate    calendar.Date    `json:"endDate"`
	Reason     string           `json:"reason"`
	Status     SuspensionStatus `json:"status"`
	DaysUsed   int              `json:"daysUsed"`
}

// EffectiveStatus reports completed for an active suspension whose end date
// has passed, even when the stored status has not been updated yet.
func (s Suspension) EffectiveStatus(today calendar.Date) SuspensionStatus {
	if s.Status == SuspensionActive && s.EndDate.Before(today) {
		return SuspensionCompleted
	}
	return s.Status
}

// FindSuspension returns the suspension with the given id from history.
func FindSuspension(history []Suspension, id string) (Suspension, bool) {
	for _, s := range history {
		if s.ID == id {
			return s, true
		}
	}
	return Suspension{}, false
}
