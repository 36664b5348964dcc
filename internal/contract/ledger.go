package contract

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"gym-contracts-backend/internal/calendar"
)

// SuspensionRequest asks for a contract to be paused over [StartDate, EndDate].
type SuspensionRequest struct {
	StartDate calendar.Date `json:"startDate"`
	EndDate   calendar.Date `json:"endDate"`
	Reason    string        `json:"reason"`
}

// SuspensionResult is the projected write of a suspension command: the new
// or changed suspension and the contract fields to persist with it.
type SuspensionResult struct {
	Suspension Suspension `json:"suspension"`
	Contract   Instance   `json:"contract"`
}

// StopResult is the projected write of a stop command. UnusedDays is the
// number of days handed back to the contract; the end date moved back by
// exactly that amount.
type StopResult struct {
	Suspension Suspension `json:"suspension"`
	Contract   Instance   `json:"contract"`
	UnusedDays int        `json:"unusedDays"`
}

// Ledger does the suspension day accounting for one contract instance. It
// holds no state between calls; inputs are passed by value and the projected
// state is returned.
type Ledger struct {
	clock calendar.Clock
	newID func() string
}

// NewLedger creates a Ledger reading today's date from clock.
func NewLedger(clock calendar.Clock) *Ledger {
	return &Ledger{
		clock: clock,
		newID: func() string { return ulid.Make().String() },
	}
}

// Today returns the ledger's current date.
func (l *Ledger) Today() calendar.Date {
	return calendar.Today(l.clock)
}

// Schedule validates a suspension request against the contract's allowance
// and its suspension history, and returns the new suspension together with
// the updated counters. A request may not share a day with a scheduled or
// running suspension.
func (l *Ledger) Schedule(c Instance, history []Suspension, req SuspensionRequest) (SuspensionResult, error) {
	if c.Status.IsTerminal() {
		return SuspensionResult{}, NewError(CodeContractAlreadyTerminal, "contract %s is already canceled", c.ID)
	}
	if !c.AllowSuspension {
		return SuspensionResult{}, NewError(CodeSuspensionNotAllowed, "this contract does not allow suspensions")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return SuspensionResult{}, NewError(CodeInvalidRequest, "suspension start and end dates are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return SuspensionResult{}, NewError(CodeInvalidRange, "suspension ends (%s) before it starts (%s)", req.EndDate, req.StartDate).
			With("startDate", req.StartDate).
			With("endDate", req.EndDate)
	}

	if other, ok := overlapping(history, req.StartDate, req.EndDate, l.Today()); ok {
		return SuspensionResult{}, NewError(CodeInvalidRange, "suspension overlaps suspension %s (%s to %s)", other.ID, other.StartDate, other.EndDate).
			With("startDate", req.StartDate).
			With("endDate", req.EndDate).
			With("overlaps", other.ID)
	}

	days := calendar.DaysBetween(req.StartDate, req.EndDate) + 1
	if c.TotalSuspendedDays+c.PendingSuspensionDays+days > c.SuspensionMaxDays {
		return SuspensionResult{}, NewError(CodeSuspensionLimitExceeded,
			"suspension of %d days exceeds the allowance: %d of %d days already used or reserved",
			days, c.TotalSuspendedDays+c.PendingSuspensionDays, c.SuspensionMaxDays).
			With("requestedDays", days).
			With("usedDays", c.TotalSuspendedDays).
			With("pendingDays", c.PendingSuspensionDays).
			With("maxDays", c.SuspensionMaxDays)
	}

	s := Suspension{
		ID:         l.newID(),
		ContractID: c.ID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Reason:     strings.TrimSpace(req.Reason),
		DaysUsed:   days,
	}

	if req.StartDate.After(l.Today()) {
		s.Status = SuspensionScheduled
		c.PendingSuspensionDays += days
		return SuspensionResult{Suspension: s, Contract: c}, nil
	}

	if err := transitionTo(&c, StatusSuspended); err != nil {
		return SuspensionResult{}, err
	}
	s.Status = SuspensionActive
	c.EndDate = c.EndDate.AddDays(days)
	c.TotalSuspendedDays += days
	return SuspensionResult{Suspension: s, Contract: c}, nil
}

// Stop ends a suspension early. A scheduled suspension is cancelled and its
// reservation released; an active one is cut at asOf and the unused days are
// handed back to the contract.
func (l *Ledger) Stop(c Instance, s Suspension, asOf calendar.Date) (StopResult, error) {
	today := l.Today()
	if asOf.IsZero() {
		asOf = today
	}
	if asOf.After(today) {
		return StopResult{}, NewError(CodeInvalidRequest, "a suspension cannot be stopped as of a future date (%s)", asOf).
			With("asOf", asOf)
	}
	if s.ContractID != "" && s.ContractID != c.ID {
		return StopResult{}, NewError(CodeInvalidRequest, "suspension %s does not belong to contract %s", s.ID, c.ID)
	}
	if c.Status.IsTerminal() {
		return StopResult{}, NewError(CodeContractAlreadyTerminal, "contract %s is already canceled", c.ID)
	}

	switch s.EffectiveStatus(today) {
	case SuspensionScheduled:
		s.Status = SuspensionCancelled
		c.PendingSuspensionDays = max(c.PendingSuspensionDays-s.DaysUsed, 0)
		return StopResult{Suspension: s, Contract: c}, nil

	case SuspensionActive:
		used := calendar.DaysBetween(s.StartDate, asOf) + 1
		if used < 1 {
			used = 1
		}
		if used > s.DaysUsed {
			used = s.DaysUsed
		}
		unused := s.DaysUsed - used

		if c.Status == StatusSuspended {
			if err := transitionTo(&c, resumedStatus(c)); err != nil {
				return StopResult{}, err
			}
		}
		c.EndDate = c.EndDate.AddDays(-unused)
		c.TotalSuspendedDays = max(c.TotalSuspendedDays-unused, 0)

		s.Status = SuspensionStopped
		s.DaysUsed = used
		// The stop day itself is the first day back; the range stays within
		// the booked one.
		if end := asOf.AddDays(-1); end.Before(s.EndDate) {
			s.EndDate = end
		}
		if s.EndDate.Before(s.StartDate) {
			s.EndDate = s.StartDate
		}
		return StopResult{Suspension: s, Contract: c, UnusedDays: unused}, nil

	default:
		return StopResult{}, NewError(CodeInvalidSuspensionState, "suspension %s is %s and cannot be stopped", s.ID, s.EffectiveStatus(today)).
			With("status", s.EffectiveStatus(today))
	}
}

// Activate starts a scheduled suspension whose start date has arrived: the
// reserved days become consumed days and the contract end date moves out.
func (l *Ledger) Activate(c Instance, s Suspension) (SuspensionResult, error) {
	today := l.Today()
	if s.Status != SuspensionScheduled || s.StartDate.After(today) {
		return SuspensionResult{}, NewError(CodeInvalidSuspensionState, "suspension %s is not due to start", s.ID).
			With("status", s.Status)
	}
	if c.Status != StatusSuspended {
		if err := transitionTo(&c, StatusSuspended); err != nil {
			return SuspensionResult{}, err
		}
	}

	c.PendingSuspensionDays = max(c.PendingSuspensionDays-s.DaysUsed, 0)
	c.TotalSuspendedDays += s.DaysUsed
	c.EndDate = c.EndDate.AddDays(s.DaysUsed)
	s.Status = SuspensionActive
	return SuspensionResult{Suspension: s, Contract: c}, nil
}

// Complete closes an active suspension that ran its full course. Its days
// stay consumed; the contract resumes unless a later suspension from history
// has already taken over.
func (l *Ledger) Complete(c Instance, history []Suspension, s Suspension) (SuspensionResult, error) {
	today := l.Today()
	if s.EffectiveStatus(today) != SuspensionCompleted || s.Status != SuspensionActive {
		return SuspensionResult{}, NewError(CodeInvalidSuspensionState, "suspension %s has not finished", s.ID).
			With("status", s.Status)
	}
	if c.Status == StatusSuspended && !runningOther(history, s.ID, today) {
		if err := transitionTo(&c, resumedStatus(c)); err != nil {
			return SuspensionResult{}, err
		}
	}
	s.Status = SuspensionCompleted
	return SuspensionResult{Suspension: s, Contract: c}, nil
}

// overlapping returns the first scheduled or running suspension in history
// that shares a day with [from, to].
func overlapping(history []Suspension, from, to, today calendar.Date) (Suspension, bool) {
	for _, h := range history {
		switch h.EffectiveStatus(today) {
		case SuspensionScheduled, SuspensionActive:
			if !h.StartDate.After(to) && !h.EndDate.Before(from) {
				return h, true
			}
		}
	}
	return Suspension{}, false
}

// runningOther reports whether a suspension other than id is running today.
func runningOther(history []Suspension, id string, today calendar.Date) bool {
	for _, h := range history {
		if h.ID != id && h.EffectiveStatus(today) == SuspensionActive {
			return true
		}
	}
	return false
}
