package contract

import (
	"strings"

	"gym-contracts-backend/internal/calendar"
)

// CancelRequest terminates a contract now or flags it for termination on
// CancelDate.
type CancelRequest struct {
	Reason     string        `json:"reason"`
	Schedule   bool          `json:"schedule"`
	CancelDate calendar.Date `json:"cancelDate"`
}

// Cancel applies an immediate or scheduled cancellation and returns the
// updated contract. The input is not modified.
func Cancel(c Instance, req CancelRequest, today calendar.Date) (Instance, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return Instance{}, NewError(CodeMissingReason, "a cancellation reason is required")
	}
	if c.Status.IsTerminal() {
		return Instance{}, NewError(CodeContractAlreadyTerminal, "contract %s is already canceled", c.ID)
	}

	if !req.Schedule {
		if err := transitionTo(&c, StatusCanceled); err != nil {
			return Instance{}, err
		}
		c.CancelReason = reason
		c.CancelDate = calendar.Date{}
		return c, nil
	}

	if req.CancelDate.IsZero() || !req.CancelDate.After(today) {
		return Instance{}, NewError(CodeInvalidCancelDate, "a scheduled cancellation needs a date after %s", today).
			With("cancelDate", req.CancelDate)
	}
	// A suspended contract stays suspended; resumedStatus picks the pending
	// cancellation up when the suspension ends.
	if c.Status != StatusSuspended {
		if err := transitionTo(&c, StatusScheduledCancellation); err != nil {
			return Instance{}, err
		}
	}
	c.CancelReason = reason
	c.CancelDate = req.CancelDate
	return c, nil
}

// Finalize terminates a contract whose scheduled cancellation date has
// arrived. It fails with InvalidTransition when nothing is due.
func Finalize(c Instance, today calendar.Date) (Instance, error) {
	if c.Status.IsTerminal() {
		return Instance{}, NewError(CodeContractAlreadyTerminal, "contract %s is already canceled", c.ID)
	}
	if c.CancelDate.IsZero() || c.CancelDate.After(today) {
		return Instance{}, NewError(CodeInvalidTransition, "contract %s has no cancellation due on %s", c.ID, today)
	}
	if err := transitionTo(&c, StatusCanceled); err != nil {
		return Instance{}, err
	}
	return c, nil
}
