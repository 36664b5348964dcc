package contract

// Transition is a status change of a contract instance.
type Transition struct {
	From Status
	To   Status
}

// validTransitions lists every status change the engine may perform. Any
// other change is rejected.
var validTransitions = map[Transition]bool{
	{StatusActive, StatusSuspended}:                            true, // suspension starts
	{StatusSuspended, StatusActive}:                            true, // suspension stopped or completed
	{StatusActive, StatusScheduledCancellation}:                true,
	{StatusActive, StatusCanceled}:                             true,
	{StatusSuspended, StatusScheduledCancellation}:             true,
	{StatusSuspended, StatusCanceled}:                          true,
	{StatusScheduledCancellation, StatusScheduledCancellation}: true, // rescheduled
	{StatusScheduledCancellation, StatusCanceled}:              true,
	{StatusScheduledCancellation, StatusSuspended}:             true, // cancellation still pending
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	return validTransitions[Transition{from, to}]
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled
}

// transitionTo is the only place that writes Instance.Status.
func transitionTo(c *Instance, to Status) error {
	if c.Status.IsTerminal() {
		return NewError(CodeContractAlreadyTerminal, "contract %s is already canceled", c.ID)
	}
	if !CanTransition(c.Status, to) {
		return NewError(CodeInvalidTransition, "contract %s cannot go from %s to %s", c.ID, c.Status, to).
			With("from", c.Status).
			With("to", to)
	}
	c.Status = to
	return nil
}

// resumedStatus is where a suspended contract goes when its suspension ends:
// back to active, or back to the pending cancellation it was flagged with.
func resumedStatus(c Instance) Status {
	if !c.CancelDate.IsZero() {
		return StatusScheduledCancellation
	}
	return StatusActive
}
