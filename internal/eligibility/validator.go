package eligibility

import (
	"sort"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
)

// Validator decides whether a client may enroll in a set of sessions under
// their current contract. It is stateless apart from its clock.
type Validator struct {
	clock calendar.Clock
}

// NewValidator creates a Validator reading today's date from clock.
func NewValidator(clock calendar.Clock) *Validator {
	return &Validator{clock: clock}
}

// Validate checks req against the client's contracts and existing
// enrollments. On success it returns the governing contract (nil for
// experimental enrollments, which need none); on rejection it returns a
// *contract.Error.
func (v *Validator) Validate(req Request, contracts []contract.Instance, enrollments []Enrollment) (*Governing, error) {
	if req.Kind == KindExperimental {
		return nil, nil
	}

	today := calendar.Today(v.clock)

	if len(contracts) == 0 {
		return nil, contract.NewError(contract.CodeNoContract, "the client has no contract")
	}

	var active []contract.Instance
	for _, c := range contracts {
		if c.Status == contract.StatusActive {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, contract.NewError(contract.CodeNoActiveContract, "the client has no active contract")
	}

	gov, err := governing(active, today)
	if err != nil {
		return nil, err
	}

	requested := make(weekdaySet)
	for _, s := range req.Sessions {
		if wd, ok := s.DerivedWeekday(); ok {
			requested.add(wd)
		}
	}

	if allowed := newWeekdaySet(gov.AllowedWeekDays); len(allowed) > 0 {
		rejected := make(weekdaySet)
		for wd := range requested {
			if !allowed.has(wd) {
				rejected.add(wd)
			}
		}
		if len(rejected) > 0 {
			return nil, contract.NewError(contract.CodeWeekdayNotAllowed,
				"the contract only allows %s; not allowed: %s",
				WeekdayNames(allowed.sorted()), WeekdayNames(rejected.sorted())).
				With("allowed", allowed.sorted()).
				With("rejected", rejected.sorted())
		}
	}

	if limit := gov.MaxWeeklyEnrollments; limit > 0 {
		weekStart, weekEnd := today.StartOfWeek(), today.EndOfWeek()
		existing := make(weekdaySet)
		for _, e := range enrollments {
			if !e.activeDuring(weekStart, weekEnd) {
				continue
			}
			if wd, ok := e.DerivedWeekday(); ok {
				existing.add(wd)
			}
		}

		union := make(weekdaySet, len(existing)+len(requested))
		added := 0
		for wd := range existing {
			union.add(wd)
		}
		for wd := range requested {
			if !union.has(wd) {
				added++
			}
			union.add(wd)
		}

		if len(union) > limit {
			return nil, contract.NewError(contract.CodeWeeklyCapExceeded,
				"the contract allows %d distinct weekdays per week; %d already used and this enrollment adds %d",
				limit, len(existing), added).
				With("cap", limit).
				With("existingCount", len(existing)).
				With("requestedCount", added)
		}
	}

	return &Governing{ContractID: gov.ID, StartDate: gov.StartDate, EndDate: gov.EndDate}, nil
}

// governing picks the active contract covering today, preferring the latest
// end date. When none covers today it reports whether the nearest one has
// not started yet or has already lapsed.
func governing(active []contract.Instance, today calendar.Date) (contract.Instance, error) {
	var covering []contract.Instance
	for _, c := range active {
		if c.Covers(today) {
			covering = append(covering, c)
		}
	}

	if len(covering) > 0 {
		sort.SliceStable(covering, func(i, j int) bool {
			if cmp := covering[i].EndDate.Compare(covering[j].EndDate); cmp != 0 {
				return cmp > 0
			}
			return covering[i].ID < covering[j].ID
		})
		return covering[0], nil
	}

	nearest := active[0]
	bestDistance := distance(nearest, today)
	for _, c := range active[1:] {
		dist := distance(c, today)
		if dist < bestDistance || (dist == bestDistance && c.StartDate.After(today) && !nearest.StartDate.After(today)) {
			nearest, bestDistance = c, dist
		}
	}

	if nearest.StartDate.After(today) {
		return contract.Instance{}, contract.NewError(contract.CodeContractNotYetValid,
			"the contract is valid from %s", nearest.StartDate).
			With("date", nearest.StartDate)
	}
	return contract.Instance{}, contract.NewError(contract.CodeContractExpired,
		"the contract expired on %s", nearest.EndDate).
		With("date", nearest.EndDate)
}

// distance in days between today and the contract window, for a contract
// that does not cover today.
func distance(c contract.Instance, today calendar.Date) int {
	if c.StartDate.After(today) {
		return calendar.DaysBetween(today, c.StartDate)
	}
	return calendar.DaysBetween(c.EndDate, today)
}
