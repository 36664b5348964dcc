package eligibility

import (
	"sort"
	"strings"
	"time"

	"gym-contracts-backend/internal/calendar"
)

// DeriveWeekday is the single rule for which weekday a session or enrollment
// falls on: a concrete date wins, then the stored weekday, then the first
// entry of a weekday list. ok is false when nothing usable is present.
func DeriveWeekday(date calendar.Date, weekday *int, weekDays []int) (int, bool) {
	if !date.IsZero() {
		return int(date.Weekday()), true
	}
	if weekday != nil && validWeekday(*weekday) {
		return *weekday, true
	}
	if len(weekDays) > 0 && validWeekday(weekDays[0]) {
		return weekDays[0], true
	}
	return 0, false
}

// UndatedSessions returns the indexes of sessions whose weekday cannot be
// derived. Such sessions take no part in the weekday checks.
func UndatedSessions(sessions []Session) []int {
	var out []int
	for i, s := range sessions {
		if _, ok := s.DerivedWeekday(); !ok {
			out = append(out, i)
		}
	}
	return out
}

func validWeekday(n int) bool {
	return n >= 0 && n <= 6
}

// weekdaySet is a set of weekdays 0-6.
type weekdaySet map[int]struct{}

func (s weekdaySet) add(n int) { s[n] = struct{}{} }

func (s weekdaySet) has(n int) bool {
	_, ok := s[n]
	return ok
}

// sorted returns the members in ascending order.
func (s weekdaySet) sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func newWeekdaySet(days []int) weekdaySet {
	s := make(weekdaySet, len(days))
	for _, n := range days {
		if validWeekday(n) {
			s.add(n)
		}
	}
	return s
}

// WeekdayNames renders weekdays as English day names, e.g. "Monday, Wednesday".
func WeekdayNames(days []int) string {
	names := make([]string, 0, len(days))
	for _, n := range days {
		if validWeekday(n) {
			names = append(names, time.Weekday(n).String())
		}
	}
	return strings.Join(names, ", ")
}
