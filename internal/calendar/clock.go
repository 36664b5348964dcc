package calendar

import (
	"math"
	"time"
)

// Clock is the source of "now". Every component that needs today's date
// receives one instead of reading the process clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location (UTC when unset).
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// FixedDay returns a clock pinned to noon UTC of d.
func FixedDay(d Date) FixedClock {
	return FixedClock{At: d.Time().Add(12 * time.Hour)}
}

// Today returns the normalized current date of c.
func Today(c Clock) Date {
	return FromTime(c.Now())
}

// DaysRemaining counts the days left until end (inclusive), rounding up so a
// contract that ends later today still reports 1. Past dates report 0.
func DaysRemaining(now time.Time, end Date) int {
	if end.IsZero() {
		return 0
	}
	boundary := end.AddDays(1).In(now.Location())
	left := boundary.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}
