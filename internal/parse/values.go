package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gym-contracts-backend/internal/calendar"
)

var (
	bracketsRe   = regexp.MustCompile(`^\s*\[(.*)\]\s*$`)
	weekdaySepRe = regexp.MustCompile(`[,;\s]+`)
)

// Weekdays reads a stored weekday list such as "1,3,5", "[1, 3, 5]" or
// "1 3 5". The result is sorted and de-duplicated; an empty input is an empty
// (unrestricted) list.
func Weekdays(raw string) ([]int, error) {
	s := strings.TrimSpace(raw)
	if m := bracketsRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var days []int
	for _, part := range weekdaySepRe.Split(s, -1) {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.Trim(part, `"'`))
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q in %q", part, raw)
		}
		if n < 0 || n > 6 {
			return nil, fmt.Errorf("weekday %d out of range 0-6 in %q", n, raw)
		}
		if !seen[n] {
			seen[n] = true
			days = append(days, n)
		}
	}
	sort.Ints(days)
	return days, nil
}

// FormatWeekdays is the storage form of a weekday list: "1,3,5".
func FormatWeekdays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, n := range days {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

// Date reads an ISO calendar date. Full RFC 3339 timestamps are accepted and
// reduced to the calendar date they name in their own offset.
func Date(raw string) (calendar.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return calendar.Date{}, nil
	}
	if len(s) == len(calendar.Layout) {
		return calendar.Parse(s)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return calendar.FromTime(t), nil
}

// TimePtr converts an optional stored date column.
func TimePtr(t *time.Time) calendar.Date {
	if t == nil {
		return calendar.Date{}
	}
	return calendar.FromTime(*t)
}

// DatePtr is the storage form of an optional date.
func DatePtr(d calendar.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}
