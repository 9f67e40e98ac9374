package scheduling

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// TimeInterval is a half-open range [Start, End) on a single calendar date.
// Start and End are wall-clock instants in UTC; no time-zone semantics attach.
type TimeInterval struct {
	Date  string
	Start time.Time
	End   time.Time
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, s)
	}
	return d, nil
}

// ParseClock parses an HH:MM 24-hour time of day and returns the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalidInterval, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// NewInterval builds an interval from a date and two HH:MM strings.
func NewInterval(date, start, end string) (TimeInterval, error) {
	day, err := ParseDate(date)
	if err != nil {
		return TimeInterval{}, err
	}
	s, err := ParseClock(start)
	if err != nil {
		return TimeInterval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeInterval{}, err
	}
	return intervalOn(day, s, e)
}

func intervalOn(day time.Time, start, end time.Duration) (TimeInterval, error) {
	if start >= end {
		return TimeInterval{}, fmt.Errorf("%w: start must be before end", ErrInvalidInterval)
	}
	if end >= 24*time.Hour {
		return TimeInterval{}, fmt.Errorf("%w: interval crosses midnight", ErrInvalidInterval)
	}
	return TimeInterval{
		Date:  day.Format(DateLayout),
		Start: day.Add(start),
		End:   day.Add(end),
	}, nil
}

// Overlaps reports whether a and b share any instant. Abutting intervals
// (a.End == b.Start) do not overlap.
func Overlaps(a, b TimeInterval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Intersects reports whether iv shares any instant with [from, to).
func (iv TimeInterval) Intersects(from, to time.Time) bool {
	return iv.Start.Before(to) && from.Before(iv.End)
}

// Minutes is the length of the interval in whole minutes.
func (iv TimeInterval) Minutes() int {
	return int(iv.End.Sub(iv.Start) / time.Minute)
}

func (iv TimeInterval) StartClock() string { return iv.Start.Format(ClockLayout) }

func (iv TimeInterval) EndClock() string { return iv.End.Format(ClockLayout) }
