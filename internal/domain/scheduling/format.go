package scheduling

import "time"

const (
	clockLabelLayout = "3:04 PM"
	longDateLayout   = "January 2, 2006"
)

// HourLabel renders an hour of day as "8:00 AM".
func HourLabel(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format(clockLabelLayout)
}

// TimeRangeLabel renders an interval as "9:00 AM - 9:30 AM".
func TimeRangeLabel(iv TimeInterval) string {
	return iv.Start.Format(clockLabelLayout) + " - " + iv.End.Format(clockLabelLayout)
}

// LongDateLabel renders an ISO date as "June 3, 2024". Unparsable input is
// returned unchanged.
func LongDateLabel(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(longDateLayout)
}
