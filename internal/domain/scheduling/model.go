package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDuration applies to records that carry neither an end time nor a
// positive duration.
const DefaultDuration = 30

// Category is a presentation label. It carries no scheduling semantics.
type Category int

const (
	CategoryOther Category = iota
	CategoryEmergency
	CategoryExamination
	CategoryConsultation
	CategoryRoutineCheckup
	CategorySickVisit
)

// DefaultCategory is used when a booking request leaves the category empty.
const DefaultCategory = CategoryConsultation

var categoryLabels = map[Category]string{
	CategoryOther:          "other",
	CategoryEmergency:      "emergency",
	CategoryExamination:    "examination",
	CategoryConsultation:   "consultation",
	CategoryRoutineCheckup: "routine checkup",
	CategorySickVisit:      "sick visit",
}

// Categories lists every bookable category in legend order.
var Categories = []Category{
	CategoryEmergency,
	CategoryExamination,
	CategoryConsultation,
	CategoryRoutineCheckup,
	CategorySickVisit,
}

// ParseCategory maps a label to a Category. Unrecognised labels fall back to
// CategoryOther rather than failing.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, label := range categoryLabels {
		if label == s {
			return c
		}
	}
	return CategoryOther
}

func (c Category) String() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOther]
}

// Color is the legend colour used by calendar views.
func (c Category) Color() string {
	switch c {
	case CategoryEmergency:
		return "red"
	case CategoryExamination:
		return "amber"
	case CategoryConsultation:
		return "blue"
	case CategoryRoutineCheckup:
		return "green"
	case CategorySickVisit:
		return "purple"
	default:
		return "gray"
	}
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}

// Appointment is a single booking of a practitioner's time. Records are
// replaced whole on edit; ID never changes.
type Appointment struct {
	ID          string   `json:"id"`
	PatientName string   `json:"patient_name"`
	DoctorID    string   `json:"doctor_id"`
	Date        string   `json:"date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time,omitempty"`
	Duration    int      `json:"duration"`
	Category    Category `json:"category"`
	Details     string   `json:"details,omitempty"`
}

// Interval resolves the appointment's time range. A missing end time is
// derived from Duration (or DefaultDuration when Duration is not positive).
func (a Appointment) Interval() (TimeInterval, error) {
	day, err := ParseDate(a.Date)
	if err != nil {
		return TimeInterval{}, err
	}
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return TimeInterval{}, err
	}
	if a.EndTime == "" {
		mins := a.Duration
		if mins <= 0 {
			mins = DefaultDuration
		}
		return intervalOn(day, start, start+time.Duration(mins)*time.Minute)
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return TimeInterval{}, err
	}
	return intervalOn(day, start, end)
}

// Normalize returns a copy with canonical date/time strings, EndTime filled
// in and Duration recomputed from the resolved pair.
func (a Appointment) Normalize() (Appointment, error) {
	iv, err := a.Interval()
	if err != nil {
		return a, fmt.Errorf("appointment %q: %w", a.ID, err)
	}
	a.Date = iv.Date
	a.StartTime = iv.StartClock()
	a.EndTime = iv.EndClock()
	a.Duration = iv.Minutes()
	return a, nil
}
