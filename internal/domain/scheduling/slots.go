package scheduling

import (
	"context"
	"fmt"
	"time"
)

const DefaultSlotStep = 15

// Slot is an open interval a booking could take.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Label     string `json:"label"`
}

// SlotQuery asks for open slots of Length minutes for one practitioner.
// Zero Length and Step fall back to DefaultDuration and DefaultSlotStep.
type SlotQuery struct {
	DoctorID string
	Date     string
	Length   int
	Step     int
}

// FreeSlots walks [from, to) on date in steps and returns every interval of
// length that overlaps none of doctorID's appointments. Starts before
// notBefore are skipped. Unresolvable records are ignored, as in conflict
// checks.
func FreeSlots(date, doctorID string, appts []Appointment, from, to, length, step time.Duration, notBefore time.Time) ([]TimeInterval, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if length <= 0 || step <= 0 {
		return nil, fmt.Errorf("%w: slot length and step must be positive", ErrInvalidInterval)
	}

	var busy []TimeInterval
	for _, a := range appts {
		if a.DoctorID != doctorID || a.Date != date {
			continue
		}
		if iv, err := a.Interval(); err == nil {
			busy = append(busy, iv)
		}
	}

	slots := []TimeInterval{}
	for t := from; t+length <= to; t += step {
		cand, err := intervalOn(day, t, t+length)
		if err != nil {
			break
		}
		if cand.Start.Before(notBefore) {
			continue
		}
		free := true
		for _, b := range busy {
			if Overlaps(cand, b) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, cand)
		}
	}
	return slots, nil
}

// FreeSlots lists open slots inside the grid's working hours. On today's
// date, slots that have already started are left out.
func (s *Service) FreeSlots(ctx context.Context, q SlotQuery) ([]Slot, error) {
	if q.DoctorID == "" || q.Date == "" {
		var missing []string
		if q.DoctorID == "" {
			missing = append(missing, "doctor")
		}
		if q.Date == "" {
			missing = append(missing, "date")
		}
		return nil, &MissingFieldError{Fields: missing}
	}
	if s.dir != nil && !s.dir.Has(q.DoctorID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPractitioner, q.DoctorID)
	}
	if q.Length == 0 {
		q.Length = DefaultDuration
	}
	if q.Step == 0 {
		q.Step = DefaultSlotStep
	}
	if q.Length < 5 || q.Length > 8*60 || q.Step < 5 {
		return nil, fmt.Errorf("%w: length must be 5-480 minutes and step at least 5", ErrInvalidInterval)
	}

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	now := s.now()
	wall := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, time.UTC)
	from := time.Duration(s.grid.FirstHour) * time.Hour
	to := from + time.Duration(s.grid.Rows)*time.Hour
	ivs, err := FreeSlots(q.Date, q.DoctorID, all, from, to,
		time.Duration(q.Length)*time.Minute, time.Duration(q.Step)*time.Minute, wall)
	if err != nil {
		return nil, err
	}

	out := make([]Slot, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, Slot{StartTime: iv.StartClock(), EndTime: iv.EndClock(), Label: TimeRangeLabel(iv)})
	}
	return out, nil
}
