package scheduling

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrSchedulingConflict   = errors.New("scheduling conflict")
	ErrUnknownAppointment   = errors.New("appointment not found")
	ErrUnknownPractitioner  = errors.New("practitioner not found")
)

// MissingFieldError lists the booking request fields that were empty.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredField, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingRequiredField }

// ConflictError is returned when a candidate overlaps an existing booking
// for the same practitioner and date.
type ConflictError struct {
	Conflicting Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: practitioner %s is booked %s-%s on %s (appointment %s)",
		ErrSchedulingConflict, e.Conflicting.DoctorID, e.Conflicting.StartTime,
		e.Conflicting.EndTime, e.Conflicting.Date, e.Conflicting.ID)
}

func (e *ConflictError) Unwrap() error { return ErrSchedulingConflict }

// IsRejection reports whether err is a booking rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{ErrInvalidInterval, ErrMissingRequiredField, ErrSchedulingConflict, ErrUnknownAppointment, ErrUnknownPractitioner} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
