package scheduling

// ConflictCheck is the advisory result of comparing a candidate booking
// against the current appointment collection.
type ConflictCheck struct {
	Legal     bool
	Conflicts []Appointment
	// Skipped holds ids of existing records whose interval could not be
	// resolved; they cannot take part in an overlap.
	Skipped []string
}

// First returns the earliest-listed conflicting appointment, if any.
// Conflicts are normalized, so EndTime is always set.
func (c ConflictCheck) First() (Appointment, bool) {
	if len(c.Conflicts) == 0 {
		return Appointment{}, false
	}
	return c.Conflicts[0], true
}

// CheckConflicts reports whether candidate may be committed alongside
// existing. Only records with the same practitioner and date and a different
// id are compared, so an edit never collides with its own prior version.
// The candidate's interval must resolve; existing records are resolved with
// the same duration fallback as the candidate.
func CheckConflicts(candidate Appointment, existing []Appointment) (ConflictCheck, error) {
	iv, err := candidate.Interval()
	if err != nil {
		return ConflictCheck{}, err
	}
	check := ConflictCheck{Legal: true}
	if candidate.DoctorID == "" {
		return check, nil
	}

	for _, other := range existing {
		if other.DoctorID != candidate.DoctorID || other.ID == candidate.ID {
			continue
		}
		oiv, err := other.Interval()
		if err != nil {
			check.Skipped = append(check.Skipped, other.ID)
			continue
		}
		if oiv.Date != iv.Date {
			continue
		}
		if Overlaps(iv, oiv) {
			resolved, _ := other.Normalize()
			check.Conflicts = append(check.Conflicts, resolved)
		}
	}
	check.Legal = len(check.Conflicts) == 0
	return check, nil
}
