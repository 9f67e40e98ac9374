package scheduling

import (
	"errors"
	"strings"
	"testing"
)

func appt(id, doctor, date, start, end string) Appointment {
	return Appointment{ID: id, PatientName: "p" + id, DoctorID: doctor, Date: date, StartTime: start, EndTime: end}
}

func TestCheckConflicts(t *testing.T) {
	existing := []Appointment{
		appt("1", "D1", "2024-06-03", "10:00", "10:30"),
		appt("2", "D2", "2024-06-03", "10:00", "10:30"),
		appt("3", "D1", "2024-06-04", "10:00", "10:30"),
	}
	tests := []struct {
		name      string
		candidate Appointment
		legal     bool
		conflicts []string
	}{
		{"touching after", appt("new", "D1", "2024-06-03", "10:30", "11:00"), true, nil},
		{"touching before", appt("new", "D1", "2024-06-03", "09:30", "10:00"), true, nil},
		{"overlap", appt("new", "D1", "2024-06-03", "10:15", "10:45"), false, []string{"1"}},
		{"other doctor only", appt("new", "D3", "2024-06-03", "10:00", "10:30"), true, nil},
		{"other date", appt("new", "D1", "2024-06-05", "10:00", "10:30"), true, nil},
		{"self edit", appt("1", "D1", "2024-06-03", "10:00", "10:30"), true, nil},
		{"no doctor", appt("new", "", "2024-06-03", "10:00", "10:30"), true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := CheckConflicts(tt.candidate, existing)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if check.Legal != tt.legal {
				t.Errorf("Legal = %v, want %v", check.Legal, tt.legal)
			}
			if len(check.Conflicts) != len(tt.conflicts) {
				t.Fatalf("conflicts = %+v, want ids %v", check.Conflicts, tt.conflicts)
			}
			for i, id := range tt.conflicts {
				if check.Conflicts[i].ID != id {
					t.Errorf("conflict %d = %s, want %s", i, check.Conflicts[i].ID, id)
				}
			}
		})
	}
}

func TestCheckConflicts_FirstIsEarliestListed(t *testing.T) {
	existing := []Appointment{
		appt("b", "D1", "2024-06-03", "10:30", "11:00"),
		appt("a", "D1", "2024-06-03", "10:00", "10:30"),
	}
	check, err := CheckConflicts(appt("new", "D1", "2024-06-03", "10:00", "11:00"), existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := check.First()
	if !ok || first.ID != "b" {
		t.Errorf("expected first conflict b, got %+v", first)
	}
}

func TestCheckConflicts_LegacyDurationRecord(t *testing.T) {
	legacy := Appointment{ID: "old", DoctorID: "D1", Date: "2024-06-03", StartTime: "09:00", Duration: 45}
	check, _ := CheckConflicts(appt("new", "D1", "2024-06-03", "09:30", "10:00"), []Appointment{legacy})
	if check.Legal {
		t.Error("expected overlap with 09:00-09:45 legacy record")
	}
	first, _ := check.First()
	if first.EndTime != "09:45" || first.Duration != 45 {
		t.Errorf("conflict should carry the resolved interval, got %+v", first)
	}
	if msg := (&ConflictError{Conflicting: first}).Error(); !strings.Contains(msg, "09:00-09:45") {
		t.Errorf("unexpected conflict message %q", msg)
	}
	check, _ = CheckConflicts(appt("new", "D1", "2024-06-03", "09:45", "10:00"), []Appointment{legacy})
	if !check.Legal {
		t.Error("expected touching slot after legacy record to be legal")
	}
}

func TestCheckConflicts_SkipsUnresolvable(t *testing.T) {
	existing := []Appointment{
		{ID: "broken", DoctorID: "D1", Date: "2024-06-03", StartTime: "later"},
		appt("ok", "D1", "2024-06-03", "12:00", "12:30"),
	}
	check, err := CheckConflicts(appt("new", "D1", "2024-06-03", "10:00", "10:30"), existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !check.Legal {
		t.Error("expected legal")
	}
	if len(check.Skipped) != 1 || check.Skipped[0] != "broken" {
		t.Errorf("expected broken to be skipped, got %v", check.Skipped)
	}
}

func TestCheckConflicts_InvalidCandidate(t *testing.T) {
	_, err := CheckConflicts(appt("new", "D1", "2024-06-03", "11:00", "10:00"), nil)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}
