package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"
)

func clocks(ivs []TimeInterval) []string {
	out := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, iv.StartClock()+"-"+iv.EndClock())
	}
	return out
}

func TestFreeSlots(t *testing.T) {
	appts := []Appointment{
		appt("1", "D1", "2024-06-03", "09:30", "10:00"),
		appt("2", "D2", "2024-06-03", "09:00", "11:00"),
		appt("3", "D1", "2024-06-04", "09:00", "11:00"),
		{ID: "broken", DoctorID: "D1", Date: "2024-06-03", StartTime: "nine"},
	}
	got, err := FreeSlots("2024-06-03", "D1", appts, 9*time.Hour, 11*time.Hour, 30*time.Minute, 15*time.Minute, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00-09:30", "10:00-10:30", "10:15-10:45", "10:30-11:00"}
	if g := clocks(got); len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	} else {
		for i := range want {
			if g[i] != want[i] {
				t.Errorf("slot %d = %s, want %s", i, g[i], want[i])
			}
		}
	}
}

func TestFreeSlots_NotBeforeAndEdges(t *testing.T) {
	notBefore := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	got, _ := FreeSlots("2024-06-03", "D1", nil, 9*time.Hour, 11*time.Hour, time.Hour, 30*time.Minute, notBefore)
	if g := clocks(got); len(g) != 1 || g[0] != "10:00-11:00" {
		t.Errorf("got %v", g)
	}

	got, _ = FreeSlots("2024-06-03", "D1", nil, 23*time.Hour, 24*time.Hour, 30*time.Minute, 30*time.Minute, time.Time{})
	if g := clocks(got); len(g) != 1 || g[0] != "23:00-23:30" {
		t.Errorf("slots must stop before midnight, got %v", g)
	}

	if _, err := FreeSlots("June", "D1", nil, 9*time.Hour, 10*time.Hour, time.Hour, time.Hour, time.Time{}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestService_FreeSlots(t *testing.T) {
	svc := newTestService(appt("1", "D1", "2024-06-06", "08:00", "18:30"))
	slots, err := svc.FreeSlots(context.Background(), SlotQuery{DoctorID: "D1", Date: "2024-06-06", Length: 60, Step: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 || slots[0].StartTime != "18:30" || slots[0].Label != "6:30 PM - 7:30 PM" || slots[1].EndTime != "20:00" {
		t.Errorf("unexpected slots %+v", slots)
	}
}

func TestService_FreeSlots_TodaySkipsPast(t *testing.T) {
	// testNow is 2024-06-05 10:00
	svc := newTestService()
	slots, err := svc.FreeSlots(context.Background(), SlotQuery{DoctorID: "D1", Date: "2024-06-05"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 || slots[0].StartTime != "10:00" {
		t.Errorf("expected first slot at 10:00, got %+v", slots)
	}
	if last := slots[len(slots)-1]; last.EndTime != "20:00" {
		t.Errorf("expected last slot to end at 20:00, got %+v", last)
	}
}

func TestService_FreeSlots_Rejections(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		q    SlotQuery
		want error
	}{
		{"missing doctor", SlotQuery{Date: "2024-06-05"}, ErrMissingRequiredField},
		{"unknown doctor", SlotQuery{DoctorID: "D9", Date: "2024-06-05"}, ErrUnknownPractitioner},
		{"bad date", SlotQuery{DoctorID: "D1", Date: "tomorrow"}, ErrInvalidInterval},
		{"too long", SlotQuery{DoctorID: "D1", Date: "2024-06-05", Length: 600}, ErrInvalidInterval},
		{"tiny step", SlotQuery{DoctorID: "D1", Date: "2024-06-05", Step: 1}, ErrInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.FreeSlots(context.Background(), tt.q); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
