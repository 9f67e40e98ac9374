package scheduling

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMemoryStore_UpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Upsert(ctx, appt("1", "D1", "2024-06-03", "09:00", "09:30"))
	s.Upsert(ctx, appt("2", "D1", "2024-06-03", "10:00", "10:30"))
	s.Upsert(ctx, appt("1", "D1", "2024-06-03", "11:00", "11:30"))

	all, _ := s.GetAll(ctx)
	if len(all) != 2 || all[0].ID != "1" || all[0].StartTime != "11:00" {
		t.Fatalf("unexpected contents %+v", all)
	}
	if err := s.Remove(ctx, "missing"); err != nil {
		t.Errorf("removing absent id should be a no-op, got %v", err)
	}
	s.Remove(ctx, "1")
	all, _ = s.GetAll(ctx)
	if len(all) != 1 || all[0].ID != "2" {
		t.Errorf("unexpected contents after remove %+v", all)
	}
}

func TestMemoryStore_GetAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(appt("1", "D1", "2024-06-03", "09:00", "09:30"))
	all, _ := s.GetAll(ctx)
	all[0].PatientName = "mutated"
	again, _ := s.GetAll(ctx)
	if again[0].PatientName == "mutated" {
		t.Error("GetAll exposed internal state")
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	all, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty list, got %d", len(all))
	}
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "appointments.json")
	s := NewFileStore(path)
	a, _ := Appointment{ID: "a1", PatientName: "Ann", DoctorID: "doc1", Date: "2024-06-03",
		StartTime: "09:00", EndTime: "09:45", Category: CategoryEmergency, Details: "chest pain"}.Normalize()
	if err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	data, _ := os.ReadFile(path)
	for _, key := range []string{`"patientName"`, `"doctorId"`, `"startTime"`, `"endTime"`, `"emergency"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("stored document missing %s: %s", key, data)
		}
	}

	reopened := NewFileStore(path)
	all, err := reopened.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 || all[0] != a {
		t.Errorf("round trip mismatch: %+v vs %+v", all, a)
	}

	if err := reopened.Remove(ctx, "a1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	all, _ = s.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty after remove, got %+v", all)
	}
}

func TestFileStore_LegacyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	legacy := `[
  {"id": 1717400000000, "patientName": "Old Timer", "doctor": "doc2",
   "date": "2024-06-03T00:00:00.000Z", "time": "09:00", "duration": 45, "category": "Routine Checkup"},
  {"id": "x2", "patientName": "No Duration", "doctorId": "doc2", "date": "2024-06-03", "startTime": "13:00"},
  {"id": "x3", "patientName": "Broken", "doctorId": "doc2", "date": "someday", "startTime": "13:00"}
]`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	all, err := NewFileStore(path).GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	old := all[0]
	if old.ID != "1717400000000" || old.DoctorID != "doc2" || old.Date != "2024-06-03" {
		t.Errorf("legacy fields not mapped: %+v", old)
	}
	if old.StartTime != "09:00" || old.EndTime != "09:45" || old.Duration != 45 {
		t.Errorf("legacy interval not derived: %+v", old)
	}
	if old.Category != CategoryRoutineCheckup {
		t.Errorf("expected routine checkup, got %s", old.Category)
	}

	if all[1].EndTime != "13:30" || all[1].Duration != DefaultDuration {
		t.Errorf("expected default duration, got %+v", all[1])
	}
	if _, err := all[2].Interval(); err == nil {
		t.Error("broken record should stay unresolvable")
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	os.WriteFile(path, []byte("{not json"), 0o600)
	if _, err := NewFileStore(path).GetAll(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}
