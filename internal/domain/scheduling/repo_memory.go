package scheduling

import (
	"context"
	"sync"
)

// MemoryStore is an in-process AppointmentStore.
type MemoryStore struct {
	mu    sync.RWMutex
	appts []Appointment
}

func NewMemoryStore(seed ...Appointment) *MemoryStore {
	return &MemoryStore{appts: append([]Appointment(nil), seed...)}
}

func (s *MemoryStore) GetAll(_ context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Appointment(nil), s.appts...), nil
}

func (s *MemoryStore) Upsert(_ context.Context, a Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appts {
		if s.appts[i].ID == a.ID {
			s.appts[i] = a
			return nil
		}
	}
	s.appts = append(s.appts, a)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appts {
		if s.appts[i].ID == id {
			s.appts = append(s.appts[:i], s.appts[i+1:]...)
			return nil
		}
	}
	return nil
}
