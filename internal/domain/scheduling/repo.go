package scheduling

import "context"

// AppointmentStore owns the authoritative appointment list. Upsert replaces a
// record with the same ID or appends a new one; Remove of an absent ID is a
// no-op. GetAll returns records in insertion order.
type AppointmentStore interface {
	GetAll(ctx context.Context) ([]Appointment, error)
	Upsert(ctx context.Context, a Appointment) error
	Remove(ctx context.Context, id string) error
}
