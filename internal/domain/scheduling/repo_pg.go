package scheduling

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type appointmentRepoPG struct{ conn queryable }

// NewAppointmentRepoPG returns a Postgres-backed AppointmentStore using the
// appointment table created by the bundled migrations.
func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentStore {
	return &appointmentRepoPG{conn: pool}
}

const apptCols = `id, patient_name, doctor_id, to_char(appt_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	duration_minutes, category, details`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a        Appointment
		end      *string
		category string
	)
	err := row.Scan(&a.ID, &a.PatientName, &a.DoctorID, &a.Date, &a.StartTime, &end,
		&a.Duration, &category, &a.Details)
	if err != nil {
		return Appointment{}, err
	}
	if end != nil {
		a.EndTime = *end
	}
	a.Category = ParseCategory(category)
	if n, err := a.Normalize(); err == nil {
		return n, nil
	}
	return a, nil
}

func (r *appointmentRepoPG) GetAll(ctx context.Context) ([]Appointment, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+apptCols+` FROM appointment ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Upsert(ctx context.Context, a Appointment) error {
	var end *string
	if a.EndTime != "" {
		end = &a.EndTime
	}
	_, err := r.conn.Exec(ctx, `
		INSERT INTO appointment (id, patient_name, doctor_id, appt_date, start_time, end_time,
			duration_minutes, category, details)
		VALUES ($1, $2, $3, $4::text::date, $5::text::time, $6::text::time, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			doctor_id = EXCLUDED.doctor_id,
			appt_date = EXCLUDED.appt_date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			duration_minutes = EXCLUDED.duration_minutes,
			category = EXCLUDED.category,
			details = EXCLUDED.details,
			updated_at = NOW()`,
		a.ID, a.PatientName, a.DoctorID, a.Date, a.StartTime, end,
		a.Duration, a.Category.String(), a.Details)
	return err
}

func (r *appointmentRepoPG) Remove(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	return err
}
