package scheduling

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// storedRecord is the persisted shape of an Appointment: camelCase keys, an
// ISO date and HH:MM times. Older payloads may use "doctor" for the
// practitioner, "time" for the start, omit endTime, or carry a numeric id.
type storedRecord struct {
	ID          flexID `json:"id"`
	PatientName string `json:"patientName"`
	DoctorID    string `json:"doctorId,omitempty"`
	Doctor      string `json:"doctor,omitempty"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime,omitempty"`
	Time        string `json:"time,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Duration    int    `json:"duration"`
	Category    string `json:"category,omitempty"`
	Details     string `json:"details,omitempty"`
}

// flexID accepts either a JSON string or a JSON number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func toRecord(a Appointment) storedRecord {
	return storedRecord{
		ID:          flexID(a.ID),
		PatientName: a.PatientName,
		DoctorID:    a.DoctorID,
		Date:        a.Date,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Duration:    a.Duration,
		Category:    a.Category.String(),
		Details:     a.Details,
	}
}

// fromRecord maps a stored record to an Appointment and resolves its end
// time. Records that cannot be resolved are returned as stored so that
// consumers can decide to skip them.
func fromRecord(r storedRecord) Appointment {
	a := Appointment{
		ID:          string(r.ID),
		PatientName: r.PatientName,
		DoctorID:    r.DoctorID,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Duration:    r.Duration,
		Category:    ParseCategory(r.Category),
		Details:     r.Details,
	}
	if a.DoctorID == "" {
		a.DoctorID = r.Doctor
	}
	if a.StartTime == "" {
		a.StartTime = r.Time
	}
	// Timestamps such as "2024-06-03T00:00:00.000Z" keep their calendar date.
	if len(a.Date) > len(DateLayout) && a.Date[len(DateLayout)] == 'T' {
		a.Date = a.Date[:len(DateLayout)]
	}
	a.Date = strings.TrimSpace(a.Date)
	if n, err := a.Normalize(); err == nil {
		return n
	}
	return a
}

func decodeRecords(data []byte) ([]Appointment, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var recs []storedRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	out := make([]Appointment, 0, len(recs))
	for _, r := range recs {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func encodeRecords(appts []Appointment) ([]byte, error) {
	recs := make([]storedRecord, 0, len(appts))
	for _, a := range appts {
		recs = append(recs, toRecord(a))
	}
	return json.MarshalIndent(recs, "", "  ")
}

func decodeRecord(data []byte) (Appointment, error) {
	var r storedRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return Appointment{}, err
	}
	return fromRecord(r), nil
}

func encodeRecord(a Appointment) ([]byte, error) {
	return json.Marshal(toRecord(a))
}
