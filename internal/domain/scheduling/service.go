package scheduling

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bookmydoctor/calendar/internal/platform/notification"
)

// PractitionerDirectory answers whether a doctor id exists in the roster.
type PractitionerDirectory interface {
	Has(doctorID string) bool
}

// Notifier delivers user-facing banners after a change is committed.
type Notifier interface {
	Notify(ctx context.Context, b notification.Banner) error
}

// BookingRequest is an inbound create or edit. ExistingID marks an edit.
type BookingRequest struct {
	PatientName string `json:"patient_name" validate:"required"`
	DoctorID    string `json:"doctor_id" validate:"required"`
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	Category    string `json:"category"`
	Details     string `json:"details"`
	ExistingID  string `json:"existing_id,omitempty"`
}

// BookingResult is the outbound outcome of a booking attempt.
type BookingResult struct {
	Status      string       `json:"status"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Conflicting *Appointment `json:"conflicting_appointment,omitempty"`
}

func Committed(a Appointment) BookingResult {
	return BookingResult{Status: "committed", Appointment: &a}
}

func Rejected(err error) BookingResult {
	res := BookingResult{Status: "rejected", Reason: err.Error()}
	var ce *ConflictError
	if errors.As(err, &ce) {
		c := ce.Conflicting
		res.Conflicting = &c
	}
	return res
}

// ListFilter narrows List; empty fields match everything.
type ListFilter struct {
	DoctorID string
	Date     string
}

// GridQuery asks for the week containing Anchor (today when empty).
type GridQuery struct {
	Anchor   string
	DoctorID string
	View     View
}

type ServiceOptions struct {
	Directory PractitionerDirectory
	Notifier  Notifier
	Grid      GridConfig
	Now       func() time.Time
}

type Service struct {
	// mu serialises read-check-write so a conflict check always sees the
	// store as of the commit that follows it.
	mu       sync.Mutex
	store    AppointmentStore
	dir      PractitionerDirectory
	notifier Notifier
	grid     GridConfig
	now      func() time.Time
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(store AppointmentStore, logger zerolog.Logger, opts ServiceOptions) *Service {
	if opts.Grid.Rows == 0 {
		opts.Grid = DefaultGridConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Service{
		store:    store,
		dir:      opts.Directory,
		notifier: opts.Notifier,
		grid:     opts.Grid,
		now:      opts.Now,
		validate: v,
		logger:   logger,
	}
}

// Book validates req, checks it against the current store contents and
// commits it. Nothing is written unless every check passes. Banners go out
// after the store lock is released.
func (s *Service) Book(ctx context.Context, req BookingRequest) (Appointment, error) {
	candidate, err := s.commit(ctx, req)
	if err != nil {
		return Appointment{}, s.rejected(ctx, err)
	}

	msg := "Appointment created successfully!"
	if req.ExistingID != "" {
		msg = "Appointment updated successfully!"
	}
	s.notify(ctx, notification.Banner{Message: msg, Tone: notification.ToneSuccess, AppointmentID: candidate.ID})
	return candidate, nil
}

// commit is the locked part of Book.
func (s *Service) commit(ctx context.Context, req BookingRequest) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate, check, err := s.evaluate(ctx, req)
	if err != nil {
		return Appointment{}, err
	}
	if first, ok := check.First(); ok {
		s.logger.Info().
			Str("doctor_id", candidate.DoctorID).
			Str("date", candidate.Date).
			Str("conflicting_id", first.ID).
			Msg("booking rejected: conflict")
		return Appointment{}, &ConflictError{Conflicting: first}
	}

	if err := s.store.Upsert(ctx, candidate); err != nil {
		return Appointment{}, fmt.Errorf("commit appointment: %w", err)
	}
	s.logger.Info().
		Str("appointment_id", candidate.ID).
		Str("doctor_id", candidate.DoctorID).
		Str("date", candidate.Date).
		Str("start", candidate.StartTime).
		Str("end", candidate.EndTime).
		Msg("appointment committed")
	return candidate, nil
}

// Check runs the same validation and conflict check as Book without
// committing anything.
func (s *Service) Check(ctx context.Context, req BookingRequest) (Appointment, ConflictCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluate(ctx, req)
}

func (s *Service) evaluate(ctx context.Context, req BookingRequest) (Appointment, ConflictCheck, error) {
	req = trimRequest(req)
	if err := s.checkRequired(req); err != nil {
		return Appointment{}, ConflictCheck{}, err
	}
	if s.dir != nil && !s.dir.Has(req.DoctorID) {
		return Appointment{}, ConflictCheck{}, fmt.Errorf("%w: %s", ErrUnknownPractitioner, req.DoctorID)
	}
	iv, err := NewInterval(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return Appointment{}, ConflictCheck{}, err
	}

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return Appointment{}, ConflictCheck{}, fmt.Errorf("load appointments: %w", err)
	}

	id := req.ExistingID
	if id != "" {
		if _, ok := findByID(all, id); !ok {
			return Appointment{}, ConflictCheck{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
		}
	} else {
		id = uuid.NewString()
	}

	category := DefaultCategory
	if req.Category != "" {
		category = ParseCategory(req.Category)
	}
	candidate := Appointment{
		ID:          id,
		PatientName: req.PatientName,
		DoctorID:    req.DoctorID,
		Date:        iv.Date,
		StartTime:   iv.StartClock(),
		EndTime:     iv.EndClock(),
		Duration:    iv.Minutes(),
		Category:    category,
		Details:     req.Details,
	}

	check, err := CheckConflicts(candidate, all)
	if err != nil {
		return Appointment{}, ConflictCheck{}, err
	}
	for _, skipped := range check.Skipped {
		s.logger.Warn().Str("appointment_id", skipped).Msg("unresolvable appointment ignored in conflict check")
	}
	return candidate, check, nil
}

func (s *Service) checkRequired(req BookingRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &MissingFieldError{Fields: fields}
}

// Cancel removes the appointment with id.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.remove(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, notification.Banner{Message: "Appointment cancelled.", Tone: notification.ToneInfo, AppointmentID: id})
	return nil
}

func (s *Service) remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	if _, ok := findByID(all, id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove appointment: %w", err)
	}
	s.logger.Info().Str("appointment_id", id).Msg("appointment cancelled")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return Appointment{}, fmt.Errorf("load appointments: %w", err)
	}
	a, ok := findByID(all, id)
	if !ok {
		return Appointment{}, fmt.Errorf("%w: %s", ErrUnknownAppointment, id)
	}
	return a, nil
}

// List returns matching appointments ordered by date, start time and id.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	out := make([]Appointment, 0, len(all))
	for _, a := range all {
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Week recomputes the grid for q from the current store contents.
func (s *Service) Week(ctx context.Context, q GridQuery) (*Grid, error) {
	now := s.now()
	anchor := now
	if q.Anchor != "" {
		d, err := ParseDate(q.Anchor)
		if err != nil {
			return nil, err
		}
		anchor = d
	}

	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	if q.DoctorID != "" {
		filtered := all[:0:0]
		for _, a := range all {
			if a.DoctorID == q.DoctorID {
				filtered = append(filtered, a)
			}
		}
		all = filtered
	}

	g := Bucketize(anchor, all, s.grid, q.View)
	g.MarkToday(now)
	for _, id := range g.Skipped {
		s.logger.Warn().Str("appointment_id", id).Msg("unresolvable appointment left out of grid")
	}
	return g, nil
}

// rejected surfaces a domain rejection as an error banner. Store failures
// are returned untouched.
func (s *Service) rejected(ctx context.Context, err error) error {
	if IsRejection(err) {
		s.notify(ctx, notification.Banner{Message: err.Error(), Tone: notification.ToneError})
	}
	return err
}

func (s *Service) notify(ctx context.Context, b notification.Banner) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, b); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", b.AppointmentID).Msg("notification delivery failed")
	}
}

func findByID(all []Appointment, id string) (Appointment, bool) {
	for _, a := range all {
		if a.ID == id {
			return a, true
		}
	}
	return Appointment{}, false
}

func trimRequest(req BookingRequest) BookingRequest {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	req.Category = strings.TrimSpace(req.Category)
	req.ExistingID = strings.TrimSpace(req.ExistingID)
	return req
}
