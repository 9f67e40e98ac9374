// Package sandbox generates reproducible demo appointments for development
// and UI walkthroughs. Bookings go through the regular booking path, so
// generated calendars never contain overlaps.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookmydoctor/calendar/internal/domain/scheduling"
	"github.com/bookmydoctor/calendar/internal/platform/auth"
)

// SeedConfig controls the volume and shape of generated appointments.
type SeedConfig struct {
	Count     int      `json:"count"`
	Anchor    string   `json:"anchor"` // any date in the target week; empty means this week
	DoctorIDs []string `json:"doctor_ids"`
	FirstHour int      `json:"first_hour"`
	LastHour  int      `json:"last_hour"`
	Seed      int64    `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{Count: 20, FirstHour: 8, LastHour: 18}
}

func (c SeedConfig) validate() error {
	if c.Count < 1 || c.Count > 500 {
		return fmt.Errorf("count must be between 1 and 500, got %d", c.Count)
	}
	if len(c.DoctorIDs) == 0 {
		return errors.New("at least one doctor id is required")
	}
	if c.FirstHour < 0 || c.LastHour > 23 || c.FirstHour >= c.LastHour {
		return fmt.Errorf("hours must satisfy 0 <= first_hour < last_hour <= 23, got %d..%d", c.FirstHour, c.LastHour)
	}
	return nil
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Requested int           `json:"requested"`
	Booked    int           `json:"booked"`
	Conflicts int           `json:"conflicts"`
	Rejected  int           `json:"rejected"`
	IDs       []string      `json:"ids"`
	Duration  time.Duration `json:"duration"`
}

var (
	givenNames  = []string{"Ann", "Ben", "Chloe", "Dev", "Elena", "Farid", "Grace", "Hiro", "Ines", "Jonah", "Kemi", "Luis"}
	familyNames = []string{"Adams", "Brown", "Chen", "Diaz", "Evans", "Fischer", "Gupta", "Haddad", "Ito", "Jones", "Khan", "Lopez"}
	categories  = []string{"emergency", "examination", "consultation", "routine checkup", "sick visit"}
	details     = []string{"", "Follow-up", "First visit", "Lab results review", "Prescription renewal", "Referred by GP"}
	durations   = []int{15, 30, 30, 45, 60}
)

// DataGenerator produces deterministic booking requests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// Booking draws a request on one of the seven days from weekStart, starting
// on a quarter hour in [firstHour, lastHour).
func (g *DataGenerator) Booking(weekStart time.Time, doctors []string, firstHour, lastHour int) scheduling.BookingRequest {
	day := weekStart.AddDate(0, 0, g.rng.Intn(7))
	start := firstHour*60 + g.rng.Intn((lastHour-firstHour)*4)*15
	end := start + durations[g.rng.Intn(len(durations))]
	return scheduling.BookingRequest{
		PatientName: g.pick(givenNames) + " " + g.pick(familyNames),
		DoctorID:    g.pick(doctors),
		Date:        day.Format(scheduling.DateLayout),
		StartTime:   fmt.Sprintf("%02d:%02d", start/60, start%60),
		EndTime:     fmt.Sprintf("%02d:%02d", end/60, end%60),
		Category:    g.pick(categories),
		Details:     g.pick(details),
	}
}

// Booker is the booking entry point the seeder drives.
type Booker interface {
	Book(ctx context.Context, req scheduling.BookingRequest) (scheduling.Appointment, error)
}

type Seeder struct {
	booker    Booker
	weekStart time.Weekday
	now       func() time.Time
}

func NewSeeder(booker Booker, weekStart time.Weekday) *Seeder {
	return &Seeder{booker: booker, weekStart: weekStart, now: time.Now}
}

// Run books cfg.Count generated requests. Conflicting draws are counted and
// skipped; a store failure stops the run.
func (s *Seeder) Run(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	anchor := s.now()
	if cfg.Anchor != "" {
		d, err := scheduling.ParseDate(cfg.Anchor)
		if err != nil {
			return nil, err
		}
		anchor = d
	}
	weekStart := scheduling.StartOfWeek(anchor, s.weekStart)

	started := time.Now()
	gen := NewDataGenerator(cfg.Seed)
	result := &SeedResult{Requested: cfg.Count, IDs: []string{}}
	for i := 0; i < cfg.Count; i++ {
		a, err := s.booker.Book(ctx, gen.Booking(weekStart, cfg.DoctorIDs, cfg.FirstHour, cfg.LastHour))
		switch {
		case err == nil:
			result.Booked++
			result.IDs = append(result.IDs, a.ID)
		case errors.Is(err, scheduling.ErrSchedulingConflict):
			result.Conflicts++
		case scheduling.IsRejection(err):
			result.Rejected++
		default:
			result.Duration = time.Since(started)
			return result, err
		}
	}
	result.Duration = time.Since(started)
	return result, nil
}

// SeedHandler exposes the seeder over HTTP for development servers.
type SeedHandler struct {
	seeder  *Seeder
	doctors []string
}

// NewSeedHandler uses doctors when a request names none.
func NewSeedHandler(seeder *Seeder, doctors []string) *SeedHandler {
	return &SeedHandler{seeder: seeder, doctors: doctors}
}

func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("/sandbox", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/seed", h.Seed)
}

func (h *SeedHandler) Seed(c echo.Context) error {
	cfg := DefaultSeedConfig()
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&cfg); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	if len(cfg.DoctorIDs) == 0 {
		cfg.DoctorIDs = h.doctors
	}
	res, err := h.seeder.Run(c.Request().Context(), cfg)
	if err != nil {
		if res == nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, res)
}
