package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// GridConfig fixes the shape of the week grid.
type GridConfig struct {
	WeekStart time.Weekday
	FirstHour int
	Rows      int
}

// DefaultGridConfig is a Sunday-first week with hourly rows 08:00 through 19:00.
func DefaultGridConfig() GridConfig {
	return GridConfig{WeekStart: time.Sunday, FirstHour: 8, Rows: 12}
}

// View selects how a grid will be rendered.
type View int

const (
	ViewEditable View = iota
	ViewReadOnly
)

func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "editable", "booking":
		return ViewEditable, nil
	case "readonly", "read-only", "overview":
		return ViewReadOnly, nil
	}
	return ViewEditable, fmt.Errorf("unknown view %q", s)
}

func (v View) String() string {
	if v == ViewReadOnly {
		return "readonly"
	}
	return "editable"
}

func (v View) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// BookingPrefill is what an editable view offers when an hour cell is clicked.
type BookingPrefill struct {
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Category  Category `json:"category"`
}

// GridEntry is an appointment placed in a cell, with its display labels.
type GridEntry struct {
	Appointment
	TimeRange string `json:"time_range"`
	Color     string `json:"color"`
}

type Cell struct {
	Date         string          `json:"date"`
	Hour         int             `json:"hour"`
	Appointments []GridEntry     `json:"appointments"`
	Prefill      *BookingPrefill `json:"prefill,omitempty"`
}

type HourRow struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
	Cells []Cell `json:"cells"`
}

type DayColumn struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	DayOfMonth int    `json:"day_of_month"`
	IsToday    bool   `json:"is_today"`
}

// Grid is the week x hour projection of an appointment collection.
type Grid struct {
	WeekStart    string        `json:"week_start"`
	PreviousWeek string        `json:"previous_week"`
	NextWeek     string        `json:"next_week"`
	View         View          `json:"view"`
	Days         []DayColumn   `json:"days"`
	Rows         []HourRow     `json:"rows"`
	Legend       []LegendEntry `json:"legend"`
	Skipped      []string      `json:"skipped,omitempty"`
}

// LegendEntry pairs a category label with its cell colour.
type LegendEntry struct {
	Category Category `json:"category"`
	Color    string   `json:"color"`
}

// Legend lists every bookable category in display order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, LegendEntry{Category: c, Color: c.Color()})
	}
	return out
}

// StartOfWeek truncates t to its date and steps back to the most recent weekStart day.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// Bucketize places every appointment into each hour cell its interval
// intersects, for the seven days of the week containing anchor. Day columns
// are matched on the appointment's date only. Records whose interval cannot
// be resolved are left out of every cell and listed in Grid.Skipped.
func Bucketize(anchor time.Time, appts []Appointment, cfg GridConfig, view View) *Grid {
	start := StartOfWeek(anchor, cfg.WeekStart)
	g := &Grid{
		WeekStart:    start.Format(DateLayout),
		PreviousWeek: start.AddDate(0, 0, -7).Format(DateLayout),
		NextWeek:     start.AddDate(0, 0, 7).Format(DateLayout),
		View:         view,
		Legend:       Legend(),
	}

	type placed struct {
		appt Appointment
		iv   TimeInterval
	}
	byDate := make(map[string][]placed)
	for _, a := range appts {
		iv, err := a.Interval()
		if err != nil {
			g.Skipped = append(g.Skipped, a.ID)
			continue
		}
		byDate[iv.Date] = append(byDate[iv.Date], placed{appt: a, iv: iv})
	}

	days := make([]time.Time, 7)
	for d := range days {
		days[d] = start.AddDate(0, 0, d)
		g.Days = append(g.Days, DayColumn{
			Date:       days[d].Format(DateLayout),
			Weekday:    days[d].Format("Mon"),
			DayOfMonth: days[d].Day(),
		})
	}

	for r := 0; r < cfg.Rows; r++ {
		hour := cfg.FirstHour + r
		row := HourRow{Hour: hour, Label: HourLabel(hour), Cells: make([]Cell, 7)}
		for d, day := range days {
			from := day.Add(time.Duration(hour) * time.Hour)
			to := from.Add(time.Hour)
			cell := Cell{Date: g.Days[d].Date, Hour: hour, Appointments: []GridEntry{}}
			for _, p := range byDate[cell.Date] {
				if p.iv.Intersects(from, to) {
					cell.Appointments = append(cell.Appointments, GridEntry{
						Appointment: p.appt,
						TimeRange:   TimeRangeLabel(p.iv),
						Color:       p.appt.Category.Color(),
					})
				}
			}
			if view == ViewEditable {
				cell.Prefill = prefillAt(from)
			}
			row.Cells[d] = cell
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func prefillAt(from time.Time) *BookingPrefill {
	return &BookingPrefill{
		Date:      from.Format(DateLayout),
		StartTime: from.Format(ClockLayout),
		EndTime:   from.Add(DefaultDuration * time.Minute).Format(ClockLayout),
		Category:  DefaultCategory,
	}
}

// MarkToday flags the day column matching today, if it is in this week.
func (g *Grid) MarkToday(today time.Time) {
	key := today.Format(DateLayout)
	for i := range g.Days {
		g.Days[i].IsToday = g.Days[i].Date == key
	}
}

// At returns the appointments in the cell for date and hour, or nil when the
// cell is outside the grid.
func (g *Grid) At(date string, hour int) []Appointment {
	for _, row := range g.Rows {
		if row.Hour != hour {
			continue
		}
		for _, cell := range row.Cells {
			if cell.Date != date {
				continue
			}
			out := make([]Appointment, 0, len(cell.Appointments))
			for _, e := range cell.Appointments {
				out = append(out, e.Appointment)
			}
			return out
		}
	}
	return nil
}
