package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bookmydoctor/calendar/internal/platform/notification"
)

// ReminderWorker periodically announces appointments that start within
// Lead of the current wall-clock time. Each appointment slot is announced
// once; editing the slot makes it eligible again.
type ReminderWorker struct {
	svc  *Service
	lead time.Duration
	spec string

	mu   sync.Mutex
	sent map[string]string // appointment id -> slot key it was announced for

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewReminderWorker(svc *Service, spec string, lead time.Duration) *ReminderWorker {
	return &ReminderWorker{svc: svc, spec: spec, lead: lead, sent: make(map[string]string)}
}

// Start schedules Sweep on the worker's cron spec.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.runCtx, w.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.spec, w.runOnce); err != nil {
		w.cancel()
		return fmt.Errorf("reminder schedule %q: %w", w.spec, err)
	}
	c.Start()
	w.cron = c
	w.svc.logger.Info().Str("schedule", w.spec).Dur("lead", w.lead).Msg("reminder worker started")
	return nil
}

// Stop cancels in-flight sweeps and waits for them to return.
func (w *ReminderWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
}

func (w *ReminderWorker) runOnce() {
	n, err := w.Sweep(w.runCtx)
	if err != nil {
		w.svc.logger.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	if n > 0 {
		w.svc.logger.Info().Int("sent", n).Msg("reminder sweep")
	}
}

// Sweep emits an info banner for every not-yet-announced appointment today
// whose start lies in [now, now+lead]. It returns the number sent.
func (w *ReminderWorker) Sweep(ctx context.Context) (int, error) {
	now := w.svc.now()
	wall := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	today := wall.Format(DateLayout)

	appts, err := w.svc.List(ctx, ListFilter{Date: today})
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	live := make(map[string]bool, len(appts))
	sent := 0
	for _, a := range appts {
		live[a.ID] = true
		iv, err := a.Interval()
		if err != nil {
			continue
		}
		if iv.Start.Before(wall) || iv.Start.Sub(wall) > w.lead {
			continue
		}
		key := iv.Date + " " + iv.StartClock()
		if w.sent[a.ID] == key {
			continue
		}
		w.sent[a.ID] = key
		w.svc.notify(ctx, notification.Banner{
			Message:       fmt.Sprintf("Upcoming: %s, %s", a.PatientName, TimeRangeLabel(iv)),
			Tone:          notification.ToneInfo,
			AppointmentID: a.ID,
		})
		sent++
	}
	for id := range w.sent {
		if !live[id] {
			delete(w.sent, id)
		}
	}
	return sent, nil
}
