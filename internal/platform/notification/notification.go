// Package notification delivers short user-facing banners ("Appointment
// created successfully!") to whatever surfaces are wired: the log, an
// in-memory feed served over HTTP, and optionally a Kafka topic.
package notification

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ---------------------------------------------------------------------------
// Banner
// ---------------------------------------------------------------------------

// Tone selects the banner colour on the client.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneError   Tone = "error"
)

// Banner is a single transient message for the user.
type Banner struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	Tone          Tone      `json:"tone"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func stamp(b Banner) Banner {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return b
}

// ---------------------------------------------------------------------------
// Notifiers
// ---------------------------------------------------------------------------

// LogNotifier writes banners to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, b Banner) error {
	b = stamp(b)
	n.logger.Info().
		Str("banner_id", b.ID).
		Str("tone", string(b.Tone)).
		Str("appointment_id", b.AppointmentID).
		Msg(b.Message)
	return nil
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes banners as JSON messages keyed by appointment id.
type KafkaNotifier struct {
	w messageWriter
}

// NewKafkaNotifier publishes asynchronously. Delivery failures are logged.
func NewKafkaNotifier(brokers []string, topic string, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{w: newKafkaWriter(brokers, topic, logger)}
}

func newKafkaWriter(brokers []string, topic string, logger zerolog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Error().Err(err).Int("messages", len(msgs)).Str("topic", topic).Msg("kafka banner delivery failed")
			}
		},
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, b Banner) error {
	b = stamp(b)
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return n.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(b.AppointmentID),
		Value: payload,
		Time:  b.CreatedAt,
	})
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	if c, ok := n.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Feed keeps the most recent banners in memory, newest first.
type Feed struct {
	mu      sync.Mutex
	banners []Banner
	max     int
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 50
	}
	return &Feed{max: max}
}

func (f *Feed) Notify(_ context.Context, b Banner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banners = append([]Banner{stamp(b)}, f.banners...)
	if len(f.banners) > f.max {
		f.banners = f.banners[:f.max]
	}
	return nil
}

// Recent returns up to limit banners, newest first.
func (f *Feed) Recent(limit int) []Banner {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.banners) {
		limit = len(f.banners)
	}
	out := make([]Banner, limit)
	copy(out, f.banners[:limit])
	return out
}

// Notifier is satisfied by every delivery surface in this package.
type Notifier interface {
	Notify(ctx context.Context, b Banner) error
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, b Banner) error {
	b = stamp(b)
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

type Handler struct {
	feed *Feed
}

func NewHandler(feed *Feed) *Handler {
	return &Handler{feed: feed}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
}

func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": h.feed.Recent(limit),
	})
}
