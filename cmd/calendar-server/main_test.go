package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookmydoctor/calendar/internal/config"
	"github.com/bookmydoctor/calendar/internal/domain/roster"
	"github.com/bookmydoctor/calendar/internal/domain/scheduling"
	"github.com/bookmydoctor/calendar/internal/platform/auth"
	"github.com/bookmydoctor/calendar/internal/platform/db"
	"github.com/bookmydoctor/calendar/internal/platform/notification"
	"github.com/bookmydoctor/calendar/internal/platform/telemetry"
	"github.com/bookmydoctor/calendar/internal/platform/websocket"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func testConfig(env string) *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            env,
		StoreBackend:   config.BackendMemory,
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
		AuthSigningKey: hex.EncodeToString(testKey),
		AuthIssuer:     "calendar-test",
		WeekStart:      "sunday",
		GridFirstHour:  8,
		GridRows:       12,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*echo.Echo, *notification.Feed) {
	t.Helper()
	store, probe, _, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	dir := roster.Default()
	feed := notification.NewFeed(10)
	hub := websocket.NewHub(zerolog.Nop())
	metrics := telemetry.New()
	notifier, closeNotifier := buildNotifier(cfg, zerolog.Nop(), feed, hub, metrics)
	t.Cleanup(closeNotifier)
	svc := scheduling.NewService(store, zerolog.Nop(), scheduling.ServiceOptions{
		Directory: dir,
		Notifier:  notifier,
		Grid:      gridConfig(cfg),
	})
	e, err := newServer(cfg, zerolog.Nop(), app{svc: svc, dir: dir, feed: feed, hub: hub, metrics: metrics, probe: probe})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e, feed
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func mintToken(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := auth.IssueToken(auth.JWTConfig{Issuer: "calendar-test", SigningKey: testKey}, "tester", roles, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

const booking = `{"patient_name":"Ann","doctor_id":"doc1","date":"2024-06-03","start_time":"09:00","end_time":"09:30"}`

func TestServer_Health(t *testing.T) {
	e, _ := newTestServer(t, testConfig("production"))

	rec := do(e, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected request id header")
	}

	rec = do(e, http.MethodGet, "/health/db", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["backend"] != config.BackendMemory || body["status"] != "healthy" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestServer_DevBookingFlow(t *testing.T) {
	e, feed := newTestServer(t, testConfig("development"))

	rec := do(e, http.MethodPost, "/api/v1/appointments", booking, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	clash := strings.Replace(booking, `"09:00"`, `"09:15"`, 1)
	clash = strings.Replace(clash, `"09:30"`, `"09:45"`, 1)
	rec = do(e, http.MethodPost, "/api/v1/appointments", clash, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/v1/calendar/week?anchor=2024-06-05&view=readonly", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Ann"`) {
		t.Errorf("week grid missing booking: %s", rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/v1/notifications", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := feed.Recent(0)
	if len(got) != 2 || got[0].Tone != notification.ToneError || got[1].Tone != notification.ToneSuccess {
		t.Errorf("unexpected feed %+v", got)
	}
}

func TestServer_UnknownPractitioner(t *testing.T) {
	e, _ := newTestServer(t, testConfig("development"))
	body := strings.Replace(booking, "doc1", "doc99", 1)
	rec := do(e, http.MethodPost, "/api/v1/appointments", body, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_Roster(t *testing.T) {
	e, _ := newTestServer(t, testConfig("development"))
	rec := do(e, http.MethodGet, "/api/v1/practitioners/doc1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = do(e, http.MethodGet, "/api/v1/practitioners/nobody", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_ProductionAuth(t *testing.T) {
	e, _ := newTestServer(t, testConfig("production"))

	if rec := do(e, http.MethodGet, "/api/v1/appointments", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	viewer := mintToken(t, auth.RoleViewer)
	if rec := do(e, http.MethodGet, "/api/v1/appointments", "", viewer); rec.Code != http.StatusOK {
		t.Errorf("viewer list: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/appointments", booking, viewer); rec.Code != http.StatusForbidden {
		t.Errorf("viewer book: expected 403, got %d", rec.Code)
	}

	scheduler := mintToken(t, auth.RoleScheduler)
	if rec := do(e, http.MethodPost, "/api/v1/appointments", booking, scheduler); rec.Code != http.StatusCreated {
		t.Errorf("scheduler book: expected 201, got %d", rec.Code)
	}
}

func TestOpenStore_FileBackend(t *testing.T) {
	cfg := testConfig("development")
	cfg.StoreBackend = config.BackendFile
	cfg.StoreFile = t.TempDir() + "/appointments.json"

	store, probe, closeFn, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*scheduling.FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", store)
	}
	if probe.Backend != config.BackendFile || probe.Ping(context.Background()) != nil {
		t.Errorf("unexpected probe %+v", probe)
	}
}

func TestGridConfig(t *testing.T) {
	cfg := testConfig("development")
	cfg.WeekStart = "monday"
	cfg.GridFirstHour = 7
	cfg.GridRows = 10
	got := gridConfig(cfg)
	want := scheduling.GridConfig{WeekStart: time.Monday, FirstHour: 7, Rows: 10}
	if got != want {
		t.Errorf("gridConfig = %+v, want %+v", got, want)
	}
}

func TestPrintWeek(t *testing.T) {
	appts := []scheduling.Appointment{
		{ID: "a", PatientName: "Ann", DoctorID: "doc1", Date: "2024-06-03", StartTime: "09:00", EndTime: "09:30"},
		{ID: "b", PatientName: "Bob", DoctorID: "doc1", Date: "2024-06-03", StartTime: "09:30", EndTime: "10:00"},
		{ID: "bad", DoctorID: "doc1", Date: "June", StartTime: "09:00"},
	}
	g := scheduling.Bucketize(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), appts, scheduling.DefaultGridConfig(), scheduling.ViewReadOnly)

	var buf bytes.Buffer
	printWeek(&buf, g)
	out := buf.String()
	for _, want := range []string{"Week of June 2, 2024", "Mon 3", "9:00 AM", "2 appts", "1 unreadable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintRosterAndMigrations(t *testing.T) {
	var buf bytes.Buffer
	printRoster(&buf, roster.Default().Search("cardio"))
	if !strings.Contains(buf.String(), "SPECIALIZATION") || !strings.Contains(buf.String(), "Cardiology") {
		t.Errorf("missing roster header: %s", buf.String())
	}

	buf.Reset()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	printMigrationStatus(&buf, "public", []db.MigrationStatus{
		{Version: 1, Name: "appointment", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "next", Applied: false},
	})
	out := buf.String()
	if !strings.Contains(out, "2024-06-01 12:00:00") || !strings.Contains(out, "pending") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestServer_MetricsAndSandbox(t *testing.T) {
	e, _ := newTestServer(t, testConfig("development"))

	rec := do(e, http.MethodPost, "/api/v1/sandbox/seed", `{"count":3,"seed":5,"anchor":"2024-06-03","first_hour":8,"last_hour":18}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `route="/api/v1/sandbox/seed",status_code="201"`) {
		t.Errorf("seed request not recorded:\n%s", body)
	}
	if !strings.Contains(body, `calendar_banners_total{tone="success"}`) {
		t.Errorf("booking banners not counted:\n%s", body)
	}
}

func TestServer_ProductionHidesSandbox(t *testing.T) {
	e, _ := newTestServer(t, testConfig("production"))
	rec := do(e, http.MethodPost, "/api/v1/sandbox/seed", `{"count":3}`, mintToken(t, auth.RoleAdmin))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected sandbox to be unrouted in production, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics should be public, got %d", rec.Code)
	}
}
