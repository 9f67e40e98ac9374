package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookmydoctor/calendar/internal/platform/notification"
)

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data := <-c.Send:
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
	return Frame{}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := NewClient(TopicBanners, AppointmentTopic("a1"))
	hub.Register(c)

	if hub.ClientCount() != 1 || hub.TopicCount(TopicBanners) != 1 || hub.TopicCount("appointment:a1") != 1 {
		t.Fatalf("unexpected counts after register")
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 || hub.TopicCount(TopicBanners) != 0 {
		t.Fatalf("expected empty hub after unregister")
	}
	if _, open := <-c.Send; open {
		t.Error("Send should be closed")
	}
	hub.Unregister(c)
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := NewClient()
	hub.Register(c)

	hub.ProcessMessage(c, ClientMessage{Action: "subscribe", Topics: []string{"appointment:1", "appointment:2"}})
	if hub.TopicCount("appointment:1") != 1 || len(c.Topics) != 2 {
		t.Fatalf("subscribe failed: %v", c.Topics)
	}

	hub.ProcessMessage(c, ClientMessage{Action: "unsubscribe", Topics: []string{"appointment:1"}})
	if hub.TopicCount("appointment:1") != 0 || hub.TopicCount("appointment:2") != 1 {
		t.Fatal("unsubscribe removed the wrong topic")
	}
	if len(c.Topics) != 1 || c.Topics[0] != "appointment:2" {
		t.Errorf("unexpected remaining topics %v", c.Topics)
	}

	hub.ProcessMessage(c, ClientMessage{Action: "shout"})
	if len(c.Topics) != 1 {
		t.Error("unknown action should be ignored")
	}
}

func TestHub_NotifyRoutesByTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	everyone := NewClient(TopicBanners)
	watcher := NewClient(AppointmentTopic("a1"))
	other := NewClient(AppointmentTopic("a2"))
	for _, c := range []*Client{everyone, watcher, other} {
		hub.Register(c)
	}

	b := notification.Banner{Message: "Appointment created successfully!", Tone: notification.ToneSuccess, AppointmentID: "a1"}
	if err := hub.Notify(context.Background(), b); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if f := receive(t, everyone); f.Topic != TopicBanners || f.Banner.Message != b.Message {
		t.Errorf("unexpected frame %+v", f)
	}
	if f := receive(t, watcher); f.Topic != "appointment:a1" || f.Type != "banner" {
		t.Errorf("unexpected frame %+v", f)
	}
	if len(other.Send) != 0 {
		t.Error("unrelated appointment watcher should not receive the banner")
	}
}

func TestHub_FullBufferDropsFrame(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &Client{ID: "slow", Topics: []string{TopicBanners}, Send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast(TopicBanners, notification.Banner{Message: "one"})
	hub.Broadcast(TopicBanners, notification.Banner{Message: "two"})

	if f := receive(t, c); f.Banner.Message != "one" {
		t.Errorf("expected first frame, got %+v", f)
	}
	if len(c.Send) != 0 {
		t.Error("second frame should have been dropped")
	}
}

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), []string{"*"})
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/notifications/ws", nil), rec)

	if err := h.Connect(c); err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Fatal("expected upgrade to fail for a plain request")
	}
}

func TestHandler_OriginCheck(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), []string{"https://calendar.example"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if !h.upgrader.CheckOrigin(req) {
		t.Error("requests without Origin should pass")
	}
	req.Header.Set("Origin", "https://calendar.example")
	if !h.upgrader.CheckOrigin(req) {
		t.Error("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if h.upgrader.CheckOrigin(req) {
		t.Error("foreign origin accepted")
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	NewHandler(hub, []string{"*"}).RegisterRoutes(e.Group(""))
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/notifications/ws?topics=appointment:a9"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount("appointment:a9") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount(TopicBanners) != 1 || hub.TopicCount("appointment:a9") != 1 {
		t.Fatal("client not subscribed to banners and its appointment topic")
	}

	hub.Notify(context.Background(), notification.Banner{Message: "Appointment cancelled.", Tone: notification.ToneInfo, AppointmentID: "a9"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	topics := map[string]bool{}
	for i := 0; i < 2; i++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if f.Banner.Tone != notification.ToneInfo {
			t.Errorf("unexpected banner %+v", f.Banner)
		}
		topics[f.Topic] = true
	}
	if !topics[TopicBanners] || !topics["appointment:a9"] {
		t.Errorf("expected frames on both topics, got %v", topics)
	}
}
