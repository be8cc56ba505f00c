package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func staffOnly(staff uuid.UUID) Authorizer {
	return func(ctx context.Context, token string) (uuid.UUID, error) {
		if token != "staff-token" {
			return uuid.Nil, errors.New("not staff")
		}
		return staff, nil
	}
}

func newFeedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.GET("/ws/checkins", ServeWs(hub, NewUpgrader("*"), staffOnly(uuid.New()), nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/checkins?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestFeedDeliversCheckIns(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	srv := newFeedServer(t, hub)
	eventID := uuid.New()

	conn, _, err := dial(t, srv, "event_id="+eventID.String()+"&token=staff-token")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the viewers reply proves the client is registered
	if err := conn.WriteJSON(WSMessage{Event: "join"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readEvent(t, conn); msg.Event != EventViewers {
		t.Fatalf("event = %q; want %q", msg.Event, EventViewers)
	}

	hub.PublishCheckIn(uuid.New(), map[string]string{"booking_id": "other"})
	hub.PublishCheckIn(eventID, map[string]string{"booking_id": "b1"})

	msg := readEvent(t, conn)
	if msg.Event != EventCheckIn {
		t.Fatalf("event = %q; want %q", msg.Event, EventCheckIn)
	}
	var data map[string]string
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["booking_id"] != "b1" {
		t.Errorf("booking_id = %q; want b1", data["booking_id"])
	}
}

func TestFeedRejectsBadRequests(t *testing.T) {
	srv := newFeedServer(t, NewHub(nil, nil, nil))
	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing event", "token=staff-token", http.StatusBadRequest},
		{"missing token", "event_id=" + uuid.NewString(), http.StatusUnauthorized},
		{"non staff token", "event_id=" + uuid.NewString() + "&token=user-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dial(t, srv, tt.query)
			if err == nil {
				t.Fatal("dial succeeded; want handshake failure")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("response = %v; want status %d", resp, tt.status)
			}
		})
	}
}

type loopback struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]func(string, []byte)
	cancels  int
}

func (l *loopback) PublishEvent(eventID uuid.UUID, event string, payload []byte) error {
	l.mu.Lock()
	h := l.handlers[eventID]
	l.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (l *loopback) SubscribeEvent(eventID uuid.UUID, handler func(string, []byte)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[eventID] = handler
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, eventID)
		l.cancels++
	}, nil
}

func TestHubSubscribesPerEvent(t *testing.T) {
	bus := &loopback{handlers: map[uuid.UUID]func(string, []byte){}}
	hub := NewHub(nil, bus, bus)
	eventID := uuid.New()

	a := &Client{ID: "a", EventID: eventID, hub: hub, send: make(chan WSMessage, 4)}
	b := &Client{ID: "b", EventID: eventID, hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(a)
	hub.Register(b)
	if got := hub.ViewerCount(eventID); got != 2 {
		t.Fatalf("ViewerCount = %d; want 2", got)
	}

	hub.PublishCheckIn(eventID, map[string]int{"leaf_points": 10})
	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Event != EventCheckIn {
				t.Errorf("client %s event = %q", c.ID, msg.Event)
			}
		default:
			t.Errorf("client %s received nothing", c.ID)
		}
	}

	hub.Unregister(a)
	hub.Unregister(b)
	if bus.cancels != 1 {
		t.Errorf("cancels = %d; want 1", bus.cancels)
	}
	if got := hub.ViewerCount(eventID); got != 0 {
		t.Errorf("ViewerCount = %d; want 0", got)
	}
}
