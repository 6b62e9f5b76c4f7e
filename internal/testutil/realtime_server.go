package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// RecordedEvent is one frame received by FakeRealtimeServer.
type RecordedEvent struct {
	Type string
	Raw  json.RawMessage
	At   time.Time
}

// Decode unmarshals the raw frame into v.
func (e RecordedEvent) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(e.Raw, v); err != nil {
		t.Fatalf("failed to decode %s event: %v", e.Type, err)
	}
}

// FakeRealtimeServer is a websocket server that stands in for the realtime
// upstream. It records every inbound frame and lets tests push events.
type FakeRealtimeServer struct {
	Server *httptest.Server

	mu      sync.Mutex
	conn    *websocket.Conn
	header  http.Header
	query   string
	events  []RecordedEvent
	writeMu sync.Mutex

	connected chan struct{}
	once      sync.Once
}

// NewFakeRealtimeServer starts a fake upstream; it is closed on test cleanup.
func NewFakeRealtimeServer(t *testing.T) *FakeRealtimeServer {
	t.Helper()
	f := &FakeRealtimeServer{connected: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conn = conn
		f.header = r.Header.Clone()
		f.query = r.URL.RawQuery
		f.mu.Unlock()
		f.once.Do(func() { close(f.connected) })

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var envelope struct {
				Type string `json:"type"`
			}
			json.Unmarshal(data, &envelope)
			f.mu.Lock()
			f.events = append(f.events, RecordedEvent{Type: envelope.Type, Raw: data, At: time.Now()})
			f.mu.Unlock()
		}
	}))

	t.Cleanup(func() {
		f.CloseConn()
		f.Server.Close()
	})
	return f
}

// URL returns the ws:// address of the server.
func (f *FakeRealtimeServer) URL() string {
	return "ws" + strings.TrimPrefix(f.Server.URL, "http")
}

// WaitConnected blocks until a client has connected.
func (f *FakeRealtimeServer) WaitConnected(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-f.connected:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for realtime client to connect")
	}
}

// Header returns the handshake headers of the connected client.
func (f *FakeRealtimeServer) Header() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.header
}

// Query returns the raw handshake query of the connected client.
func (f *FakeRealtimeServer) Query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

// Push sends v as a JSON text frame to the connected client.
func (f *FakeRealtimeServer) Push(t *testing.T, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal pushed event: %v", err)
	}
	f.PushRaw(t, data)
}

// PushRaw sends data verbatim as a text frame.
func (f *FakeRealtimeServer) PushRaw(t *testing.T, data []byte) {
	t.Helper()
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		t.Fatal("no realtime client connected")
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to push event: %v", err)
	}
}

// CloseConn drops the connection to the client.
func (f *FakeRealtimeServer) CloseConn() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Events returns a copy of all recorded frames in arrival order.
func (f *FakeRealtimeServer) Events() []RecordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedEvent(nil), f.events...)
}

// EventsOfType returns recorded frames whose type matches eventType.
func (f *FakeRealtimeServer) EventsOfType(eventType string) []RecordedEvent {
	var out []RecordedEvent
	for _, e := range f.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// WaitForEvents blocks until at least n frames of eventType were recorded.
func (f *FakeRealtimeServer) WaitForEvents(t *testing.T, eventType string, n int, timeout time.Duration) []RecordedEvent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		events := f.EventsOfType(eventType)
		if len(events) >= n {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %s events, got %d", n, eventType, len(events))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
