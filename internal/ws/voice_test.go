package ws

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/windoze95/saltybytes-voice/internal/middleware"
	"github.com/windoze95/saltybytes-voice/internal/realtime"
	"github.com/windoze95/saltybytes-voice/internal/service"
	"github.com/windoze95/saltybytes-voice/internal/testutil"
)

const (
	testTimerUnit = 20 * time.Millisecond
	waitTimeout   = 2 * time.Second
)

type voiceHarness struct {
	upstream *testutil.FakeRealtimeServer
	server   *httptest.Server
	repo     *testutil.MockRecipeSessionRepo
	hub      *Hub
}

func newVoiceHarness(t *testing.T) *voiceHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := testutil.NewFakeRealtimeServer(t)
	cfg := testutil.TestConfig()
	cfg.EnvVars.RealtimeURL = fake.URL()

	repo := testutil.NewMockRecipeSessionRepo()
	recipes := service.NewRecipeService(cfg, repo, &testutil.MockTextProvider{}, &testutil.MockVideoProvider{}, &testutil.MockVideoDownloader{}, nil)
	voice := service.NewVoiceService(cfg, &testutil.MockSpeechProvider{})

	hub := NewHub()
	go hub.Run()

	handler := NewVoiceHandler(hub, recipes, voice, cfg.Prompts, nil)
	handler.TimerUnit = testTimerUnit

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if id := c.Query("session_id"); id != "" {
			c.Set(middleware.SessionIDKey, id)
		}
		c.Next()
	}, handler.HandleVoiceSession)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &voiceHarness{upstream: fake, server: srv, repo: repo, hub: hub}
}

func (h *voiceHarness) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	h.upstream.WaitConnected(t, waitTimeout)
	return conn
}

type clientFrame struct {
	Type    string `json:"type"`
	Data    string `json:"data"`
	Seconds int    `json:"seconds"`
	Message string `json:"message"`

	receivedAt time.Time
}

func readFrame(t *testing.T, conn *websocket.Conn) clientFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read client frame: %v", err)
	}
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("client frame is not JSON: %s", data)
	}
	f.receivedAt = time.Now()
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type itemEnvelope struct {
	Item realtime.ConversationItem `json:"item"`
}

func TestVoiceSession_SeedsLatestRecipe(t *testing.T) {
	h := newVoiceHarness(t)
	h.repo.SaveRecipeSession(testutil.TestRecipeSession())

	h.dial(t, "")
	h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 1, waitTimeout)

	events := h.upstream.Events()
	if len(events) < 3 {
		t.Fatalf("events = %d, want at least 3", len(events))
	}
	wantOrder := []string{realtime.EventSessionUpdate, realtime.EventItemCreate, realtime.EventResponseCreate}
	for i, want := range wantOrder {
		if events[i].Type != want {
			t.Errorf("event[%d] = %s, want %s", i, events[i].Type, want)
		}
	}

	var seed itemEnvelope
	events[1].Decode(t, &seed)
	if seed.Item.Role != realtime.RoleUser || len(seed.Item.Content) != 1 {
		t.Fatalf("seed item = %+v", seed.Item)
	}
	if !strings.Contains(seed.Item.Content[0].Text, testutil.TestRecipeText) {
		t.Errorf("seed text does not contain the recipe:\n%s", seed.Item.Content[0].Text)
	}

	var update struct {
		Session realtime.SessionConfig `json:"session"`
	}
	events[0].Decode(t, &update)
	if len(update.Session.Tools) != 1 || update.Session.Tools[0].Name != realtime.StartTimerTool {
		t.Errorf("session tools = %+v", update.Session.Tools)
	}

	if got := h.upstream.Header().Get("Authorization"); got != "Bearer test-openai-key" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.upstream.Header().Get("OpenAI-Beta"); got != "realtime=v1" {
		t.Errorf("OpenAI-Beta = %q", got)
	}
	if !strings.Contains(h.upstream.Query(), "model=gpt-4o-realtime-preview") {
		t.Errorf("query = %q", h.upstream.Query())
	}
}

func TestVoiceSession_NoRecipeSendsPlaceholder(t *testing.T) {
	h := newVoiceHarness(t)
	h.dial(t, "")

	items := h.upstream.WaitForEvents(t, realtime.EventItemCreate, 1, waitTimeout)
	var seed itemEnvelope
	items[0].Decode(t, &seed)
	if got := seed.Item.Content[0].Text; got != testutil.TestPrompts().Realtime.NoRecipe {
		t.Errorf("seed = %q, want placeholder", got)
	}
}

func TestVoiceSession_SelectsRequestedSession(t *testing.T) {
	h := newVoiceHarness(t)
	first := testutil.TestRecipeSession()
	h.repo.SaveRecipeSession(first)
	second := testutil.TestRecipeSession()
	second.ID = "b2f8f0a4-8d1e-4bb5-9a43-1d1f6c1b9e77"
	second.Text = "[재료]\n- 된장 2큰술\n\n[조리 단계]\n1. 된장을 푼다."
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	h.repo.SaveRecipeSession(second)

	h.dial(t, "?session_id="+first.ID)

	items := h.upstream.WaitForEvents(t, realtime.EventItemCreate, 1, waitTimeout)
	var seed itemEnvelope
	items[0].Decode(t, &seed)
	if !strings.Contains(seed.Item.Content[0].Text, first.Text) {
		t.Errorf("seed does not name the requested recipe:\n%s", seed.Item.Content[0].Text)
	}
}

func TestVoiceSession_UnknownSessionIsRejected(t *testing.T) {
	h := newVoiceHarness(t)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?session_id=missing"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %+v, want 404", resp)
	}
}

func TestVoiceSession_ForwardsAudioFramesInOrder(t *testing.T) {
	h := newVoiceHarness(t)
	conn := h.dial(t, "")

	frames := [][]byte{
		{0x01, 0x02},
		{0x03, 0x04, 0x05},
		{0x06},
		make([]byte, 3200),
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	conn.WriteMessage(websocket.TextMessage, []byte(`{"ignored":true}`))

	appends := h.upstream.WaitForEvents(t, realtime.EventAudioBufferAppend, len(frames), waitTimeout)
	if len(appends) != len(frames) {
		t.Fatalf("appends = %d, want %d", len(appends), len(frames))
	}
	for i, e := range appends {
		var msg struct {
			Audio string `json:"audio"`
		}
		e.Decode(t, &msg)
		if want := base64.StdEncoding.EncodeToString(frames[i]); msg.Audio != want {
			t.Errorf("append[%d] = %q, want %q", i, msg.Audio, want)
		}
	}
}

func TestVoiceSession_ForwardsUpstreamEvents(t *testing.T) {
	h := newVoiceHarness(t)
	conn := h.dial(t, "")
	h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 1, waitTimeout)

	h.upstream.Push(t, map[string]interface{}{"type": realtime.EventAudioDelta, "delta": "AAEC"})
	h.upstream.Push(t, map[string]interface{}{"type": "response.created"})
	h.upstream.Push(t, map[string]interface{}{"type": realtime.EventAudioTranscriptDone, "transcript": "냄비를 준비해 주세요."})
	h.upstream.Push(t, map[string]interface{}{"type": realtime.EventError, "error": map[string]string{"message": "rate limited"}})

	want := []clientFrame{
		{Type: MsgTypeAudio, Data: "AAEC"},
		{Type: MsgTypeText, Data: "냄비를 준비해 주세요."},
		{Type: MsgTypeError, Data: "rate limited"},
	}
	for i, w := range want {
		got := readFrame(t, conn)
		if got.Type != w.Type || got.Data != w.Data {
			t.Errorf("frame[%d] = %s/%q, want %s/%q", i, got.Type, got.Data, w.Type, w.Data)
		}
	}
}

func TestVoiceSession_StartTimerScenario(t *testing.T) {
	h := newVoiceHarness(t)
	h.repo.SaveRecipeSession(testutil.TestRecipeSession())
	conn := h.dial(t, "")
	h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 1, waitTimeout)

	calledAt := time.Now()
	h.upstream.Push(t, map[string]interface{}{
		"type":      realtime.EventFunctionArgumentsDone,
		"call_id":   "call_abc",
		"name":      realtime.StartTimerTool,
		"arguments": `{"seconds":5}`,
	})

	ack := readFrame(t, conn)
	if ack.Type != MsgTypeText || ack.Data != "5초 타이머를 시작할게요." {
		t.Errorf("ack = %+v", ack)
	}
	start := readFrame(t, conn)
	if start.Type != MsgTypeTimerStart || start.Seconds != 5 {
		t.Fatalf("timer_start = %+v", start)
	}
	if start.receivedAt.Sub(calledAt) >= 5*testTimerUnit {
		t.Errorf("timer_start arrived after %v, want immediately", start.receivedAt.Sub(calledAt))
	}

	items := h.upstream.WaitForEvents(t, realtime.EventItemCreate, 2, waitTimeout)
	var output itemEnvelope
	items[1].Decode(t, &output)
	if output.Item.Type != realtime.ItemTypeFunctionOutput || output.Item.CallID != "call_abc" {
		t.Fatalf("function output = %+v", output.Item)
	}
	outputAt := items[1].At

	done := readFrame(t, conn)
	if done.Type != MsgTypeTimerDone || done.Message != "5초 타이머가 끝났어요!" {
		t.Fatalf("timer_done = %+v", done)
	}
	if elapsed := done.receivedAt.Sub(calledAt); elapsed < 5*testTimerUnit {
		t.Errorf("timer_done after %v, want >= %v", elapsed, 5*testTimerUnit)
	}
	if !outputAt.Before(done.receivedAt) {
		t.Error("function output must precede timer_done")
	}

	items = h.upstream.WaitForEvents(t, realtime.EventItemCreate, 3, waitTimeout)
	var followUp itemEnvelope
	items[2].Decode(t, &followUp)
	if followUp.Item.Role != realtime.RoleUser || !strings.Contains(followUp.Item.Content[0].Text, "5 second timer") {
		t.Errorf("follow-up = %+v", followUp.Item)
	}
	responses := h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 2, waitTimeout)
	if !responses[1].At.After(items[2].At) && !responses[1].At.Equal(items[2].At) {
		t.Error("response.create must follow the timer turn")
	}
}

func TestVoiceSession_BadToolCallsDoNotEndSession(t *testing.T) {
	h := newVoiceHarness(t)
	conn := h.dial(t, "")
	h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 1, waitTimeout)

	h.upstream.Push(t, map[string]interface{}{
		"type":      realtime.EventFunctionArgumentsDone,
		"call_id":   "call_bad",
		"name":      realtime.StartTimerTool,
		"arguments": `{"seconds":"five"}`,
	})
	h.upstream.PushRaw(t, []byte(`{not json`))
	h.upstream.Push(t, map[string]interface{}{
		"type":      realtime.EventFunctionArgumentsDone,
		"call_id":   "call_other",
		"name":      "set_oven",
		"arguments": `{}`,
	})
	h.upstream.Push(t, map[string]interface{}{"type": realtime.EventAudioTranscriptDone, "transcript": "still here"})

	got := readFrame(t, conn)
	if got.Type != MsgTypeText || got.Data != "still here" {
		t.Fatalf("frame = %+v, want transcript after bad tool calls", got)
	}

	items := h.upstream.WaitForEvents(t, realtime.EventItemCreate, 2, waitTimeout)
	var output itemEnvelope
	items[1].Decode(t, &output)
	if output.Item.CallID != "call_other" || !strings.Contains(output.Item.Output, "error") {
		t.Errorf("unknown tool output = %+v", output.Item)
	}
	for _, e := range items {
		var it itemEnvelope
		e.Decode(t, &it)
		if it.Item.CallID == "call_bad" {
			t.Error("malformed start_timer call must not be acknowledged")
		}
	}
}

func TestVoiceSession_ClientCloseWithPendingTimer(t *testing.T) {
	h := newVoiceHarness(t)
	conn := h.dial(t, "")
	h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 1, waitTimeout)
	waitFor(t, "hub registration", func() bool { return h.hub.Count() == 1 })

	h.upstream.Push(t, map[string]interface{}{
		"type":      realtime.EventFunctionArgumentsDone,
		"call_id":   "call_long",
		"name":      realtime.StartTimerTool,
		"arguments": `{"seconds":10}`,
	})
	readFrame(t, conn)
	if f := readFrame(t, conn); f.Type != MsgTypeTimerStart {
		t.Fatalf("frame = %+v, want timer_start", f)
	}

	conn.Close()
	waitFor(t, "session teardown", func() bool { return h.hub.Count() == 0 })

	// Give the timer a chance to fire if teardown failed to abort it.
	time.Sleep(15 * testTimerUnit)
	if n := len(h.upstream.EventsOfType(realtime.EventResponseCreate)); n != 1 {
		t.Errorf("response.create events = %d, want only the initial one", n)
	}
}

func TestVoiceSession_UpstreamCloseEndsClient(t *testing.T) {
	h := newVoiceHarness(t)
	conn := h.dial(t, "")
	h.upstream.WaitForEvents(t, realtime.EventResponseCreate, 1, waitTimeout)

	h.upstream.CloseConn()

	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				t.Fatal("client connection stayed open after upstream closed")
			}
			return
		}
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewVoiceHandler(nil, nil, nil, nil, []string{"https://cook.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://cook.example.com", true},
		{"http://localhost:3000", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	open := NewVoiceHandler(nil, nil, nil, nil, nil)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example.com")
	if !open.checkOrigin(r) {
		t.Error("no configured origins should allow any origin")
	}
}
