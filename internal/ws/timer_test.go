package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/windoze95/saltybytes-voice/internal/testutil"
	"go.uber.org/zap"
)

type recordingClient struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (r *recordingClient) Enqueue(msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClientClosed
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingClient) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *recordingClient) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		var env struct {
			Type string `json:"type"`
		}
		json.Unmarshal(m, &env)
		out = append(out, env.Type)
	}
	return out
}

type upstreamCall struct {
	kind string
	text string
}

type recordingUpstream struct {
	mu    sync.Mutex
	calls []upstreamCall
	err   error
}

func (r *recordingUpstream) CreateUserMessage(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, upstreamCall{kind: "message", text: text})
	return nil
}

func (r *recordingUpstream) CreateResponse() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, upstreamCall{kind: "response"})
	return nil
}

func (r *recordingUpstream) snapshot() []upstreamCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upstreamCall(nil), r.calls...)
}

func newTestTimerSet(client ClientSink, upstream UpstreamSink) *TimerSet {
	s := NewTimerSet(client, upstream, testutil.TestPrompts(), zap.NewNop())
	s.Unit = 10 * time.Millisecond
	return s
}

func TestTimerSet_StartEmitsTimerStartImmediately(t *testing.T) {
	client := &recordingClient{}
	upstream := &recordingUpstream{}
	s := newTestTimerSet(client, upstream)
	s.Unit = time.Hour
	defer func() {
		s.Cancel()
		s.Wait()
	}()

	timer := s.Start(5)

	types := client.types()
	if len(types) != 1 || types[0] != MsgTypeTimerStart {
		t.Fatalf("messages = %v, want one timer_start", types)
	}
	var msg TimerStartMessage
	json.Unmarshal(client.msgs[0], &msg)
	if msg.Seconds != 5 {
		t.Errorf("Seconds = %d, want 5", msg.Seconds)
	}
	if st := timer.State(); st != TimerScheduled && st != TimerRunning {
		t.Errorf("State = %s, want scheduled or running", st)
	}
}

func TestTimerSet_CompletesInOrder(t *testing.T) {
	client := &recordingClient{}
	upstream := &recordingUpstream{}
	s := newTestTimerSet(client, upstream)

	start := time.Now()
	timer := s.Start(5)
	s.Wait()
	elapsed := time.Since(start)

	if elapsed < 5*s.Unit {
		t.Errorf("timer fired after %v, want >= %v", elapsed, 5*s.Unit)
	}
	if timer.State() != TimerCompleted {
		t.Errorf("State = %s, want completed", timer.State())
	}

	types := client.types()
	if len(types) != 2 || types[0] != MsgTypeTimerStart || types[1] != MsgTypeTimerDone {
		t.Fatalf("messages = %v, want [timer_start timer_done]", types)
	}
	var done TimerDoneMessage
	json.Unmarshal(client.msgs[1], &done)
	if done.Message != "5초 타이머가 끝났어요!" {
		t.Errorf("timer_done message = %q", done.Message)
	}

	calls := upstream.snapshot()
	if len(calls) != 2 || calls[0].kind != "message" || calls[1].kind != "response" {
		t.Fatalf("upstream calls = %+v, want message then response", calls)
	}
	if calls[0].text != "The 5 second timer is done. Move to the next step." {
		t.Errorf("follow-up text = %q", calls[0].text)
	}
}

func TestTimerSet_ConcurrentTimersKeepTurnPairsAdjacent(t *testing.T) {
	client := &recordingClient{}
	upstream := &recordingUpstream{}
	s := newTestTimerSet(client, upstream)

	for i := 0; i < 5; i++ {
		s.Start(1)
	}
	s.Wait()

	calls := upstream.snapshot()
	if len(calls) != 10 {
		t.Fatalf("upstream calls = %d, want 10", len(calls))
	}
	for i := 0; i < len(calls); i += 2 {
		if calls[i].kind != "message" || calls[i+1].kind != "response" {
			t.Fatalf("calls %d,%d = %s,%s; want message,response", i, i+1, calls[i].kind, calls[i+1].kind)
		}
	}
	for _, timer := range s.Timers() {
		if timer.State() != TimerCompleted {
			t.Errorf("timer %s state = %s", timer.ID, timer.State())
		}
	}
}

func TestTimerSet_CancelAbortsPending(t *testing.T) {
	client := &recordingClient{}
	upstream := &recordingUpstream{}
	s := newTestTimerSet(client, upstream)
	s.Unit = time.Hour

	timer := s.Start(60)
	s.Cancel()
	s.Wait()

	if timer.State() != TimerAborted {
		t.Errorf("State = %s, want aborted", timer.State())
	}
	if len(upstream.snapshot()) != 0 {
		t.Error("aborted timer must not send a follow-up turn")
	}

	late := s.Start(1)
	if late.State() != TimerAborted {
		t.Errorf("timer started after Cancel: state = %s, want aborted", late.State())
	}
	if got := len(s.Timers()); got != 2 {
		t.Errorf("Timers() = %d, want 2", got)
	}
}

func TestTimerSet_ClosedClientDoesNotStopFollowUp(t *testing.T) {
	client := &recordingClient{}
	upstream := &recordingUpstream{}
	s := newTestTimerSet(client, upstream)

	timer := s.Start(2)
	client.close()
	s.Wait()

	if timer.State() != TimerCompleted {
		t.Errorf("State = %s, want completed", timer.State())
	}
	if len(upstream.snapshot()) != 2 {
		t.Errorf("upstream calls = %+v, want follow-up pair", upstream.snapshot())
	}
}

func TestTimerSet_UpstreamFailureAborts(t *testing.T) {
	client := &recordingClient{}
	upstream := &recordingUpstream{err: errors.New("connection reset")}
	s := newTestTimerSet(client, upstream)

	timer := s.Start(1)
	s.Wait()

	if timer.State() != TimerAborted {
		t.Errorf("State = %s, want aborted", timer.State())
	}
}

func TestTimerState_String(t *testing.T) {
	tests := map[TimerState]string{
		TimerScheduled: "scheduled",
		TimerRunning:   "running",
		TimerCompleted: "completed",
		TimerAborted:   "aborted",
		TimerState(42): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
