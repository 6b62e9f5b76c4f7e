package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"go.uber.org/zap"
)

// TimerState is the lifecycle state of a cooking timer.
type TimerState int32

const (
	TimerScheduled TimerState = iota
	TimerRunning
	TimerCompleted
	TimerAborted
)

func (s TimerState) String() string {
	switch s {
	case TimerScheduled:
		return "scheduled"
	case TimerRunning:
		return "running"
	case TimerCompleted:
		return "completed"
	case TimerAborted:
		return "aborted"
	}
	return "unknown"
}

// ClientSink receives timer events destined for the voice client.
type ClientSink interface {
	Enqueue(msg []byte) error
}

// UpstreamSink receives the follow-up turn once a timer elapses.
type UpstreamSink interface {
	CreateUserMessage(text string) error
	CreateResponse() error
}

// Timer is one countdown started by the assistant.
type Timer struct {
	ID      string
	Seconds int

	state atomic.Int32
}

// State returns the current lifecycle state.
func (t *Timer) State() TimerState {
	return TimerState(t.state.Load())
}

func (t *Timer) setState(s TimerState) {
	t.state.Store(int32(s))
}

// TimerSet supervises the timers of one voice session. Cancel aborts every
// pending timer and Wait blocks until all of them have returned.
type TimerSet struct {
	// Unit is the length of one timer "second". Tests shorten it.
	Unit time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	client   ClientSink
	upstream UpstreamSink
	prompts  *config.Prompts
	log      *zap.Logger

	// turnMu keeps each follow-up user turn and its response.create
	// adjacent when several timers fire together.
	turnMu sync.Mutex

	mu     sync.Mutex
	timers []*Timer
	closed bool
}

// NewTimerSet creates a TimerSet writing to client and upstream.
func NewTimerSet(client ClientSink, upstream UpstreamSink, prompts *config.Prompts, log *zap.Logger) *TimerSet {
	ctx, cancel := context.WithCancel(context.Background())
	return &TimerSet{
		Unit:     time.Second,
		ctx:      ctx,
		cancel:   cancel,
		client:   client,
		upstream: upstream,
		prompts:  prompts,
		log:      log,
	}
}

// Start emits timer_start and schedules the countdown. It never waits for
// the timer to elapse.
func (s *TimerSet) Start(seconds int) *Timer {
	t := &Timer{ID: uuid.New().String(), Seconds: seconds}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	if s.closed {
		s.mu.Unlock()
		t.setState(TimerAborted)
		return t
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if err := s.client.Enqueue(TimerStart(seconds)); err != nil {
		s.log.Warn("failed to send timer_start",
			zap.String("timer_id", t.ID),
			zap.Error(err),
		)
	}

	go s.run(t)
	return t
}

func (s *TimerSet) run(t *Timer) {
	defer s.wg.Done()
	log := s.log.With(zap.String("timer_id", t.ID), zap.Int("seconds", t.Seconds))

	t.setState(TimerRunning)
	countdown := time.NewTimer(time.Duration(t.Seconds) * s.Unit)
	defer countdown.Stop()

	select {
	case <-s.ctx.Done():
		t.setState(TimerAborted)
		log.Debug("timer aborted before expiry")
		return
	case <-countdown.C:
	}

	data := map[string]interface{}{"Seconds": t.Seconds}

	doneText, err := config.RenderPrompt(s.prompts.Realtime.TimerDone, data)
	if err != nil {
		log.Error("failed to render timer_done message", zap.Error(err))
	}
	if err := s.client.Enqueue(TimerDone(doneText)); err != nil {
		log.Warn("failed to send timer_done", zap.Error(err))
	}

	if s.ctx.Err() != nil {
		t.setState(TimerAborted)
		return
	}

	elapsed, err := config.RenderPrompt(s.prompts.Realtime.TimerElapsed, data)
	if err != nil {
		log.Error("failed to render timer follow-up", zap.Error(err))
		t.setState(TimerAborted)
		return
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	if err := s.upstream.CreateUserMessage(elapsed); err != nil {
		log.Warn("failed to send timer follow-up turn", zap.Error(err))
		t.setState(TimerAborted)
		return
	}
	if err := s.upstream.CreateResponse(); err != nil {
		log.Warn("failed to request response after timer", zap.Error(err))
		t.setState(TimerAborted)
		return
	}

	t.setState(TimerCompleted)
	log.Info("timer completed")
}

// Timers returns a snapshot of every timer started in this set.
func (s *TimerSet) Timers() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Timer(nil), s.timers...)
}

// Cancel aborts all pending timers. Timers started afterwards are aborted
// immediately.
func (s *TimerSet) Cancel() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every started timer has returned.
func (s *TimerSet) Wait() {
	s.wg.Wait()
}
