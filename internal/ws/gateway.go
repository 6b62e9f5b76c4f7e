package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/realtime"
	"go.uber.org/zap"
)

// Upstream is the realtime conversation a Session bridges to.
type Upstream interface {
	UpdateSession(cfg realtime.SessionConfig) error
	CreateUserMessage(text string) error
	AppendAudio(pcm []byte) error
	CreateResponse() error
	SendFunctionCallOutput(callID, output string) error
	ReadEvent() (realtime.Event, error)
	Close() error
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// RecipeText is captured once at connect time; empty means no recipe.
	RecipeText    string
	SeedText      string
	SessionConfig realtime.SessionConfig
	Prompts       *config.Prompts
	Log           *zap.Logger

	// TimerUnit overrides the length of one timer second.
	TimerUnit time.Duration
}

// Session bridges one voice client to one upstream realtime conversation.
// Closing either side closes both.
type Session struct {
	client   *Client
	upstream Upstream
	timers   *TimerSet
	opts     SessionOptions
	log      *zap.Logger

	closeOnce sync.Once
	closing   chan struct{}
}

// NewSession pairs client with upstream.
func NewSession(client *Client, upstream Upstream, opts SessionOptions) *Session {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	timers := NewTimerSet(client, upstream, opts.Prompts, log)
	if opts.TimerUnit > 0 {
		timers.Unit = opts.TimerUnit
	}
	return &Session{
		client:   client,
		upstream: upstream,
		timers:   timers,
		opts:     opts,
		log:      log,
		closing:  make(chan struct{}),
	}
}

// RecipeText returns the recipe captured when the session connected.
func (s *Session) RecipeText() string {
	return s.opts.RecipeText
}

// Timers returns the session's timer set.
func (s *Session) Timers() *TimerSet {
	return s.timers
}

// Start configures the upstream conversation, sends the seed turn and asks
// for the first response.
func (s *Session) Start() error {
	if err := s.upstream.UpdateSession(s.opts.SessionConfig); err != nil {
		return fmt.Errorf("failed to send session.update: %w", err)
	}
	if err := s.upstream.CreateUserMessage(s.opts.SeedText); err != nil {
		return fmt.Errorf("failed to send seed turn: %w", err)
	}
	if err := s.upstream.CreateResponse(); err != nil {
		return fmt.Errorf("failed to request initial response: %w", err)
	}
	return nil
}

// Run pumps both directions until either side ends, then tears the session
// down and waits for its timers.
func (s *Session) Run() {
	go s.client.WritePump()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer s.Close()
		s.client.ReadPump(s.handleClientMessage)
		s.log.Debug("client loop ended")
	}()
	go func() {
		defer wg.Done()
		defer s.Close()
		s.upstreamLoop()
		s.log.Debug("upstream loop ended")
	}()
	wg.Wait()
	s.timers.Wait()
	s.log.Info("voice session ended")
}

// Close tears down both connections and aborts pending timers. It is safe
// to call more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.timers.Cancel()
		s.client.Close()
		if err := s.upstream.Close(); err != nil {
			s.log.Debug("upstream close error", zap.Error(err))
		}
		if s.client.Hub != nil {
			s.client.Hub.Unregister <- s.client
		}
	})
}

func (s *Session) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// handleClientMessage forwards binary audio frames upstream.
func (s *Session) handleClientMessage(_ *Client, messageType int, data []byte) error {
	if messageType != websocket.BinaryMessage {
		s.log.Debug("ignoring non-binary client frame", zap.Int("message_type", messageType))
		return nil
	}
	if err := s.upstream.AppendAudio(data); err != nil {
		return fmt.Errorf("failed to forward audio: %w", err)
	}
	return nil
}

func (s *Session) upstreamLoop() {
	for {
		ev, err := s.upstream.ReadEvent()
		if err != nil {
			if errors.Is(err, realtime.ErrMalformedEvent) {
				s.log.Warn("skipping malformed upstream event", zap.Error(err))
				continue
			}
			if !s.isClosing() {
				s.log.Info("upstream connection ended", zap.Error(err))
			}
			return
		}
		if err := s.handleUpstreamEvent(ev); err != nil {
			if !s.isClosing() {
				s.log.Warn("upstream event handling failed", zap.Error(err))
			}
			return
		}
	}
}

// handleUpstreamEvent dispatches one upstream event. A returned error ends
// the upstream loop.
func (s *Session) handleUpstreamEvent(ev realtime.Event) error {
	switch e := ev.(type) {
	case realtime.AudioDelta:
		return s.client.Enqueue(AudioMessage(e.Delta))

	case realtime.TranscriptDone:
		return s.client.Enqueue(TextMessage(e.Transcript))

	case realtime.ToolCallArgumentsDone:
		return s.handleToolCall(e)

	case realtime.ErrorEvent:
		s.log.Error("upstream reported error", zap.String("error", e.Message()))
		if err := s.client.Enqueue(ErrorMessage(e.Message())); err != nil {
			return err
		}
		return nil

	default:
		return nil
	}
}

func (s *Session) handleToolCall(call realtime.ToolCallArgumentsDone) error {
	log := s.log.With(zap.String("call_id", call.CallID), zap.String("tool", call.Name))

	if call.Name != realtime.StartTimerTool {
		log.Warn("unknown tool call")
		return s.upstream.SendFunctionCallOutput(call.CallID,
			fmt.Sprintf(`{"status":"error","message":"unknown tool %q"}`, call.Name))
	}

	seconds, err := realtime.ParseStartTimerArgs(call.Arguments)
	if err != nil {
		log.Warn("dropping start_timer call with bad arguments",
			zap.String("arguments", call.Arguments),
			zap.Error(err),
		)
		return nil
	}

	ack, err := config.RenderPrompt(s.opts.Prompts.Realtime.TimerAck, map[string]interface{}{"Seconds": seconds})
	if err != nil {
		log.Error("failed to render timer acknowledgment", zap.Error(err))
	} else if err := s.client.Enqueue(TextMessage(ack)); err != nil {
		return err
	}

	timer := s.timers.Start(seconds)
	log.Info("timer started", zap.String("timer_id", timer.ID), zap.Int("seconds", seconds))

	return s.upstream.SendFunctionCallOutput(call.CallID,
		fmt.Sprintf(`{"status":"timer_started","seconds":%d}`, seconds))
}
