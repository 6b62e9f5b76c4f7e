package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the upstream.
	writeWait = 10 * time.Second

	defaultDialTimeout = 15 * time.Second
)

var (
	// ErrUpstreamClosed is returned once the upstream connection is gone.
	ErrUpstreamClosed = errors.New("realtime upstream closed")

	// ErrMalformedEvent wraps a frame that could not be decoded. The
	// connection itself is still usable.
	ErrMalformedEvent = errors.New("malformed realtime event")

	// ErrMissingAPIKey is returned by Dial when no API key is configured.
	ErrMissingAPIKey = errors.New("realtime API key is not configured")
)

// Config describes how to reach the realtime endpoint.
type Config struct {
	URL         string
	Model       string
	APIKey      string
	DialTimeout time.Duration
}

// Client is one upstream realtime websocket. Writes are serialized, so any
// goroutine may send. Only one goroutine may call ReadEvent.
type Client struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens an upstream realtime connection.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime URL: %w", err)
	}
	if cfg.Model != "" {
		q := endpoint.Query()
		q.Set("model", cfg.Model)
		endpoint.RawQuery = q.Encode()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	return &Client{conn: conn, closed: make(chan struct{})}, nil
}

func (c *Client) send(v any) error {
	select {
	case <-c.closed:
		return ErrUpstreamClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamClosed, err)
	}
	return nil
}

// UpdateSession sends session.update.
func (c *Client) UpdateSession(cfg SessionConfig) error {
	return c.send(sessionUpdateMessage{Type: EventSessionUpdate, Session: cfg})
}

// CreateUserMessage adds a user text turn to the conversation.
func (c *Client) CreateUserMessage(text string) error {
	return c.send(itemCreateMessage{Type: EventItemCreate, Item: UserTextItem(text)})
}

// SendFunctionCallOutput acknowledges the tool call identified by callID.
func (c *Client) SendFunctionCallOutput(callID, output string) error {
	return c.send(itemCreateMessage{Type: EventItemCreate, Item: FunctionOutputItem(callID, output)})
}

// AppendAudio forwards one chunk of PCM16 input audio.
func (c *Client) AppendAudio(pcm []byte) error {
	return c.send(audioAppendMessage{
		Type:  EventAudioBufferAppend,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// CreateResponse asks the model to respond now.
func (c *Client) CreateResponse() error {
	return c.send(responseCreateMessage{Type: EventResponseCreate})
}

// ReadEvent blocks for the next upstream event. Errors wrapping
// ErrMalformedEvent leave the connection usable; any other error means the
// connection is finished.
func (c *Client) ReadEvent() (Event, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamClosed, err)
	}
	ev, err := DecodeEvent(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return ev, nil
}

// Close closes the connection. It is safe to call more than once and from
// any goroutine.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
