package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Audio frames are binary PCM16
	// chunks, typically a few KB each.
	maxMessageSize = 256 * 1024

	// Outbound queue depth per client.
	sendBufferSize = 256
)

// ErrClientClosed is returned when enqueueing to a client that has gone away.
var ErrClientClosed = errors.New("client connection closed")

// Client represents a single WebSocket connection. Send is never closed;
// the done channel signals shutdown so late writers get ErrClientClosed
// instead of a panic.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID string

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps conn for one voice session.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
		SessionID: sessionID,
		done:      make(chan struct{}),
	}
}

// Enqueue queues msg for the write pump. It blocks while the queue is full
// and fails with ErrClientClosed once the client is closed.
func (c *Client) Enqueue(msg []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.Send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	}
}

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops the pumps and closes the connection. It is safe to call more
// than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// Hub tracks live voice sessions.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run handles register and unregister events. It should be launched as a
// goroutine.
func (h *Hub) Run() {
	log := logger.Get()

	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			log.Info("voice client registered",
				zap.String("session_id", client.SessionID),
				zap.Int("active_sessions", count),
			)

		case client := <-h.Unregister:
			h.mu.Lock()
			_, exists := h.clients[client]
			delete(h.clients, client)
			count := len(h.clients)
			h.mu.Unlock()

			if exists {
				log.Info("voice client unregistered",
					zap.String("session_id", client.SessionID),
					zap.Int("active_sessions", count),
				)
			}
		}
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every registered client. Their sessions tear down and
// unregister on their own.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// ReadPump reads messages from the WebSocket connection until it fails or
// the handler returns an error. It is intended to be run in a per-client
// goroutine.
func (c *Client) ReadPump(handler func(c *Client, messageType int, data []byte) error) {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
				) {
					logger.Get().Warn("unexpected websocket close",
						zap.String("session_id", c.SessionID),
						zap.Error(err),
					)
				}
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := handler(c, messageType, message); err != nil {
			logger.Get().Warn("client message handler failed",
				zap.String("session_id", c.SessionID),
				zap.Error(err),
			)
			return
		}
	}
}

// WritePump sends messages from the Send channel to the WebSocket connection.
// It also sends periodic pings to keep the connection alive. It is intended to
// be run in a per-client goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
