// stream.go follows the server's WebSocket event feed.
//
// The feed is a plain broadcast: every world event goes to every
// subscriber, so there is no subscription protocol to speak. The stream
// auto-reconnects with exponential backoff (1s → 30s max) and keeps the
// link warm with the text "ping" keepalive the server answers with
// "pong". A read deadline ensures silent server failures are detected.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval     = 25 * time.Second // two pings fit inside the server's 60s read window
	readTimeout      = 90 * time.Second // ~3 missed pongs triggers reconnect
	maxReconnectWait = 30 * time.Second // cap on exponential backoff
	writeTimeout     = 10 * time.Second // deadline for outgoing messages
	eventBufferSize  = 64
)

// StreamEvent is one frame of the live feed.
type StreamEvent struct {
	Type      string    `json:"type"` // always "event"
	EventType string    `json:"event_type"`
	Ticker    string    `json:"ticker,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventStream manages the WebSocket connection to the event feed. It
// handles connection lifecycle and automatic reconnection with
// exponential backoff.
type EventStream struct {
	url    string
	conn   *websocket.Conn
	connMu sync.Mutex // protects conn reads/writes

	events chan StreamEvent

	logger *slog.Logger
}

// NewEventStream creates a stream for the given ws:// URL.
func NewEventStream(wsURL string, logger *slog.Logger) *EventStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStream{
		url:    wsURL,
		events: make(chan StreamEvent, eventBufferSize),
		logger: logger.With("component", "event_stream"),
	}
}

// WSURL derives the event stream endpoint from an HTTP base URL.
func WSURL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Events returns a read-only channel of decoded feed events.
func (s *EventStream) Events() <-chan StreamEvent { return s.events }

// Run connects and maintains the connection with auto-reconnect.
// Blocks until ctx is cancelled.
func (s *EventStream) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("event stream disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		// Exponential backoff: 1s, 2s, 4s, 8s, ..., 30s max
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close gracefully closes the connection.
func (s *EventStream) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *EventStream) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		conn.Close()
		s.conn = nil
		s.connMu.Unlock()
	}()

	s.logger.Info("event stream connected", "url", s.url)

	// Start ping goroutine
	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go s.pingLoop(pingCtx)

	// Read loop with deadline so we reconnect if server goes silent
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		s.dispatch(msg)
	}
}

func (s *EventStream) dispatch(data []byte) {
	// Keepalive replies are not events
	if string(data) == "pong" {
		return
	}

	var evt StreamEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		s.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}
	if evt.Type != "event" {
		s.logger.Debug("unknown ws frame type", "type", evt.Type)
		return
	}

	select {
	case s.events <- evt:
	default:
		s.logger.Warn("event channel full, dropping event", "event_type", evt.EventType)
	}
}

func (s *EventStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeMessage(websocket.TextMessage, []byte("ping")); err != nil {
				s.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (s *EventStream) writeMessage(msgType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(msgType, data)
}
