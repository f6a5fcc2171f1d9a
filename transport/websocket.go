package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketTransport is the default Transport, backed by gorilla/websocket.
// It mirrors the shape of original_source's ws::Connection: a background
// goroutine reads the socket and delivers frames on a channel instead of
// via a receiver list (original_source's `receivers`), and writes are made
// directly by Send, serialized by writeMu, instead of through libwebsockets'
// writeable callback.
type WebSocketTransport struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan []byte
	errs   chan error
	closed bool

	// writeMu serializes every WriteMessage call. gorilla/websocket forbids
	// concurrent writers, but this transport has several: the conference
	// heartbeat task, a Jingle session-accept send, and inbound-driven
	// replies from the Feed loop can all call Send around the same time,
	// and Close's own close-frame write races with any of them too.
	writeMu sync.Mutex
}

// NewWebSocketTransport returns an unconnected transport; call Connect.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{
		frames: make(chan []byte, 32),
		errs:   make(chan error, 1),
	}
}

// Connect dials uri (ws:// or wss://) and starts the read loop.
func (t *WebSocketTransport) Connect(ctx context.Context, uri string, insecureSkipVerify bool) error {
	dialer := websocket.Dialer{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify}, //nolint:gosec
	}
	conn, _, err := dialer.DialContext(ctx, uri, nil)
	if err != nil {
		return fmt.Errorf("transport: dialing %s: %w", uri, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop()
	return nil
}

func (t *WebSocketTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				select {
				case t.errs <- err:
				default:
				}
			}
			close(t.frames)
			return
		}
		t.frames <- data
	}
}

// Send writes one text frame. Safe to call concurrently with itself and
// with Close: writeMu serializes every WriteMessage call on the
// underlying connection, since gorilla/websocket panics on concurrent
// writers and this transport is written to from the heartbeat task, the
// Jingle session-accept send, and the inbound Feed loop all at once.
func (t *WebSocketTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport: not connected")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WebSocketTransport) Frames() <-chan []byte { return t.frames }
func (t *WebSocketTransport) Errors() <-chan error  { return t.errs }

func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return conn.Close()
}
