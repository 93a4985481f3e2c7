package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig configures a WebSocket transport.
type WebSocketConfig struct {
	// Address is the build's host:port.
	Address string
	// Path is the WebSocket endpoint path. Defaults to "/frames".
	Path string
	// DialTimeout bounds the initial handshake. Defaults to 10s.
	DialTimeout time.Duration
	// DialRetries is how many times to retry the initial dial. A build that
	// is still launching refuses connections for a few seconds. Defaults to 10.
	DialRetries int
	// DialRetryInterval is the pause between dial attempts. Defaults to 1s.
	DialRetryInterval time.Duration
	// WriteTimeout bounds a single Send when the context has no deadline.
	// Defaults to 30s.
	WriteTimeout time.Duration
	// MaxMessageSize caps inbound message size. Defaults to 256 MB; image
	// passes can be large.
	MaxMessageSize int64
}

func (c *WebSocketConfig) setDefaults() {
	if c.Path == "" {
		c.Path = "/frames"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.DialRetries == 0 {
		c.DialRetries = 10
	}
	if c.DialRetryInterval == 0 {
		c.DialRetryInterval = time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 256 << 20
	}
}

// WebSocket is a Transport over a WebSocket connection to the build.
type WebSocket struct {
	conn   *websocket.Conn
	cfg    WebSocketConfig
	mu     sync.Mutex
	closed bool
}

// DialWebSocket connects to a build, retrying while the build finishes
// launching.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (*WebSocket, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("build address is required")
	}
	cfg.setDefaults()

	u := url.URL{Scheme: "ws", Host: cfg.Address, Path: cfg.Path}
	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}

	var lastErr error
	for attempt := 0; attempt <= cfg.DialRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("dial cancelled after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(cfg.DialRetryInterval):
			}
		}
		conn, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			lastErr = err
			continue
		}
		conn.SetReadLimit(cfg.MaxMessageSize)
		return &WebSocket{conn: conn, cfg: cfg}, nil
	}
	return nil, fmt.Errorf("failed to dial build at %s: %w", cfg.Address, lastErr)
}

// Send implements Transport.
func (w *WebSocket) Send(ctx context.Context, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(w.cfg.WriteTimeout)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Receive implements Transport. A context deadline maps onto the connection's
// read deadline; without one the read blocks until the build responds.
func (w *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	conn := w.conn
	w.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return data, nil
}

// Close implements Transport.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	// Best effort close handshake before dropping the TCP connection.
	deadline := time.Now().Add(time.Second)
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return w.conn.Close()
}
