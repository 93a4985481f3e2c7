package mockbuild

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/telemetry"
	"github.com/simbridge/simbridge/pkg/transport"
)

// Serve drives the build over a transport until the controller terminates
// the session, the transport closes, or the context is cancelled.
func Serve(ctx context.Context, b *Build, t transport.Transport, log *telemetry.Logger) error {
	for {
		data, err := t.Receive(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		commands, err := protocol.DecodeCommands(data)
		if err != nil {
			return fmt.Errorf("decode commands: %w", err)
		}

		frame, err := b.Step(commands)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		log.WithFrame(frame.Number).Debugf("stepped %d commands, %d payloads", len(commands), len(frame.Payloads))

		if err := t.Send(ctx, protocol.EncodeFrame(frame)); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}
		if b.Terminated() {
			return nil
		}
	}
}

// ServerConfig configures the websocket front of the mock build.
type ServerConfig struct {
	// Address to listen on, e.g. "127.0.0.1:1071".
	Address string
	// Path the controller dials, defaults to "/frames".
	Path string
}

func (c *ServerConfig) setDefaults() {
	if c.Path == "" {
		c.Path = "/frames"
	}
}

// Server exposes a mock build over a websocket endpoint. Each accepted
// connection gets its own fresh scene, so sessions do not leak state into
// one another.
type Server struct {
	cfg      ServerConfig
	log      *telemetry.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	// Seed customizes each new scene before serving, e.g. to add robots.
	Seed func(*Build)
}

// NewServer creates a websocket server for the mock build.
func NewServer(cfg ServerConfig, log *telemetry.Logger) *Server {
	cfg.setDefaults()
	return &Server{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 16,
		},
	}
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Address
	}
	return s.listener.Addr().String()
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleSession)
	s.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("mock build server stopped")
		}
	}()
	s.log.WithField("address", s.Addr()).Info("mock build listening")
	return nil
}

// Shutdown stops accepting connections and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	build := New()
	if s.Seed != nil {
		s.Seed(build)
	}
	t := &wsConn{conn: conn}
	defer t.Close()

	s.log.WithField("remote", conn.RemoteAddr().String()).Info("controller connected")
	if err := Serve(r.Context(), build, t, s.log); err != nil {
		s.log.WithError(err).Warn("session ended with error")
		return
	}
	s.log.Info("session ended")
}

// wsConn adapts a server-side websocket connection to the transport
// interface Serve expects.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) Receive(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, transport.ErrClosed
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
