// Package controller implements the client side of the simulation protocol:
// it sends per-frame command lists to a build and hands the parsed responses
// to user code and add-ons.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/telemetry"
	"github.com/simbridge/simbridge/pkg/transport"
)

// Recorder observes completed round trips. The stores package provides an
// implementation that persists them.
type Recorder interface {
	RecordFrame(sessionID string, result *Result, commandCount int, latency time.Duration) error
}

// Config configures a controller.
type Config struct {
	// Transport is the connection to the build. Required.
	Transport transport.Transport
	// Telemetry is the observability stack. Defaults to a stack built from
	// telemetry.DefaultConfig.
	Telemetry *telemetry.Telemetry
	// Recorder persists round trips. Optional.
	Recorder Recorder
	// SkipHandshake disables the send_version handshake on Connect. The
	// handshake costs one frame, which matters to some benchmark setups.
	SkipHandshake bool
}

// Controller drives a simulation build. It is not safe for concurrent use;
// the protocol is strictly request/response, so callers serialize frames by
// construction.
type Controller struct {
	transport transport.Transport
	tel       *telemetry.Telemetry
	log       *telemetry.Logger
	recorder  Recorder

	sessionID string
	addOns    []AddOn
	// initialized tracks which attached add-ons have had their
	// initialization commands sent.
	initialized map[AddOn]bool

	version   *outputdata.Version
	lastFrame uint64
	gotFrame  bool

	mu     sync.Mutex
	closed bool
}

// New creates a controller over an established transport.
func New(cfg Config) (*Controller, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	tel := cfg.Telemetry
	if tel == nil {
		var err error
		tel, err = telemetry.New(telemetry.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to build default telemetry: %w", err)
		}
	}

	sessionID := uuid.NewString()
	return &Controller{
		transport:   cfg.Transport,
		tel:         tel,
		log:         tel.Logger.NewComponentLogger("controller").WithSessionID(sessionID),
		recorder:    cfg.Recorder,
		sessionID:   sessionID,
		initialized: make(map[AddOn]bool),
	}, nil
}

// Connect performs the version handshake with the build. Unless
// SkipHandshake was set, call it once before the first Communicate.
func (c *Controller) Connect(ctx context.Context) error {
	result, err := c.Communicate(ctx, []protocol.Command{protocol.SendVersion{}})
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}
	v, ok := result.Get(outputdata.IDVersion).(*outputdata.Version)
	if !ok {
		return fmt.Errorf("build did not answer send_version")
	}
	c.version = v
	c.tel.Metrics.SetConnected(true)
	c.log.Infof("connected to build %s (engine %s)", v.BuildVersion, v.EngineVersion)
	return nil
}

// SessionID returns the unique ID of this controller session.
func (c *Controller) SessionID() string { return c.sessionID }

// Version returns the build's version data, or nil before Connect.
func (c *Controller) Version() *outputdata.Version { return c.version }

// FrameNumber returns the build's most recent frame number.
func (c *Controller) FrameNumber() uint64 { return c.lastFrame }

// Attach registers an add-on. Its initialization commands go out on the next
// frame.
func (c *Controller) Attach(addOn AddOn) {
	c.addOns = append(c.addOns, addOn)
}

// Communicate sends one command list and returns the build's parsed response.
// Add-on initialization and per-frame commands are appended to the caller's
// commands. An empty (or nil) command list still advances one frame.
func (c *Controller) Communicate(ctx context.Context, commands []protocol.Command) (*Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("controller is closed")
	}
	c.mu.Unlock()

	all := make([]protocol.Command, 0, len(commands))
	all = append(all, commands...)
	for _, a := range c.addOns {
		if !c.initialized[a] {
			c.initialized[a] = true
			all = append(all, a.InitializationCommands()...)
		}
		all = append(all, a.Commands()...)
	}

	data, err := protocol.MarshalCommands(all)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal commands: %w", err)
	}
	for _, cmd := range all {
		c.tel.Metrics.RecordCommand(cmd.CommandType())
	}

	spanCtx, span := c.tel.Tracer.StartFrameSpan(ctx, c.lastFrame, len(all))
	defer span.End()

	timer := telemetry.NewTimer()
	if err := c.transport.Send(spanCtx, data); err != nil {
		c.tel.Metrics.RecordFrame(0, err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to send commands: %w", err)
	}
	raw, err := c.transport.Receive(spanCtx)
	if err != nil {
		c.tel.Metrics.RecordFrame(0, err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}
	latency := timer.Duration()

	frame, err := protocol.ParseFrame(raw)
	if err != nil {
		c.tel.Metrics.RecordFrame(latency, err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	payloads, err := outputdata.ParseAll(frame)
	if err != nil {
		c.tel.Metrics.RecordFrame(latency, err)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to parse output data: %w", err)
	}

	if c.gotFrame && frame.Number <= c.lastFrame {
		c.log.Warnf("frame number went backwards: %d after %d", frame.Number, c.lastFrame)
	}
	c.lastFrame = frame.Number
	c.gotFrame = true

	c.tel.Metrics.RecordFrame(latency, nil)
	for i, p := range payloads {
		c.tel.Metrics.RecordPayload(p.TypeID(), len(frame.Payloads[i]))
		switch v := p.(type) {
		case *outputdata.LogMessage:
			c.logBuildMessage(v)
		case *outputdata.Collision:
			c.tel.Metrics.RecordCollision(v.State.String())
		case *outputdata.EnvironmentCollision:
			c.tel.Metrics.RecordCollision(v.State.String())
		}
	}
	telemetry.RecordSuccess(span)

	result := &Result{Frame: frame, Payloads: payloads}
	if c.recorder != nil {
		if err := c.recorder.RecordFrame(c.sessionID, result, len(all), latency); err != nil {
			c.log.WithError(err).Warn("failed to record frame")
		}
	}
	for _, a := range c.addOns {
		if err := a.OnFrame(result); err != nil {
			c.log.WithError(err).Warnf("add-on %s failed on frame %d", a.Name(), frame.Number)
		}
	}
	return result, nil
}

// Terminate asks the build to quit and closes the transport. The build
// acknowledges with a QuitSignal payload before the connection drops.
func (c *Controller) Terminate(ctx context.Context) error {
	result, err := c.Communicate(ctx, []protocol.Command{protocol.Terminate{}})
	if err != nil {
		// The build may already be gone; closing is still required.
		c.log.WithError(err).Warn("terminate round trip failed")
		return c.Close()
	}
	if q, ok := result.Get(outputdata.IDQuitSignal).(*outputdata.QuitSignal); ok && !q.OK {
		c.log.Warn("build reported an unclean quit")
	}
	return c.Close()
}

// Close tears down the transport without terminating the build.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.tel.Metrics.SetConnected(false)
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (c *Controller) logBuildMessage(m *outputdata.LogMessage) {
	log := c.log.WithFrame(c.lastFrame).WithField("object_type", m.ObjectType)
	switch m.Level {
	case outputdata.LogError:
		log.Errorf("build: %s", m.Message)
	case outputdata.LogWarning:
		log.Warnf("build: %s", m.Message)
	default:
		log.Infof("build: %s", m.Message)
	}
}
