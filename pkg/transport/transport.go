// Package transport carries raw protocol messages between the controller and
// the build. The controller never assumes more than message-at-a-time
// semantics, so alternative transports (in-memory for tests, WebSocket for a
// real build) are interchangeable.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send and Receive after the transport is closed.
var ErrClosed = errors.New("transport is closed")

// Transport is a bidirectional message channel to the build. One Send is
// answered by one Receive; the controller serializes access, so
// implementations do not need to support concurrent calls.
type Transport interface {
	// Send delivers one request message to the build.
	Send(ctx context.Context, data []byte) error
	// Receive blocks until the next response message arrives.
	Receive(ctx context.Context) ([]byte, error)
	// Close tears the connection down. Safe to call more than once.
	Close() error
}
