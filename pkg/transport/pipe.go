package transport

import (
	"context"
	"sync"
)

// Pipe is an in-memory Transport. Pair returns two ends wired together; tests
// and the embedded mock build use one end each.
type Pipe struct {
	send    chan []byte
	recv    chan []byte
	closeCh chan struct{}
	once    *sync.Once
}

// Pair creates two connected pipe transports. Messages sent on one end are
// received on the other. Both ends share a close signal.
func Pair() (*Pipe, *Pipe) {
	a := make(chan []byte, 16)
	b := make(chan []byte, 16)
	closeCh := make(chan struct{})
	// Closing either end closes both.
	once := &sync.Once{}
	left := &Pipe{send: a, recv: b, closeCh: closeCh, once: once}
	right := &Pipe{send: b, recv: a, closeCh: closeCh, once: once}
	return left, right
}

// Send implements Transport.
func (p *Pipe) Send(ctx context.Context, data []byte) error {
	select {
	case <-p.closeCh:
		return ErrClosed
	default:
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	select {
	case p.send <- msg:
		return nil
	case <-p.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements Transport.
func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.recv:
		return msg, nil
	case <-p.closeCh:
		// Drain anything already queued before reporting closed.
		select {
		case msg := <-p.recv:
			return msg, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements Transport.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.closeCh) })
	return nil
}
