package controller

import (
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// Result is one parsed response from the build.
type Result struct {
	// Frame is the raw frame.
	Frame *protocol.Frame
	// Payloads are the typed output data payloads of the frame.
	Payloads []outputdata.Payload
}

// Get returns the first payload with the given type id, or nil.
func (r *Result) Get(typeID string) outputdata.Payload {
	for _, p := range r.Payloads {
		if p.TypeID() == typeID {
			return p
		}
	}
	return nil
}

// AddOn injects commands into the controller's frame loop and observes every
// response. Attach one with Controller.Attach before the relevant frames.
type AddOn interface {
	// Name identifies the add-on in logs.
	Name() string
	// InitializationCommands are sent once, on the first frame after the
	// add-on is attached.
	InitializationCommands() []protocol.Command
	// Commands are drained and sent on the next frame. Called once per frame.
	Commands() []protocol.Command
	// OnFrame is called with every parsed response. Commands queued here go
	// out on the following frame.
	OnFrame(result *Result) error
}

// CommandBuffer is a reusable per-frame command queue for add-on
// implementations.
type CommandBuffer struct {
	commands []protocol.Command
}

// Push queues commands for the next frame.
func (b *CommandBuffer) Push(commands ...protocol.Command) {
	b.commands = append(b.commands, commands...)
}

// Drain returns and clears the queued commands.
func (b *CommandBuffer) Drain() []protocol.Command {
	out := b.commands
	b.commands = nil
	return out
}
