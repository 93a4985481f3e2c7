package protocol

import (
	"encoding/json"
	"fmt"
)

// Command is a single instruction for the build. Implementations are plain
// structs with JSON tags; the "$type" discriminator is injected during
// marshaling from CommandType.
type Command interface {
	// CommandType returns the "$type" discriminator understood by the build.
	CommandType() string
}

// Frequency controls how often the build sends a given kind of output data.
type Frequency string

const (
	// FrequencyOnce sends the data on the next frame only.
	FrequencyOnce Frequency = "once"
	// FrequencyAlways sends the data on every frame.
	FrequencyAlways Frequency = "always"
	// FrequencyNever stops sending the data.
	FrequencyNever Frequency = "never"
)

// Validate checks that the frequency is one the build understands.
func (f Frequency) Validate() error {
	switch f {
	case FrequencyOnce, FrequencyAlways, FrequencyNever:
		return nil
	default:
		return fmt.Errorf("invalid frequency %q", string(f))
	}
}

// Vector3 is a position, direction, or scale in build coordinates.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a rotation in build coordinates.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IdentityQuaternion is the zero rotation.
var IdentityQuaternion = Quaternion{W: 1}

// UnitScale is the default object scale factor.
var UnitScale = Vector3{X: 1, Y: 1, Z: 1}

// MarshalCommands serializes a command list into the JSON array the build
// expects, injecting the "$type" discriminator into each object.
func MarshalCommands(commands []Command) ([]byte, error) {
	out := make([]json.RawMessage, 0, len(commands))
	for i, c := range commands {
		if c == nil {
			return nil, fmt.Errorf("command %d is nil", i)
		}
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q command: %w", c.CommandType(), err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, fmt.Errorf("command %q did not marshal to an object: %w", c.CommandType(), err)
		}
		fields["$type"] = json.RawMessage(fmt.Sprintf("%q", c.CommandType()))
		b, err = json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q command: %w", c.CommandType(), err)
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

// RawCommand is a decoded command with its discriminator split out. The build
// side (and the mock build) uses it to dispatch on "$type" before unmarshaling
// the body into a concrete command struct.
type RawCommand struct {
	Type string
	Body json.RawMessage
}

// DecodeCommands parses a JSON command array into raw commands.
func DecodeCommands(data []byte) ([]RawCommand, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode command array: %w", err)
	}
	out := make([]RawCommand, 0, len(items))
	for i, item := range items {
		var disc struct {
			Type string `json:"$type"`
		}
		if err := json.Unmarshal(item, &disc); err != nil {
			return nil, fmt.Errorf("failed to decode command %d: %w", i, err)
		}
		if disc.Type == "" {
			return nil, fmt.Errorf("command %d has no $type", i)
		}
		out = append(out, RawCommand{Type: disc.Type, Body: item})
	}
	return out, nil
}
