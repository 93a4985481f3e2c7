package outputdata

import (
	"fmt"

	"github.com/simbridge/simbridge/pkg/protocol"
)

// Payload type identifiers emitted by the build.
const (
	IDTransforms           = "tran"
	IDRigidbodies          = "rigi"
	IDStaticRigidbodies    = "srig"
	IDBounds               = "boun"
	IDCollision            = "coll"
	IDEnvironmentCollision = "enco"
	IDSegmentationColors   = "segm"
	IDCategories           = "cate"
	IDStaticRobot          = "srob"
	IDRobot                = "robo"
	IDRobotJointVelocities = "jvel"
	IDSceneRegions         = "sreg"
	IDAudioSources         = "audi"
	IDVersion              = "vers"
	IDLogMessage           = "logm"
	IDQuitSignal           = "quit"
)

// Payload is a parsed output data payload.
type Payload interface {
	// TypeID returns the payload's 4-byte type identifier.
	TypeID() string
}

// Raw holds a payload whose type identifier this client does not know.
// Newer builds emit payload types older clients can skip over.
type Raw struct {
	ID   string
	Body []byte
}

// TypeID implements Payload.
func (r Raw) TypeID() string { return r.ID }

var parsers = map[string]func([]byte) (Payload, error){
	IDTransforms:           func(b []byte) (Payload, error) { return ParseTransforms(b) },
	IDRigidbodies:          func(b []byte) (Payload, error) { return ParseRigidbodies(b) },
	IDStaticRigidbodies:    func(b []byte) (Payload, error) { return ParseStaticRigidbodies(b) },
	IDBounds:               func(b []byte) (Payload, error) { return ParseBounds(b) },
	IDCollision:            func(b []byte) (Payload, error) { return ParseCollision(b) },
	IDEnvironmentCollision: func(b []byte) (Payload, error) { return ParseEnvironmentCollision(b) },
	IDSegmentationColors:   func(b []byte) (Payload, error) { return ParseSegmentationColors(b) },
	IDCategories:           func(b []byte) (Payload, error) { return ParseCategories(b) },
	IDStaticRobot:          func(b []byte) (Payload, error) { return ParseStaticRobot(b) },
	IDRobot:                func(b []byte) (Payload, error) { return ParseRobot(b) },
	IDRobotJointVelocities: func(b []byte) (Payload, error) { return ParseRobotJointVelocities(b) },
	IDSceneRegions:         func(b []byte) (Payload, error) { return ParseSceneRegions(b) },
	IDAudioSources:         func(b []byte) (Payload, error) { return ParseAudioSources(b) },
	IDVersion:              func(b []byte) (Payload, error) { return ParseVersion(b) },
	IDLogMessage:           func(b []byte) (Payload, error) { return ParseLogMessage(b) },
	IDQuitSignal:           func(b []byte) (Payload, error) { return ParseQuitSignal(b) },
}

// ParsePayload decodes a single payload into its typed form. Payloads with an
// unknown type identifier are returned as Raw.
func ParsePayload(payload []byte) (Payload, error) {
	id := protocol.PayloadID(payload)
	if id == "" {
		return nil, fmt.Errorf("payload too short for a type id: %d bytes", len(payload))
	}
	parse, ok := parsers[id]
	if !ok {
		return Raw{ID: id, Body: payload[protocol.TypeIDLen:]}, nil
	}
	p, err := parse(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q payload: %w", id, err)
	}
	return p, nil
}

// ParseAll decodes every payload in a frame.
func ParseAll(frame *protocol.Frame) ([]Payload, error) {
	out := make([]Payload, 0, len(frame.Payloads))
	for i, p := range frame.Payloads {
		parsed, err := ParsePayload(p)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}
