package outputdata

import (
	"fmt"

	"github.com/simbridge/simbridge/pkg/protocol"
)

// CollisionState is the phase of a collision event.
type CollisionState uint8

const (
	// CollisionEnter is the first frame two colliders touch.
	CollisionEnter CollisionState = iota
	// CollisionStay is a frame on which colliders remain in contact.
	CollisionStay
	// CollisionExit is the first frame after contact ends.
	CollisionExit
)

// String returns the state name used by the build.
func (s CollisionState) String() string {
	switch s {
	case CollisionEnter:
		return "enter"
	case CollisionStay:
		return "stay"
	case CollisionExit:
		return "exit"
	default:
		return fmt.Sprintf("collision_state(%d)", uint8(s))
	}
}

func parseCollisionState(v uint8) (CollisionState, error) {
	if v > uint8(CollisionExit) {
		return 0, fmt.Errorf("invalid collision state %d", v)
	}
	return CollisionState(v), nil
}

// Contact is a single contact point in a collision.
type Contact struct {
	Point  protocol.Vector3
	Normal protocol.Vector3
}

// Collision is a collision event between two objects.
type Collision struct {
	ColliderID       int32
	CollideeID       int32
	State            CollisionState
	RelativeVelocity protocol.Vector3
	Contacts         []Contact
}

// TypeID implements Payload.
func (*Collision) TypeID() string { return IDCollision }

// ParseCollision decodes a "coll" payload.
func ParseCollision(payload []byte) (*Collision, error) {
	r, err := newReader(payload, IDCollision)
	if err != nil {
		return nil, err
	}
	c := &Collision{
		ColliderID: r.i32(),
		CollideeID: r.i32(),
	}
	state, stateErr := parseCollisionState(r.u8())
	c.State = state
	c.RelativeVelocity = r.vec3()
	n := r.count()
	c.Contacts = make([]Contact, 0, n)
	for i := 0; i < n; i++ {
		c.Contacts = append(c.Contacts, Contact{Point: r.vec3(), Normal: r.vec3()})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	if stateErr != nil {
		return nil, stateErr
	}
	return c, nil
}

// Encode serializes the payload in build wire layout.
func (c *Collision) Encode() []byte {
	w := newWriter(IDCollision)
	w.i32(c.ColliderID)
	w.i32(c.CollideeID)
	w.u8(uint8(c.State))
	w.vec3(c.RelativeVelocity)
	w.u32(uint32(len(c.Contacts)))
	for _, ct := range c.Contacts {
		w.vec3(ct.Point)
		w.vec3(ct.Normal)
	}
	return w.bytes()
}

// EnvironmentCollision is a collision event between an object and the scene
// environment (the floor or a wall).
type EnvironmentCollision struct {
	ObjectID int32
	State    CollisionState
	Floor    bool
	Contacts []Contact
}

// TypeID implements Payload.
func (*EnvironmentCollision) TypeID() string { return IDEnvironmentCollision }

// ParseEnvironmentCollision decodes an "enco" payload.
func ParseEnvironmentCollision(payload []byte) (*EnvironmentCollision, error) {
	r, err := newReader(payload, IDEnvironmentCollision)
	if err != nil {
		return nil, err
	}
	e := &EnvironmentCollision{ObjectID: r.i32()}
	state, stateErr := parseCollisionState(r.u8())
	e.State = state
	e.Floor = r.bool()
	n := r.count()
	e.Contacts = make([]Contact, 0, n)
	for i := 0; i < n; i++ {
		e.Contacts = append(e.Contacts, Contact{Point: r.vec3(), Normal: r.vec3()})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	if stateErr != nil {
		return nil, stateErr
	}
	return e, nil
}

// Encode serializes the payload in build wire layout.
func (e *EnvironmentCollision) Encode() []byte {
	w := newWriter(IDEnvironmentCollision)
	w.i32(e.ObjectID)
	w.u8(uint8(e.State))
	w.bool(e.Floor)
	w.u32(uint32(len(e.Contacts)))
	for _, ct := range e.Contacts {
		w.vec3(ct.Point)
		w.vec3(ct.Normal)
	}
	return w.bytes()
}
