package outputdata

import "github.com/simbridge/simbridge/pkg/protocol"

// ObjectTransform is the position, rotation, and forward direction of one
// object on one frame.
type ObjectTransform struct {
	ID       int32
	Position protocol.Vector3
	Rotation protocol.Quaternion
	Forward  protocol.Vector3
}

// Transforms holds per-object transform data for a frame.
type Transforms struct {
	Objects []ObjectTransform
}

// TypeID implements Payload.
func (*Transforms) TypeID() string { return IDTransforms }

// ParseTransforms decodes a "tran" payload.
func ParseTransforms(payload []byte) (*Transforms, error) {
	r, err := newReader(payload, IDTransforms)
	if err != nil {
		return nil, err
	}
	n := r.count()
	t := &Transforms{Objects: make([]ObjectTransform, 0, n)}
	for i := 0; i < n; i++ {
		t.Objects = append(t.Objects, ObjectTransform{
			ID:       r.i32(),
			Position: r.vec3(),
			Rotation: r.quat(),
			Forward:  r.vec3(),
		})
	}
	return t, r.finish()
}

// Encode serializes the payload in build wire layout.
func (t *Transforms) Encode() []byte {
	w := newWriter(IDTransforms)
	w.u32(uint32(len(t.Objects)))
	for _, o := range t.Objects {
		w.i32(o.ID)
		w.vec3(o.Position)
		w.quat(o.Rotation)
		w.vec3(o.Forward)
	}
	return w.bytes()
}

// ObjectRigidbody is the dynamic rigidbody state of one object on one frame.
type ObjectRigidbody struct {
	ID              int32
	Velocity        protocol.Vector3
	AngularVelocity protocol.Vector3
	Sleeping        bool
}

// Rigidbodies holds per-object rigidbody state for a frame.
type Rigidbodies struct {
	Objects []ObjectRigidbody
}

// TypeID implements Payload.
func (*Rigidbodies) TypeID() string { return IDRigidbodies }

// ParseRigidbodies decodes a "rigi" payload.
func ParseRigidbodies(payload []byte) (*Rigidbodies, error) {
	r, err := newReader(payload, IDRigidbodies)
	if err != nil {
		return nil, err
	}
	n := r.count()
	rb := &Rigidbodies{Objects: make([]ObjectRigidbody, 0, n)}
	for i := 0; i < n; i++ {
		rb.Objects = append(rb.Objects, ObjectRigidbody{
			ID:              r.i32(),
			Velocity:        r.vec3(),
			AngularVelocity: r.vec3(),
			Sleeping:        r.bool(),
		})
	}
	return rb, r.finish()
}

// Encode serializes the payload in build wire layout.
func (rb *Rigidbodies) Encode() []byte {
	w := newWriter(IDRigidbodies)
	w.u32(uint32(len(rb.Objects)))
	for _, o := range rb.Objects {
		w.i32(o.ID)
		w.vec3(o.Velocity)
		w.vec3(o.AngularVelocity)
		w.bool(o.Sleeping)
	}
	return w.bytes()
}

// Velocity returns the velocity of the object with the given ID.
func (rb *Rigidbodies) Velocity(id int32) (protocol.Vector3, bool) {
	for _, o := range rb.Objects {
		if o.ID == id {
			return o.Velocity, true
		}
	}
	return protocol.Vector3{}, false
}

// Mass data and physic materials never change during a simulation, so the
// build sends them once rather than per frame.

// StaticObjectRigidbody is the immutable rigidbody data of one object.
type StaticObjectRigidbody struct {
	ID              int32
	Mass            float64
	Kinematic       bool
	DynamicFriction float64
	StaticFriction  float64
	Bounciness      float64
}

// StaticRigidbodies holds immutable rigidbody data for every object.
type StaticRigidbodies struct {
	Objects []StaticObjectRigidbody
}

// TypeID implements Payload.
func (*StaticRigidbodies) TypeID() string { return IDStaticRigidbodies }

// ParseStaticRigidbodies decodes a "srig" payload.
func ParseStaticRigidbodies(payload []byte) (*StaticRigidbodies, error) {
	r, err := newReader(payload, IDStaticRigidbodies)
	if err != nil {
		return nil, err
	}
	n := r.count()
	s := &StaticRigidbodies{Objects: make([]StaticObjectRigidbody, 0, n)}
	for i := 0; i < n; i++ {
		s.Objects = append(s.Objects, StaticObjectRigidbody{
			ID:              r.i32(),
			Mass:            r.f32(),
			Kinematic:       r.bool(),
			DynamicFriction: r.f32(),
			StaticFriction:  r.f32(),
			Bounciness:      r.f32(),
		})
	}
	return s, r.finish()
}

// Encode serializes the payload in build wire layout.
func (s *StaticRigidbodies) Encode() []byte {
	w := newWriter(IDStaticRigidbodies)
	w.u32(uint32(len(s.Objects)))
	for _, o := range s.Objects {
		w.i32(o.ID)
		w.f32(o.Mass)
		w.bool(o.Kinematic)
		w.f32(o.DynamicFriction)
		w.f32(o.StaticFriction)
		w.f32(o.Bounciness)
	}
	return w.bytes()
}

// Mass returns the mass of the object with the given ID.
func (s *StaticRigidbodies) Mass(id int32) (float64, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o.Mass, true
		}
	}
	return 0, false
}

// ObjectBounds are the world-space extremity points of one object.
type ObjectBounds struct {
	ID     int32
	Front  protocol.Vector3
	Back   protocol.Vector3
	Left   protocol.Vector3
	Right  protocol.Vector3
	Top    protocol.Vector3
	Bottom protocol.Vector3
	Center protocol.Vector3
}

// Size returns the extent of the bounds along each axis.
func (b ObjectBounds) Size() protocol.Vector3 {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	return protocol.Vector3{
		X: abs(b.Right.X - b.Left.X),
		Y: abs(b.Top.Y - b.Bottom.Y),
		Z: abs(b.Front.Z - b.Back.Z),
	}
}

// Bounds holds per-object bounds for a frame.
type Bounds struct {
	Objects []ObjectBounds
}

// TypeID implements Payload.
func (*Bounds) TypeID() string { return IDBounds }

// ParseBounds decodes a "boun" payload.
func ParseBounds(payload []byte) (*Bounds, error) {
	r, err := newReader(payload, IDBounds)
	if err != nil {
		return nil, err
	}
	n := r.count()
	b := &Bounds{Objects: make([]ObjectBounds, 0, n)}
	for i := 0; i < n; i++ {
		b.Objects = append(b.Objects, ObjectBounds{
			ID:     r.i32(),
			Front:  r.vec3(),
			Back:   r.vec3(),
			Left:   r.vec3(),
			Right:  r.vec3(),
			Top:    r.vec3(),
			Bottom: r.vec3(),
			Center: r.vec3(),
		})
	}
	return b, r.finish()
}

// Encode serializes the payload in build wire layout.
func (b *Bounds) Encode() []byte {
	w := newWriter(IDBounds)
	w.u32(uint32(len(b.Objects)))
	for _, o := range b.Objects {
		w.i32(o.ID)
		w.vec3(o.Front)
		w.vec3(o.Back)
		w.vec3(o.Left)
		w.vec3(o.Right)
		w.vec3(o.Top)
		w.vec3(o.Bottom)
		w.vec3(o.Center)
	}
	return w.bytes()
}
