package outputdata

import (
	"testing"

	"github.com/simbridge/simbridge/pkg/protocol"
)

func TestParseFramePayloads(t *testing.T) {
	frame := &protocol.Frame{
		Payloads: [][]byte{
			(&Transforms{Objects: []ObjectTransform{
				{ID: 1, Position: protocol.Vector3{X: 0.5, Y: 2, Z: -1}, Rotation: protocol.IdentityQuaternion, Forward: protocol.Vector3{Z: 1}},
			}}).Encode(),
			(&Rigidbodies{Objects: []ObjectRigidbody{
				{ID: 1, Velocity: protocol.Vector3{Y: -9.81}, Sleeping: false},
			}}).Encode(),
		},
		Number: 12,
	}

	payloads, err := ParseAll(frame)
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("got %d payloads, want 2", len(payloads))
	}

	tr, ok := payloads[0].(*Transforms)
	if !ok {
		t.Fatalf("payload 0 is %T, want *Transforms", payloads[0])
	}
	if len(tr.Objects) != 1 || tr.Objects[0].ID != 1 {
		t.Fatalf("transforms = %+v", tr.Objects)
	}
	if got := tr.Objects[0].Position.Y; got != 2 {
		t.Errorf("position.y = %v, want 2", got)
	}

	rb, ok := payloads[1].(*Rigidbodies)
	if !ok {
		t.Fatalf("payload 1 is %T, want *Rigidbodies", payloads[1])
	}
	v, found := rb.Velocity(1)
	if !found {
		t.Fatal("velocity for object 1 not found")
	}
	// float32 on the wire.
	if v.Y > -9.8 || v.Y < -9.82 {
		t.Errorf("velocity.y = %v, want about -9.81", v.Y)
	}
}

func TestParsePayloadUnknownID(t *testing.T) {
	p, err := ParsePayload([]byte("imagPNGDATA"))
	if err != nil {
		t.Fatalf("ParsePayload failed: %v", err)
	}
	raw, ok := p.(Raw)
	if !ok {
		t.Fatalf("payload is %T, want Raw", p)
	}
	if raw.ID != "imag" || string(raw.Body) != "PNGDATA" {
		t.Errorf("raw = %+v", raw)
	}
}

func TestParsePayloadTooShort(t *testing.T) {
	if _, err := ParsePayload([]byte("tr")); err == nil {
		t.Fatal("expected error for short payload")
	}
}

func TestParseTransformsTruncated(t *testing.T) {
	full := (&Transforms{Objects: []ObjectTransform{{ID: 9}}}).Encode()
	if _, err := ParseTransforms(full[:len(full)-3]); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestParseTransformsTrailingBytes(t *testing.T) {
	full := append((&Transforms{}).Encode(), 0xAB)
	if _, err := ParseTransforms(full); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestCollisionRoundTrip(t *testing.T) {
	c := &Collision{
		ColliderID:       3,
		CollideeID:       4,
		State:            CollisionStay,
		RelativeVelocity: protocol.Vector3{X: 1.5},
		Contacts: []Contact{
			{Point: protocol.Vector3{X: 1}, Normal: protocol.Vector3{Y: 1}},
			{Point: protocol.Vector3{Z: 2}, Normal: protocol.Vector3{Y: 1}},
		},
	}
	parsed, err := ParseCollision(c.Encode())
	if err != nil {
		t.Fatalf("ParseCollision failed: %v", err)
	}
	if parsed.State != CollisionStay || parsed.State.String() != "stay" {
		t.Errorf("state = %v", parsed.State)
	}
	if len(parsed.Contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(parsed.Contacts))
	}
	if parsed.ColliderID != 3 || parsed.CollideeID != 4 {
		t.Errorf("ids = %d, %d", parsed.ColliderID, parsed.CollideeID)
	}
}

func TestCollisionInvalidState(t *testing.T) {
	c := &Collision{State: CollisionState(9)}
	if _, err := ParseCollision(c.Encode()); err == nil {
		t.Fatal("expected error for invalid collision state")
	}
}

func TestEnvironmentCollisionFloorFlag(t *testing.T) {
	e := &EnvironmentCollision{
		ObjectID: 11,
		State:    CollisionEnter,
		Floor:    true,
		Contacts: []Contact{{Normal: protocol.Vector3{Y: 1}}},
	}
	parsed, err := ParseEnvironmentCollision(e.Encode())
	if err != nil {
		t.Fatalf("ParseEnvironmentCollision failed: %v", err)
	}
	if !parsed.Floor {
		t.Error("floor flag lost")
	}
	if parsed.ObjectID != 11 || parsed.State != CollisionEnter {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestStaticRobotRoundTrip(t *testing.T) {
	s := &StaticRobot{
		ID:   100,
		Name: "ur5",
		Joints: []StaticJoint{
			{ID: 101, ParentID: -1, Name: "shoulder_link", Type: JointRevolute, Mass: 3.7, Root: true, Immovable: true,
				Drives: []Drive{{Axis: "x", LowerLimit: -360, UpperLimit: 360, ForceLimit: 150, Damping: 10, Stiffness: 1000}}},
			{ID: 102, ParentID: 101, Name: "upper_arm_link", Type: JointRevolute, Mass: 8.4},
		},
		NonMoving: []NonMovingPart{{ID: 110, Name: "base"}},
	}
	parsed, err := ParseStaticRobot(s.Encode())
	if err != nil {
		t.Fatalf("ParseStaticRobot failed: %v", err)
	}
	if parsed.Name != "ur5" || len(parsed.Joints) != 2 || len(parsed.NonMoving) != 1 {
		t.Fatalf("parsed = %+v", parsed)
	}
	j := parsed.Joints[0]
	if !j.Root || !j.Immovable || j.Type != JointRevolute {
		t.Errorf("joint 0 = %+v", j)
	}
	if len(j.Drives) != 1 || j.Drives[0].Axis != "x" {
		t.Errorf("drives = %+v", j.Drives)
	}
}

func TestBoundsSize(t *testing.T) {
	b := ObjectBounds{
		Left:   protocol.Vector3{X: -1},
		Right:  protocol.Vector3{X: 3},
		Top:    protocol.Vector3{Y: 2},
		Bottom: protocol.Vector3{Y: 0},
		Front:  protocol.Vector3{Z: 1},
		Back:   protocol.Vector3{Z: -1},
	}
	size := b.Size()
	if size.X != 4 || size.Y != 2 || size.Z != 2 {
		t.Errorf("size = %+v", size)
	}
}

func TestVersionAndQuit(t *testing.T) {
	v, err := ParseVersion((&Version{EngineVersion: "2022.3", BuildVersion: "1.13.0", Standalone: true}).Encode())
	if err != nil {
		t.Fatalf("ParseVersion failed: %v", err)
	}
	if v.BuildVersion != "1.13.0" || !v.Standalone {
		t.Errorf("version = %+v", v)
	}

	q, err := ParseQuitSignal((&QuitSignal{OK: true}).Encode())
	if err != nil {
		t.Fatalf("ParseQuitSignal failed: %v", err)
	}
	if !q.OK {
		t.Error("quit signal not ok")
	}
}
