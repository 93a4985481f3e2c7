package outputdata

import (
	"fmt"

	"github.com/simbridge/simbridge/pkg/protocol"
)

// JointType is the articulation type of a robot joint.
type JointType uint8

const (
	// JointFixed cannot move relative to its parent.
	JointFixed JointType = iota
	// JointRevolute rotates around a single axis.
	JointRevolute
	// JointPrismatic slides along a single axis.
	JointPrismatic
	// JointSpherical rotates around up to three axes.
	JointSpherical
)

// String returns the joint type name used by the build.
func (j JointType) String() string {
	switch j {
	case JointFixed:
		return "fixed"
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointSpherical:
		return "spherical"
	default:
		return fmt.Sprintf("joint_type(%d)", uint8(j))
	}
}

func parseJointType(v uint8) (JointType, error) {
	if v > uint8(JointSpherical) {
		return 0, fmt.Errorf("invalid joint type %d", v)
	}
	return JointType(v), nil
}

// Drive is a motorized degree of freedom on a joint.
type Drive struct {
	Axis       string
	LowerLimit float64
	UpperLimit float64
	ForceLimit float64
	Damping    float64
	Stiffness  float64
}

// StaticJoint is the immutable description of one robot joint.
type StaticJoint struct {
	ID        int32
	ParentID  int32
	Name      string
	Type      JointType
	Color     [3]uint8
	Mass      float64
	Root      bool
	Immovable bool
	Drives    []Drive
}

// NonMovingPart is a robot body part that is not articulated.
type NonMovingPart struct {
	ID    int32
	Name  string
	Color [3]uint8
}

// StaticRobot is the immutable description of one robot. The build sends it
// once, in response to a send_static_robots command.
type StaticRobot struct {
	ID        int32
	Name      string
	Joints    []StaticJoint
	NonMoving []NonMovingPart
}

// TypeID implements Payload.
func (*StaticRobot) TypeID() string { return IDStaticRobot }

// ParseStaticRobot decodes a "srob" payload.
func ParseStaticRobot(payload []byte) (*StaticRobot, error) {
	r, err := newReader(payload, IDStaticRobot)
	if err != nil {
		return nil, err
	}
	s := &StaticRobot{
		ID:   r.i32(),
		Name: r.str(),
	}
	numJoints := r.count()
	s.Joints = make([]StaticJoint, 0, numJoints)
	var typeErr error
	for i := 0; i < numJoints; i++ {
		j := StaticJoint{
			ID:       r.i32(),
			ParentID: r.i32(),
			Name:     r.str(),
		}
		jt, err := parseJointType(r.u8())
		if err != nil && typeErr == nil {
			typeErr = err
		}
		j.Type = jt
		j.Color = r.rgb()
		j.Mass = r.f32()
		j.Root = r.bool()
		j.Immovable = r.bool()
		numDrives := r.count()
		j.Drives = make([]Drive, 0, numDrives)
		for k := 0; k < numDrives; k++ {
			j.Drives = append(j.Drives, Drive{
				Axis:       r.str(),
				LowerLimit: r.f32(),
				UpperLimit: r.f32(),
				ForceLimit: r.f32(),
				Damping:    r.f32(),
				Stiffness:  r.f32(),
			})
		}
		s.Joints = append(s.Joints, j)
	}
	numParts := r.count()
	s.NonMoving = make([]NonMovingPart, 0, numParts)
	for i := 0; i < numParts; i++ {
		s.NonMoving = append(s.NonMoving, NonMovingPart{
			ID:    r.i32(),
			Name:  r.str(),
			Color: r.rgb(),
		})
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	if typeErr != nil {
		return nil, typeErr
	}
	return s, nil
}

// Encode serializes the payload in build wire layout.
func (s *StaticRobot) Encode() []byte {
	w := newWriter(IDStaticRobot)
	w.i32(s.ID)
	w.str(s.Name)
	w.u32(uint32(len(s.Joints)))
	for _, j := range s.Joints {
		w.i32(j.ID)
		w.i32(j.ParentID)
		w.str(j.Name)
		w.u8(uint8(j.Type))
		w.rgb(j.Color)
		w.f32(j.Mass)
		w.bool(j.Root)
		w.bool(j.Immovable)
		w.u32(uint32(len(j.Drives)))
		for _, d := range j.Drives {
			w.str(d.Axis)
			w.f32(d.LowerLimit)
			w.f32(d.UpperLimit)
			w.f32(d.ForceLimit)
			w.f32(d.Damping)
			w.f32(d.Stiffness)
		}
	}
	w.u32(uint32(len(s.NonMoving)))
	for _, p := range s.NonMoving {
		w.i32(p.ID)
		w.str(p.Name)
		w.rgb(p.Color)
	}
	return w.bytes()
}

// DynamicJoint is the per-frame state of one robot joint.
type DynamicJoint struct {
	ID       int32
	Position protocol.Vector3
	Angles   []float64
}

// Robot is the per-frame state of one robot.
type Robot struct {
	ID        int32
	Immovable bool
	Sleeping  bool
	Joints    []DynamicJoint
}

// TypeID implements Payload.
func (*Robot) TypeID() string { return IDRobot }

// JointIDs returns the IDs of every joint in the payload.
func (r *Robot) JointIDs() []int32 {
	ids := make([]int32, 0, len(r.Joints))
	for _, j := range r.Joints {
		ids = append(ids, j.ID)
	}
	return ids
}

// ParseRobot decodes a "robo" payload.
func ParseRobot(payload []byte) (*Robot, error) {
	r, err := newReader(payload, IDRobot)
	if err != nil {
		return nil, err
	}
	rb := &Robot{
		ID:        r.i32(),
		Immovable: r.bool(),
		Sleeping:  r.bool(),
	}
	numJoints := r.count()
	rb.Joints = make([]DynamicJoint, 0, numJoints)
	for i := 0; i < numJoints; i++ {
		j := DynamicJoint{
			ID:       r.i32(),
			Position: r.vec3(),
		}
		numAngles := r.count()
		j.Angles = make([]float64, 0, numAngles)
		for k := 0; k < numAngles; k++ {
			j.Angles = append(j.Angles, r.f32())
		}
		rb.Joints = append(rb.Joints, j)
	}
	return rb, r.finish()
}

// Encode serializes the payload in build wire layout.
func (rb *Robot) Encode() []byte {
	w := newWriter(IDRobot)
	w.i32(rb.ID)
	w.bool(rb.Immovable)
	w.bool(rb.Sleeping)
	w.u32(uint32(len(rb.Joints)))
	for _, j := range rb.Joints {
		w.i32(j.ID)
		w.vec3(j.Position)
		w.u32(uint32(len(j.Angles)))
		for _, a := range j.Angles {
			w.f32(a)
		}
	}
	return w.bytes()
}

// JointVelocity is the per-frame velocity of one robot joint.
type JointVelocity struct {
	ID              int32
	Velocity        protocol.Vector3
	AngularVelocity protocol.Vector3
	Sleeping        bool
}

// RobotJointVelocities holds per-joint velocity data for one robot.
type RobotJointVelocities struct {
	ID     int32
	Joints []JointVelocity
}

// TypeID implements Payload.
func (*RobotJointVelocities) TypeID() string { return IDRobotJointVelocities }

// ParseRobotJointVelocities decodes a "jvel" payload.
func ParseRobotJointVelocities(payload []byte) (*RobotJointVelocities, error) {
	r, err := newReader(payload, IDRobotJointVelocities)
	if err != nil {
		return nil, err
	}
	v := &RobotJointVelocities{ID: r.i32()}
	n := r.count()
	v.Joints = make([]JointVelocity, 0, n)
	for i := 0; i < n; i++ {
		v.Joints = append(v.Joints, JointVelocity{
			ID:              r.i32(),
			Velocity:        r.vec3(),
			AngularVelocity: r.vec3(),
			Sleeping:        r.bool(),
		})
	}
	return v, r.finish()
}

// Encode serializes the payload in build wire layout.
func (v *RobotJointVelocities) Encode() []byte {
	w := newWriter(IDRobotJointVelocities)
	w.i32(v.ID)
	w.u32(uint32(len(v.Joints)))
	for _, j := range v.Joints {
		w.i32(j.ID)
		w.vec3(j.Velocity)
		w.vec3(j.AngularVelocity)
		w.bool(j.Sleeping)
	}
	return w.bytes()
}
