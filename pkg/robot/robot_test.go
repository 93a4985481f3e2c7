package robot

import (
	"testing"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

func testStaticRobot() *outputdata.StaticRobot {
	return &outputdata.StaticRobot{
		ID:   100,
		Name: "ur5",
		Joints: []outputdata.StaticJoint{
			{ID: 101, Name: "base", Type: outputdata.JointFixed, Root: true, Immovable: true, Mass: 4},
			{ID: 102, ParentID: 101, Name: "shoulder_link", Type: outputdata.JointRevolute, Mass: 3.7,
				Drives: []outputdata.Drive{{Axis: "x", LowerLimit: -360, UpperLimit: 360, ForceLimit: 150}}},
			{ID: 103, ParentID: 102, Name: "forearm_link", Type: outputdata.JointRevolute, Mass: 2.3,
				Drives: []outputdata.Drive{{Axis: "x", LowerLimit: -180, UpperLimit: 180, ForceLimit: 150}}},
		},
		NonMoving: []outputdata.NonMovingPart{{ID: 110, Name: "base_plate"}},
	}
}

func managerWithRobot(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	err := m.OnFrame(&controller.Result{
		Frame: &protocol.Frame{Number: 1},
		Payloads: []outputdata.Payload{
			testStaticRobot(),
			&outputdata.Robot{
				ID: 100, Immovable: true, Sleeping: false,
				Joints: []outputdata.DynamicJoint{
					{ID: 101},
					{ID: 102, Position: protocol.Vector3{Y: 0.3}, Angles: []float64{45}},
					{ID: 103, Position: protocol.Vector3{Y: 0.7}, Angles: []float64{-10}},
				},
			},
			&outputdata.RobotJointVelocities{
				ID: 100,
				Joints: []outputdata.JointVelocity{
					{ID: 101, Sleeping: true},
					{ID: 102, AngularVelocity: protocol.Vector3{X: 0.5}},
					{ID: 103, Sleeping: true},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("on frame: %v", err)
	}
	return m
}

func TestStaticDescription(t *testing.T) {
	m := managerWithRobot(t)

	s := m.Static(100)
	if s == nil {
		t.Fatal("robot not cached")
	}
	if s.Name != "ur5" || len(s.Joints) != 3 {
		t.Errorf("static = %+v", s)
	}
	if s.RootID != 101 || !s.Immovable {
		t.Errorf("root = %d, immovable = %v", s.RootID, s.Immovable)
	}
	if s.JointIDs["forearm_link"] != 103 {
		t.Errorf("joint ids = %v", s.JointIDs)
	}
	if _, ok := s.NonMoving[110]; !ok {
		t.Error("non-moving part missing")
	}
	if d := s.Joints[102].Drives; len(d) != 1 || d[0].ForceLimit != 150 {
		t.Errorf("drives = %+v", d)
	}
}

func TestJointLookupByName(t *testing.T) {
	m := managerWithRobot(t)

	j, err := m.Joint(100, "shoulder_link")
	if err != nil {
		t.Fatalf("joint: %v", err)
	}
	if j.Position.Y != 0.3 || len(j.Angles) != 1 || j.Angles[0] != 45 {
		t.Errorf("joint state = %+v", j)
	}
	if j.AngularVelocity.X != 0.5 {
		t.Errorf("angular velocity = %+v", j.AngularVelocity)
	}

	if _, err := m.Joint(100, "elbow"); err == nil {
		t.Error("expected an error for an unknown joint")
	}
	if _, err := m.Joint(999, "base"); err == nil {
		t.Error("expected an error for an unknown robot")
	}
}

func TestSleeping(t *testing.T) {
	m := managerWithRobot(t)
	if m.Sleeping() {
		t.Error("robot should be awake")
	}

	err := m.OnFrame(&controller.Result{
		Frame: &protocol.Frame{Number: 2},
		Payloads: []outputdata.Payload{
			&outputdata.Robot{ID: 100, Immovable: true, Sleeping: true},
		},
	})
	if err != nil {
		t.Fatalf("on frame: %v", err)
	}
	if !m.Sleeping() {
		t.Error("robot should be asleep")
	}
}

func TestInitializationCommands(t *testing.T) {
	m := NewManager()
	commands := m.InitializationCommands()
	if len(commands) != 3 {
		t.Fatalf("got %d commands", len(commands))
	}
	if _, ok := commands[0].(*protocol.SendStaticRobots); !ok {
		t.Errorf("first command = %T", commands[0])
	}
}
