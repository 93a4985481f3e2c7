// Package robot tracks robot state reported by the build: the static
// description of each robot's joint hierarchy and the per-frame dynamic
// joint data.
package robot

import (
	"fmt"
	"sync"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// Static is the digested static description of one robot.
type Static struct {
	ID   int32
	Name string
	// Joints by joint ID.
	Joints map[int32]outputdata.StaticJoint
	// JointIDs by joint name.
	JointIDs map[string]int32
	// NonMoving body parts by ID.
	NonMoving map[int32]outputdata.NonMovingPart
	// RootID is the ID of the root joint.
	RootID int32
	// Immovable reports whether the robot's root is fixed in place.
	Immovable bool
}

func newStatic(src *outputdata.StaticRobot) *Static {
	s := &Static{
		ID:        src.ID,
		Name:      src.Name,
		Joints:    make(map[int32]outputdata.StaticJoint, len(src.Joints)),
		JointIDs:  make(map[string]int32, len(src.Joints)),
		NonMoving: make(map[int32]outputdata.NonMovingPart, len(src.NonMoving)),
	}
	for _, j := range src.Joints {
		s.Joints[j.ID] = j
		s.JointIDs[j.Name] = j.ID
		if j.Root {
			s.RootID = j.ID
			s.Immovable = j.Immovable
		}
	}
	for _, p := range src.NonMoving {
		s.NonMoving[p.ID] = p
	}
	return s
}

// JointState is the latest dynamic data for one joint.
type JointState struct {
	Position        protocol.Vector3
	Angles          []float64
	Velocity        protocol.Vector3
	AngularVelocity protocol.Vector3
	Sleeping        bool
}

// State is a robot's latest dynamic data.
type State struct {
	Immovable bool
	Sleeping  bool
	Joints    map[int32]JointState
}

// Manager is a controller add-on that keeps a view of every robot in the
// scene. Attach it before the first frame; it requests static data once and
// dynamic data every frame.
type Manager struct {
	buffer controller.CommandBuffer

	mu      sync.RWMutex
	statics map[int32]*Static
	states  map[int32]*State
}

// NewManager creates a robot manager.
func NewManager() *Manager {
	return &Manager{
		statics: make(map[int32]*Static),
		states:  make(map[int32]*State),
	}
}

// Name identifies the add-on in logs.
func (m *Manager) Name() string { return "robot_manager" }

// InitializationCommands requests robot data from the build.
func (m *Manager) InitializationCommands() []protocol.Command {
	return []protocol.Command{
		&protocol.SendStaticRobots{Frequency: protocol.FrequencyOnce},
		&protocol.SendRobots{Frequency: protocol.FrequencyAlways},
		&protocol.SendRobotJointVelocities{Frequency: protocol.FrequencyAlways},
	}
}

// Commands returns buffered per-frame commands.
func (m *Manager) Commands() []protocol.Command {
	return m.buffer.Drain()
}

// OnFrame folds robot payloads into the cached view.
func (m *Manager) OnFrame(result *controller.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range result.Payloads {
		switch v := p.(type) {
		case *outputdata.StaticRobot:
			m.statics[v.ID] = newStatic(v)
		case *outputdata.Robot:
			state := m.state(v.ID)
			state.Immovable = v.Immovable
			state.Sleeping = v.Sleeping
			for _, j := range v.Joints {
				js := state.Joints[j.ID]
				js.Position = j.Position
				js.Angles = j.Angles
				state.Joints[j.ID] = js
			}
		case *outputdata.RobotJointVelocities:
			state := m.state(v.ID)
			for _, j := range v.Joints {
				js := state.Joints[j.ID]
				js.Velocity = j.Velocity
				js.AngularVelocity = j.AngularVelocity
				js.Sleeping = j.Sleeping
				state.Joints[j.ID] = js
			}
		}
	}
	return nil
}

func (m *Manager) state(id int32) *State {
	s, ok := m.states[id]
	if !ok {
		s = &State{Joints: make(map[int32]JointState)}
		m.states[id] = s
	}
	return s
}

// Static returns a robot's static description, or nil if not yet reported.
func (m *Manager) Static(id int32) *Static {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statics[id]
}

// State returns a robot's latest dynamic data, or nil before the first frame
// that reported it.
func (m *Manager) State(id int32) *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[id]
}

// Joint resolves a joint by name and returns its latest state.
func (m *Manager) Joint(robotID int32, name string) (JointState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	static, ok := m.statics[robotID]
	if !ok {
		return JointState{}, fmt.Errorf("no robot with id %d", robotID)
	}
	jointID, ok := static.JointIDs[name]
	if !ok {
		return JointState{}, fmt.Errorf("robot %d has no joint %q", robotID, name)
	}
	state, ok := m.states[robotID]
	if !ok {
		return JointState{}, fmt.Errorf("no dynamic data for robot %d yet", robotID)
	}
	return state.Joints[jointID], nil
}

// Sleeping reports whether every known robot is asleep. True when no robots
// have been reported.
func (m *Manager) Sleeping() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.states {
		if !s.Sleeping {
			return false
		}
	}
	return true
}
