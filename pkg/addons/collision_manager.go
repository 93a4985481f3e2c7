package addons

import (
	"sync"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// ObjectPair identifies an object-object collision. Lower is always the
// smaller ID, so a pair looks the same regardless of which body is the
// collider.
type ObjectPair struct {
	Lower  int32
	Higher int32
}

// NewObjectPair orders two object IDs into a pair key.
func NewObjectPair(a, b int32) ObjectPair {
	if a > b {
		a, b = b, a
	}
	return ObjectPair{Lower: a, Higher: b}
}

// CollisionManager subscribes to collision events and exposes the current
// frame's collisions keyed by the objects involved. State from previous
// frames is dropped each frame.
type CollisionManager struct {
	buffer controller.CommandBuffer

	mu  sync.RWMutex
	obj map[ObjectPair]*outputdata.Collision
	env map[int32]*outputdata.EnvironmentCollision
}

// NewCollisionManager creates a collision manager.
func NewCollisionManager() *CollisionManager {
	return &CollisionManager{
		obj: make(map[ObjectPair]*outputdata.Collision),
		env: make(map[int32]*outputdata.EnvironmentCollision),
	}
}

// Name identifies the add-on in logs.
func (m *CollisionManager) Name() string { return "collision_manager" }

// InitializationCommands subscribes to all collision events.
func (m *CollisionManager) InitializationCommands() []protocol.Command {
	return []protocol.Command{
		&protocol.SendCollisions{
			Enter: true, Stay: true, Exit: true,
			CollisionTypes: []string{
				protocol.CollisionTypeObject,
				protocol.CollisionTypeEnvironment,
			},
		},
	}
}

// Commands returns buffered per-frame commands.
func (m *CollisionManager) Commands() []protocol.Command {
	return m.buffer.Drain()
}

// OnFrame replaces the cached collisions with this frame's events.
func (m *CollisionManager) OnFrame(result *controller.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.obj = make(map[ObjectPair]*outputdata.Collision)
	m.env = make(map[int32]*outputdata.EnvironmentCollision)
	for _, p := range result.Payloads {
		switch v := p.(type) {
		case *outputdata.Collision:
			m.obj[NewObjectPair(v.ColliderID, v.CollideeID)] = v
		case *outputdata.EnvironmentCollision:
			m.env[v.ObjectID] = v
		}
	}
	return nil
}

// Object returns this frame's collision between two objects, if any.
func (m *CollisionManager) Object(a, b int32) (*outputdata.Collision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.obj[NewObjectPair(a, b)]
	return c, ok
}

// Objects returns all of this frame's object-object collisions.
func (m *CollisionManager) Objects() map[ObjectPair]*outputdata.Collision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[ObjectPair]*outputdata.Collision, len(m.obj))
	for k, v := range m.obj {
		out[k] = v
	}
	return out
}

// Environment returns this frame's environment collision for an object.
func (m *CollisionManager) Environment(id int32) (*outputdata.EnvironmentCollision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.env[id]
	return e, ok
}

// Environments returns all of this frame's environment collisions.
func (m *CollisionManager) Environments() map[int32]*outputdata.EnvironmentCollision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int32]*outputdata.EnvironmentCollision, len(m.env))
	for k, v := range m.env {
		out[k] = v
	}
	return out
}
