package addons

import (
	"sort"
	"sync"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// ObjectStatic is the per-object data that never changes after creation.
type ObjectStatic struct {
	ID                int32
	Name              string
	Category          string
	SegmentationColor [3]uint8
	Mass              float64
	Kinematic         bool
	DynamicFriction   float64
	StaticFriction    float64
	Bounciness        float64
	// Size is the object's extent along each axis.
	Size protocol.Vector3
}

// ObjectManagerConfig selects which dynamic data the manager keeps fresh
// every frame. Static data is always cached.
type ObjectManagerConfig struct {
	Transforms  bool
	Rigidbodies bool
	Bounds      bool
}

// ObjectManager caches per-object state from the build. Attach it to a
// controller and read the maps after each Communicate call.
type ObjectManager struct {
	cfg    ObjectManagerConfig
	buffer controller.CommandBuffer

	mu sync.RWMutex
	// static data, filled once after the first frame.
	statics    map[int32]*ObjectStatic
	segm       map[int32]outputdata.SegmentedObject
	srig       map[int32]outputdata.StaticObjectRigidbody
	categories map[string][3]uint8

	transforms  map[int32]outputdata.ObjectTransform
	rigidbodies map[int32]outputdata.ObjectRigidbody
	bounds      map[int32]outputdata.ObjectBounds
}

// NewObjectManager creates an object manager. With a zero config it caches
// static data only.
func NewObjectManager(cfg ObjectManagerConfig) *ObjectManager {
	m := &ObjectManager{cfg: cfg}
	m.reset()
	return m
}

func (m *ObjectManager) reset() {
	m.statics = make(map[int32]*ObjectStatic)
	m.segm = make(map[int32]outputdata.SegmentedObject)
	m.srig = make(map[int32]outputdata.StaticObjectRigidbody)
	m.categories = make(map[string][3]uint8)
	m.transforms = make(map[int32]outputdata.ObjectTransform)
	m.rigidbodies = make(map[int32]outputdata.ObjectRigidbody)
	m.bounds = make(map[int32]outputdata.ObjectBounds)
}

// Name identifies the add-on in logs.
func (m *ObjectManager) Name() string { return "object_manager" }

// InitializationCommands requests the static data once and subscribes to the
// configured dynamic data.
func (m *ObjectManager) InitializationCommands() []protocol.Command {
	return m.requestCommands()
}

func (m *ObjectManager) requestCommands() []protocol.Command {
	commands := []protocol.Command{
		&protocol.SendSegmentationColors{Frequency: protocol.FrequencyOnce},
		&protocol.SendStaticRigidbodies{Frequency: protocol.FrequencyOnce},
		&protocol.SendCategories{Frequency: protocol.FrequencyOnce},
		&protocol.SendBounds{Frequency: protocol.FrequencyOnce},
	}
	if m.cfg.Transforms {
		commands = append(commands, &protocol.SendTransforms{Frequency: protocol.FrequencyAlways})
	}
	if m.cfg.Rigidbodies {
		commands = append(commands, &protocol.SendRigidbodies{Frequency: protocol.FrequencyAlways})
	}
	if m.cfg.Bounds {
		commands = append(commands, &protocol.SendBounds{Frequency: protocol.FrequencyAlways})
	}
	return commands
}

// Commands returns buffered per-frame commands.
func (m *ObjectManager) Commands() []protocol.Command {
	return m.buffer.Drain()
}

// Reset drops all cached state and re-requests it on the next frame. Call it
// after resetting the scene.
func (m *ObjectManager) Reset() {
	m.mu.Lock()
	m.reset()
	m.mu.Unlock()
	for _, c := range m.requestCommands() {
		m.buffer.Push(c)
	}
}

// OnFrame folds the frame's payloads into the cached maps.
func (m *ObjectManager) OnFrame(result *controller.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range result.Payloads {
		switch v := p.(type) {
		case *outputdata.SegmentationColors:
			for _, o := range v.Objects {
				m.segm[o.ID] = o
			}
		case *outputdata.StaticRigidbodies:
			for _, o := range v.Objects {
				m.srig[o.ID] = o
			}
		case *outputdata.Categories:
			for _, c := range v.Categories {
				m.categories[c.Name] = c.Color
			}
		case *outputdata.Transforms:
			for _, o := range v.Objects {
				m.transforms[o.ID] = o
			}
		case *outputdata.Rigidbodies:
			for _, o := range v.Objects {
				m.rigidbodies[o.ID] = o
			}
		case *outputdata.Bounds:
			for _, o := range v.Objects {
				m.bounds[o.ID] = o
			}
		}
	}
	m.buildStatics()
	return nil
}

// buildStatics fills statics for every object with both halves of its
// static data. Bounds may lag a frame; size is patched in when it arrives.
func (m *ObjectManager) buildStatics() {
	for id, seg := range m.segm {
		rig, ok := m.srig[id]
		if !ok {
			continue
		}
		s, ok := m.statics[id]
		if !ok {
			s = &ObjectStatic{ID: id}
			m.statics[id] = s
		}
		s.Name = seg.Name
		s.Category = seg.Category
		s.SegmentationColor = seg.Color
		s.Mass = rig.Mass
		s.Kinematic = rig.Kinematic
		s.DynamicFriction = rig.DynamicFriction
		s.StaticFriction = rig.StaticFriction
		s.Bounciness = rig.Bounciness
		if b, ok := m.bounds[id]; ok {
			s.Size = b.Size()
		}
	}
}

// Static returns the static data for an object, or nil if not yet cached.
func (m *ObjectManager) Static(id int32) *ObjectStatic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statics[id]
}

// IDs returns the known object IDs in ascending order.
func (m *ObjectManager) IDs() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int32, 0, len(m.statics))
	for id := range m.statics {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Transform returns the latest transform for an object.
func (m *ObjectManager) Transform(id int32) (outputdata.ObjectTransform, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transforms[id]
	return t, ok
}

// Rigidbody returns the latest rigidbody state for an object.
func (m *ObjectManager) Rigidbody(id int32) (outputdata.ObjectRigidbody, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rigidbodies[id]
	return r, ok
}

// Bounds returns the latest bounds for an object.
func (m *ObjectManager) Bounds(id int32) (outputdata.ObjectBounds, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bounds[id]
	return b, ok
}

// CategoryColor returns the segmentation color assigned to a category.
func (m *ObjectManager) CategoryColor(name string) ([3]uint8, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[name]
	return c, ok
}
