// Package mockbuild is a deterministic stand-in for a real simulation build.
// It speaks the full frame protocol and implements just enough scene
// semantics (fixed-step kinematics, floor and object contact events, data
// request frequencies) to exercise a controller end to end without the real
// engine.
package mockbuild

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// Timestep is the fixed physics step applied per frame, matching the
// real engine's default.
const Timestep = 0.02

const gravity = -9.81

// BuildVersion reported in response to send_version.
const BuildVersion = "mock-1.0.0"

// object is the mock build's view of one scene object.
type object struct {
	id       int32
	name     string
	category string
	scale    protocol.Vector3
	position protocol.Vector3
	rotation protocol.Quaternion
	velocity protocol.Vector3

	mass            float64
	kinematic       bool
	useGravity      bool
	dynamicFriction float64
	staticFriction  float64
	bounciness      float64

	onFloor bool
}

// half returns the object's half extent along each axis. Models are unit
// cubes scaled by the object's scale factor.
func (o *object) half() protocol.Vector3 {
	return protocol.Vector3{X: o.scale.X / 2, Y: o.scale.Y / 2, Z: o.scale.Z / 2}
}

type pairKey struct{ a, b int32 }

func makePair(a, b int32) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

type collisionSub struct {
	enter bool
	stay  bool
	exit  bool
	obj   bool
	env   bool
}

// Build holds the mock scene. It is driven one frame at a time by Step and
// is not safe for concurrent use; Serve owns it when serving a connection.
type Build struct {
	frame   uint64
	room    struct{ width, length int }
	objects map[int32]*object
	order   []int32
	robots  []*outputdata.StaticRobot

	frequencies map[string]protocol.Frequency
	collisions  *collisionSub

	objContacts map[pairKey]bool
	playing     map[int32]int

	terminated bool
}

// New creates an empty mock build.
func New() *Build {
	return &Build{
		objects:     make(map[int32]*object),
		frequencies: make(map[string]protocol.Frequency),
		objContacts: make(map[pairKey]bool),
		playing:     make(map[int32]int),
	}
}

// AddRobot seeds a robot fixture. The mock build does not articulate it; it
// only reports the static data and a constant dynamic pose.
func (b *Build) AddRobot(r *outputdata.StaticRobot) {
	b.robots = append(b.robots, r)
}

// Terminated reports whether a terminate command has been processed.
func (b *Build) Terminated() bool { return b.terminated }

// Step applies one command list and produces the response frame.
func (b *Build) Step(commands []protocol.RawCommand) (*protocol.Frame, error) {
	b.frame++
	frame := &protocol.Frame{Number: b.frame}

	// once requests collected during this step.
	once := map[string]bool{}
	var sendVersion, sendRegions bool

	for _, cmd := range commands {
		if err := b.apply(cmd, once, &sendVersion, &sendRegions, frame); err != nil {
			frame.Payloads = append(frame.Payloads, (&outputdata.LogMessage{
				Level:      outputdata.LogWarning,
				Message:    err.Error(),
				ObjectType: cmd.Type,
			}).Encode())
		}
	}

	if b.terminated {
		frame.Payloads = append(frame.Payloads, (&outputdata.QuitSignal{OK: true}).Encode())
		return frame, nil
	}

	envEvents, objEvents := b.integrate()

	if sendVersion {
		frame.Payloads = append(frame.Payloads, (&outputdata.Version{
			EngineVersion: "2022.3.0",
			BuildVersion:  BuildVersion,
			Standalone:    true,
		}).Encode())
	}
	if sendRegions {
		frame.Payloads = append(frame.Payloads, b.sceneRegions().Encode())
	}

	want := func(id string) bool {
		if once[id] {
			return true
		}
		return b.frequencies[id] == protocol.FrequencyAlways
	}
	if want(outputdata.IDTransforms) {
		frame.Payloads = append(frame.Payloads, b.transforms().Encode())
	}
	if want(outputdata.IDRigidbodies) {
		frame.Payloads = append(frame.Payloads, b.rigidbodies().Encode())
	}
	if want(outputdata.IDStaticRigidbodies) {
		frame.Payloads = append(frame.Payloads, b.staticRigidbodies().Encode())
	}
	if want(outputdata.IDBounds) {
		frame.Payloads = append(frame.Payloads, b.bounds().Encode())
	}
	if want(outputdata.IDSegmentationColors) {
		frame.Payloads = append(frame.Payloads, b.segmentationColors().Encode())
	}
	if want(outputdata.IDCategories) {
		frame.Payloads = append(frame.Payloads, b.categories().Encode())
	}
	if want(outputdata.IDStaticRobot) {
		for _, r := range b.robots {
			frame.Payloads = append(frame.Payloads, r.Encode())
		}
	}
	if want(outputdata.IDRobot) {
		for _, r := range b.robots {
			frame.Payloads = append(frame.Payloads, b.dynamicRobot(r).Encode())
		}
	}
	if want(outputdata.IDRobotJointVelocities) {
		for _, r := range b.robots {
			frame.Payloads = append(frame.Payloads, b.jointVelocities(r).Encode())
		}
	}

	if b.collisions != nil {
		if b.collisions.env {
			for _, e := range envEvents {
				if b.wantState(e.State) {
					frame.Payloads = append(frame.Payloads, e.Encode())
				}
			}
		}
		if b.collisions.obj {
			for _, c := range objEvents {
				if b.wantState(c.State) {
					frame.Payloads = append(frame.Payloads, c.Encode())
				}
			}
		}
	}

	if want(outputdata.IDAudioSources) || len(b.playing) > 0 {
		frame.Payloads = append(frame.Payloads, b.audioSources().Encode())
	}
	b.decayAudio()

	return frame, nil
}

func (b *Build) wantState(s outputdata.CollisionState) bool {
	switch s {
	case outputdata.CollisionEnter:
		return b.collisions.enter
	case outputdata.CollisionStay:
		return b.collisions.stay
	case outputdata.CollisionExit:
		return b.collisions.exit
	}
	return false
}

func (b *Build) apply(cmd protocol.RawCommand, once map[string]bool, sendVersion, sendRegions *bool, frame *protocol.Frame) error {
	unmarshal := func(v any) error {
		if err := json.Unmarshal(cmd.Body, v); err != nil {
			return fmt.Errorf("bad %s body: %w", cmd.Type, err)
		}
		return nil
	}
	// Maps a frequency command onto the payload's request state.
	setFreq := func(id string, f protocol.Frequency) error {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%s: %w", cmd.Type, err)
		}
		if f == protocol.FrequencyOnce {
			once[id] = true
			return nil
		}
		b.frequencies[id] = f
		return nil
	}

	switch cmd.Type {
	case "create_empty_room":
		var c protocol.CreateEmptyRoom
		if err := unmarshal(&c); err != nil {
			return err
		}
		b.room.width = c.Width
		b.room.length = c.Length

	case "add_object":
		var c protocol.AddObject
		if err := unmarshal(&c); err != nil {
			return err
		}
		if _, exists := b.objects[c.ID]; exists {
			return fmt.Errorf("object %d already exists", c.ID)
		}
		scale := c.ScaleFactor
		if scale == 0 {
			scale = 1
		}
		b.objects[c.ID] = &object{
			id:         c.ID,
			name:       c.Name,
			category:   c.Category,
			scale:      protocol.Vector3{X: scale, Y: scale, Z: scale},
			position:   c.Position,
			rotation:   protocol.IdentityQuaternion,
			mass:       1,
			useGravity: true,
		}
		b.order = append(b.order, c.ID)

	case "teleport_object":
		var c protocol.TeleportObject
		if err := unmarshal(&c); err != nil {
			return err
		}
		o, err := b.object(c.ID)
		if err != nil {
			return err
		}
		o.position = c.Position

	case "rotate_object_to":
		var c protocol.RotateObjectTo
		if err := unmarshal(&c); err != nil {
			return err
		}
		o, err := b.object(c.ID)
		if err != nil {
			return err
		}
		o.rotation = c.Rotation

	case "scale_object":
		var c protocol.ScaleObject
		if err := unmarshal(&c); err != nil {
			return err
		}
		o, err := b.object(c.ID)
		if err != nil {
			return err
		}
		o.scale.X *= c.ScaleFactor.X
		o.scale.Y *= c.ScaleFactor.Y
		o.scale.Z *= c.ScaleFactor.Z

	case "set_kinematic_state":
		var c protocol.SetKinematicState
		if err := unmarshal(&c); err != nil {
			return err
		}
		o, err := b.object(c.ID)
		if err != nil {
			return err
		}
		o.kinematic = c.IsKinematic
		o.useGravity = c.UseGravity

	case "set_object_collision_detection_mode":
		var c protocol.SetObjectCollisionDetectionMode
		if err := unmarshal(&c); err != nil {
			return err
		}
		if _, err := b.object(c.ID); err != nil {
			return err
		}
		// Detection mode does not change the mock's integration.

	case "set_mass":
		var c protocol.SetMass
		if err := unmarshal(&c); err != nil {
			return err
		}
		o, err := b.object(c.ID)
		if err != nil {
			return err
		}
		o.mass = c.Mass

	case "set_physic_material":
		var c protocol.SetPhysicMaterial
		if err := unmarshal(&c); err != nil {
			return err
		}
		o, err := b.object(c.ID)
		if err != nil {
			return err
		}
		o.dynamicFriction = c.DynamicFriction
		o.staticFriction = c.StaticFriction
		o.bounciness = c.Bounciness

	case "send_transforms":
		return b.freqCommand(cmd, outputdata.IDTransforms, setFreq)
	case "send_rigidbodies":
		return b.freqCommand(cmd, outputdata.IDRigidbodies, setFreq)
	case "send_static_rigidbodies":
		return b.freqCommand(cmd, outputdata.IDStaticRigidbodies, setFreq)
	case "send_bounds":
		return b.freqCommand(cmd, outputdata.IDBounds, setFreq)
	case "send_segmentation_colors":
		return b.freqCommand(cmd, outputdata.IDSegmentationColors, setFreq)
	case "send_categories":
		return b.freqCommand(cmd, outputdata.IDCategories, setFreq)
	case "send_static_robots":
		return b.freqCommand(cmd, outputdata.IDStaticRobot, setFreq)
	case "send_robots":
		return b.freqCommand(cmd, outputdata.IDRobot, setFreq)
	case "send_robot_joint_velocities":
		return b.freqCommand(cmd, outputdata.IDRobotJointVelocities, setFreq)
	case "send_audio_sources":
		return b.freqCommand(cmd, outputdata.IDAudioSources, setFreq)

	case "send_collisions":
		var c protocol.SendCollisions
		if err := unmarshal(&c); err != nil {
			return err
		}
		sub := &collisionSub{enter: c.Enter, stay: c.Stay, exit: c.Exit}
		for _, t := range c.CollisionTypes {
			switch t {
			case protocol.CollisionTypeObject:
				sub.obj = true
			case protocol.CollisionTypeEnvironment:
				sub.env = true
			default:
				return fmt.Errorf("unknown collision type %q", t)
			}
		}
		b.collisions = sub

	case "send_scene_regions":
		*sendRegions = true
	case "send_version":
		*sendVersion = true

	case "play_audio_data", "play_point_source_data":
		var c protocol.PlayAudioData
		if err := unmarshal(&c); err != nil {
			return err
		}
		if c.NumFrames <= 0 || c.FrameRate <= 0 {
			return fmt.Errorf("%s: empty audio data", cmd.Type)
		}
		// Sources report as playing until the clip would have finished.
		seconds := float64(c.NumFrames) / float64(c.FrameRate)
		b.playing[c.ID] = int(math.Ceil(seconds/Timestep)) + 1

	case "set_target_framerate", "do_nothing":
		// Accepted, no effect on the mock.

	case "terminate":
		b.terminated = true

	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

func (b *Build) freqCommand(cmd protocol.RawCommand, id string, setFreq func(string, protocol.Frequency) error) error {
	var body struct {
		Frequency protocol.Frequency `json:"frequency"`
	}
	if err := json.Unmarshal(cmd.Body, &body); err != nil {
		return fmt.Errorf("bad %s body: %w", cmd.Type, err)
	}
	return setFreq(id, body.Frequency)
}

func (b *Build) object(id int32) (*object, error) {
	o, ok := b.objects[id]
	if !ok {
		return nil, fmt.Errorf("no object with id %d", id)
	}
	return o, nil
}

// integrate advances the scene one timestep and returns the frame's
// environment and object collision events.
func (b *Build) integrate() ([]*outputdata.EnvironmentCollision, []*outputdata.Collision) {
	var envEvents []*outputdata.EnvironmentCollision

	for _, id := range b.order {
		o := b.objects[id]
		if o.kinematic {
			continue
		}
		if o.useGravity {
			o.velocity.Y += gravity * Timestep
		}
		o.position.X += o.velocity.X * Timestep
		o.position.Y += o.velocity.Y * Timestep
		o.position.Z += o.velocity.Z * Timestep

		half := o.half().Y
		contact := o.position.Y-half <= 0
		if contact {
			o.position.Y = half
			if o.velocity.Y < 0 {
				o.velocity.Y = -o.velocity.Y * o.bounciness
				if math.Abs(o.velocity.Y) < 0.1 {
					o.velocity.Y = 0
				}
			}
			// Still in contact only while not bouncing away.
			contact = o.velocity.Y == 0
		}

		var state outputdata.CollisionState
		emit := true
		switch {
		case contact && !o.onFloor:
			state = outputdata.CollisionEnter
		case contact && o.onFloor:
			state = outputdata.CollisionStay
		case !contact && o.onFloor:
			state = outputdata.CollisionExit
		default:
			emit = false
		}
		if emit {
			envEvents = append(envEvents, &outputdata.EnvironmentCollision{
				ObjectID: o.id,
				State:    state,
				Floor:    true,
				Contacts: []outputdata.Contact{{
					Point:  protocol.Vector3{X: o.position.X, Z: o.position.Z},
					Normal: protocol.Vector3{Y: 1},
				}},
			})
		}
		o.onFloor = contact
	}

	return envEvents, b.objectCollisions()
}

// objectCollisions detects axis-aligned overlaps between object pairs and
// turns them into enter/stay/exit events.
func (b *Build) objectCollisions() []*outputdata.Collision {
	var events []*outputdata.Collision
	seen := map[pairKey]bool{}

	for i := 0; i < len(b.order); i++ {
		for j := i + 1; j < len(b.order); j++ {
			a, c := b.objects[b.order[i]], b.objects[b.order[j]]
			key := makePair(a.id, c.id)
			overlap := aabbOverlap(a, c)
			was := b.objContacts[key]

			var state outputdata.CollisionState
			emit := true
			switch {
			case overlap && !was:
				state = outputdata.CollisionEnter
			case overlap && was:
				state = outputdata.CollisionStay
			case !overlap && was:
				state = outputdata.CollisionExit
			default:
				emit = false
			}
			if emit {
				events = append(events, &outputdata.Collision{
					ColliderID: a.id,
					CollideeID: c.id,
					State:      state,
					RelativeVelocity: protocol.Vector3{
						X: a.velocity.X - c.velocity.X,
						Y: a.velocity.Y - c.velocity.Y,
						Z: a.velocity.Z - c.velocity.Z,
					},
					Contacts: []outputdata.Contact{{
						Point: protocol.Vector3{
							X: (a.position.X + c.position.X) / 2,
							Y: (a.position.Y + c.position.Y) / 2,
							Z: (a.position.Z + c.position.Z) / 2,
						},
						Normal: protocol.Vector3{Y: 1},
					}},
				})
			}
			b.objContacts[key] = overlap
			seen[key] = true
		}
	}
	for key := range b.objContacts {
		if !seen[key] {
			delete(b.objContacts, key)
		}
	}
	return events
}

func aabbOverlap(a, c *object) bool {
	ha, hc := a.half(), c.half()
	return math.Abs(a.position.X-c.position.X) <= ha.X+hc.X &&
		math.Abs(a.position.Y-c.position.Y) <= ha.Y+hc.Y &&
		math.Abs(a.position.Z-c.position.Z) <= ha.Z+hc.Z
}

// sortedObjects returns the scene objects in creation order.
func (b *Build) sortedObjects() []*object {
	out := make([]*object, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.objects[id])
	}
	return out
}

func (b *Build) transforms() *outputdata.Transforms {
	t := &outputdata.Transforms{}
	for _, o := range b.sortedObjects() {
		t.Objects = append(t.Objects, outputdata.ObjectTransform{
			ID:       o.id,
			Position: o.position,
			Rotation: o.rotation,
			Forward:  protocol.Vector3{Z: 1},
		})
	}
	return t
}

func (b *Build) rigidbodies() *outputdata.Rigidbodies {
	r := &outputdata.Rigidbodies{}
	for _, o := range b.sortedObjects() {
		sleeping := o.onFloor && o.velocity == (protocol.Vector3{})
		r.Objects = append(r.Objects, outputdata.ObjectRigidbody{
			ID:       o.id,
			Velocity: o.velocity,
			Sleeping: sleeping,
		})
	}
	return r
}

func (b *Build) staticRigidbodies() *outputdata.StaticRigidbodies {
	s := &outputdata.StaticRigidbodies{}
	for _, o := range b.sortedObjects() {
		s.Objects = append(s.Objects, outputdata.StaticObjectRigidbody{
			ID:              o.id,
			Mass:            o.mass,
			Kinematic:       o.kinematic,
			DynamicFriction: o.dynamicFriction,
			StaticFriction:  o.staticFriction,
			Bounciness:      o.bounciness,
		})
	}
	return s
}

func (b *Build) bounds() *outputdata.Bounds {
	bn := &outputdata.Bounds{}
	for _, o := range b.sortedObjects() {
		h := o.half()
		p := o.position
		bn.Objects = append(bn.Objects, outputdata.ObjectBounds{
			ID:     o.id,
			Front:  protocol.Vector3{X: p.X, Y: p.Y, Z: p.Z + h.Z},
			Back:   protocol.Vector3{X: p.X, Y: p.Y, Z: p.Z - h.Z},
			Left:   protocol.Vector3{X: p.X - h.X, Y: p.Y, Z: p.Z},
			Right:  protocol.Vector3{X: p.X + h.X, Y: p.Y, Z: p.Z},
			Top:    protocol.Vector3{X: p.X, Y: p.Y + h.Y, Z: p.Z},
			Bottom: protocol.Vector3{X: p.X, Y: p.Y - h.Y, Z: p.Z},
			Center: p,
		})
	}
	return bn
}

// segColor derives a stable segmentation color from an object ID.
func segColor(id int32) [3]uint8 {
	h := uint32(id) * 2654435761
	return [3]uint8{uint8(h >> 16), uint8(h >> 8), uint8(h)}
}

func (b *Build) segmentationColors() *outputdata.SegmentationColors {
	s := &outputdata.SegmentationColors{}
	for _, o := range b.sortedObjects() {
		s.Objects = append(s.Objects, outputdata.SegmentedObject{
			ID:       o.id,
			Color:    segColor(o.id),
			Name:     o.name,
			Category: o.category,
		})
	}
	return s
}

func (b *Build) categories() *outputdata.Categories {
	names := map[string]bool{}
	for _, o := range b.objects {
		if o.category != "" {
			names[o.category] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	c := &outputdata.Categories{}
	for i, n := range sorted {
		c.Categories = append(c.Categories, outputdata.Category{
			Name:  n,
			Color: segColor(int32(i + 1)),
		})
	}
	return c
}

func (b *Build) sceneRegions() *outputdata.SceneRegions {
	w, l := float64(b.room.width), float64(b.room.length)
	if w == 0 {
		w, l = 10, 10
	}
	return &outputdata.SceneRegions{Regions: []outputdata.SceneRegion{{
		ID:     0,
		Center: protocol.Vector3{Y: 1.5},
		Bounds: protocol.Vector3{X: w, Y: 3, Z: l},
	}}}
}

func (b *Build) dynamicRobot(r *outputdata.StaticRobot) *outputdata.Robot {
	d := &outputdata.Robot{ID: r.ID, Immovable: true, Sleeping: true}
	for i, j := range r.Joints {
		d.Joints = append(d.Joints, outputdata.DynamicJoint{
			ID:       j.ID,
			Position: protocol.Vector3{Y: float64(i) * 0.2},
			Angles:   make([]float64, len(j.Drives)),
		})
	}
	return d
}

func (b *Build) jointVelocities(r *outputdata.StaticRobot) *outputdata.RobotJointVelocities {
	v := &outputdata.RobotJointVelocities{ID: r.ID}
	for _, j := range r.Joints {
		v.Joints = append(v.Joints, outputdata.JointVelocity{ID: j.ID, Sleeping: true})
	}
	return v
}

func (b *Build) audioSources() *outputdata.AudioSources {
	ids := make([]int32, 0, len(b.playing))
	for id := range b.playing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	a := &outputdata.AudioSources{}
	for _, id := range ids {
		a.Sources = append(a.Sources, outputdata.AudioSource{ID: id, Playing: true})
	}
	return a
}

func (b *Build) decayAudio() {
	for id := range b.playing {
		b.playing[id]--
		if b.playing[id] <= 0 {
			delete(b.playing, id)
		}
	}
}
