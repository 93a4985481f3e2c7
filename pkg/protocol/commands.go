package protocol

// Scene setup commands.

// CreateEmptyRoom builds a rectangular room with no objects in it.
type CreateEmptyRoom struct {
	Width  int `json:"width"`
	Length int `json:"length"`
}

func (CreateEmptyRoom) CommandType() string { return "create_empty_room" }

// AddObject instructs the build to download and instantiate a model.
type AddObject struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	ScaleFactor float64 `json:"scale_factor"`
	Position    Vector3 `json:"position"`
	Category    string  `json:"category"`
	ID          int32   `json:"id"`
}

func (AddObject) CommandType() string { return "add_object" }

// RotateObjectTo sets an object's rotation.
type RotateObjectTo struct {
	Rotation Quaternion `json:"rotation"`
	ID       int32      `json:"id"`
}

func (RotateObjectTo) CommandType() string { return "rotate_object_to" }

// TeleportObject sets an object's position.
type TeleportObject struct {
	Position Vector3 `json:"position"`
	ID       int32   `json:"id"`
}

func (TeleportObject) CommandType() string { return "teleport_object" }

// ScaleObject multiplies an object's scale by a factor per axis.
type ScaleObject struct {
	ScaleFactor Vector3 `json:"scale_factor"`
	ID          int32   `json:"id"`
}

func (ScaleObject) CommandType() string { return "scale_object" }

// SetKinematicState toggles physics simulation for an object.
type SetKinematicState struct {
	ID          int32 `json:"id"`
	IsKinematic bool  `json:"is_kinematic"`
	UseGravity  bool  `json:"use_gravity"`
}

func (SetKinematicState) CommandType() string { return "set_kinematic_state" }

// CollisionDetectionMode values accepted by SetObjectCollisionDetectionMode.
const (
	DetectionModeContinuousDynamic     = "continuous_dynamic"
	DetectionModeContinuousSpeculative = "continuous_speculative"
	DetectionModeDiscrete              = "discrete"
)

// SetObjectCollisionDetectionMode selects the physics collision detection mode.
// Kinematic objects must use continuous_speculative.
type SetObjectCollisionDetectionMode struct {
	ID   int32  `json:"id"`
	Mode string `json:"mode"`
}

func (SetObjectCollisionDetectionMode) CommandType() string {
	return "set_object_collision_detection_mode"
}

// SetMass sets an object's mass in kilograms.
type SetMass struct {
	Mass float64 `json:"mass"`
	ID   int32   `json:"id"`
}

func (SetMass) CommandType() string { return "set_mass" }

// SetPhysicMaterial sets an object's friction and bounciness.
type SetPhysicMaterial struct {
	DynamicFriction float64 `json:"dynamic_friction"`
	StaticFriction  float64 `json:"static_friction"`
	Bounciness      float64 `json:"bounciness"`
	ID              int32   `json:"id"`
}

func (SetPhysicMaterial) CommandType() string { return "set_physic_material" }

// Output data requests.

// SendTransforms requests per-object transform data.
type SendTransforms struct {
	Frequency Frequency `json:"frequency"`
}

func (SendTransforms) CommandType() string { return "send_transforms" }

// SendRigidbodies requests per-object velocity and sleep state.
type SendRigidbodies struct {
	Frequency Frequency `json:"frequency"`
}

func (SendRigidbodies) CommandType() string { return "send_rigidbodies" }

// SendStaticRigidbodies requests per-object mass and physic material data.
type SendStaticRigidbodies struct {
	Frequency Frequency `json:"frequency"`
}

func (SendStaticRigidbodies) CommandType() string { return "send_static_rigidbodies" }

// SendBounds requests per-object axis-aligned bounds.
type SendBounds struct {
	Frequency Frequency `json:"frequency"`
}

func (SendBounds) CommandType() string { return "send_bounds" }

// SendCollisions subscribes to collision events.
type SendCollisions struct {
	Enter          bool     `json:"enter"`
	Exit           bool     `json:"exit"`
	Stay           bool     `json:"stay"`
	CollisionTypes []string `json:"collision_types"`
}

func (SendCollisions) CommandType() string { return "send_collisions" }

// Collision type selectors for SendCollisions.
const (
	CollisionTypeObject      = "obj"
	CollisionTypeEnvironment = "env"
)

// SendSegmentationColors requests per-object segmentation colors and names.
type SendSegmentationColors struct {
	Frequency Frequency `json:"frequency"`
}

func (SendSegmentationColors) CommandType() string { return "send_segmentation_colors" }

// SendCategories requests the per-category segmentation colors.
type SendCategories struct {
	Frequency Frequency `json:"frequency"`
}

func (SendCategories) CommandType() string { return "send_categories" }

// SendStaticRobots requests static robot data (joint IDs, drives, and so on).
type SendStaticRobots struct {
	Frequency Frequency `json:"frequency"`
}

func (SendStaticRobots) CommandType() string { return "send_static_robots" }

// SendRobots requests dynamic robot data per frame.
type SendRobots struct {
	Frequency Frequency `json:"frequency"`
}

func (SendRobots) CommandType() string { return "send_robots" }

// SendRobotJointVelocities requests per-joint velocity data.
type SendRobotJointVelocities struct {
	Frequency Frequency `json:"frequency"`
}

func (SendRobotJointVelocities) CommandType() string { return "send_robot_joint_velocities" }

// SendSceneRegions requests the bounds of each region of the scene.
type SendSceneRegions struct{}

func (SendSceneRegions) CommandType() string { return "send_scene_regions" }

// SendAudioSources requests the playback state of each audio source.
type SendAudioSources struct {
	Frequency Frequency `json:"frequency"`
}

func (SendAudioSources) CommandType() string { return "send_audio_sources" }

// SendVersion requests the build's version data.
type SendVersion struct{}

func (SendVersion) CommandType() string { return "send_version" }

// Audio commands.

// PlayAudioData plays synthesized audio at an object's position.
type PlayAudioData struct {
	ID          int32   `json:"id"`
	NumFrames   int     `json:"num_frames"`
	NumChannels int     `json:"num_channels"`
	FrameRate   int     `json:"frame_rate"`
	WavData     string  `json:"wav_data"`
	RobotJoint  bool    `json:"robot_joint"`
	YPosOffset  float64 `json:"y_pos_offset"`
}

func (PlayAudioData) CommandType() string { return "play_audio_data" }

// PlayPointSourceData plays synthesized audio through a spatialized point
// source. Only meaningful when the build runs a spatializing audio backend.
type PlayPointSourceData struct {
	ID          int32   `json:"id"`
	NumFrames   int     `json:"num_frames"`
	NumChannels int     `json:"num_channels"`
	FrameRate   int     `json:"frame_rate"`
	WavData     string  `json:"wav_data"`
	RobotJoint  bool    `json:"robot_joint"`
	YPosOffset  float64 `json:"y_pos_offset"`
}

func (PlayPointSourceData) CommandType() string { return "play_point_source_data" }

// Control commands.

// DoNothing advances a frame with no side effects.
type DoNothing struct{}

func (DoNothing) CommandType() string { return "do_nothing" }

// SetTargetFramerate caps the build's render framerate.
type SetTargetFramerate struct {
	Framerate int `json:"framerate"`
}

func (SetTargetFramerate) CommandType() string { return "set_target_framerate" }

// Terminate asks the build to quit. The build acknowledges with a QuitSignal
// payload before closing the connection.
type Terminate struct{}

func (Terminate) CommandType() string { return "terminate" }
