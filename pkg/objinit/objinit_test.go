package objinit

import (
	"testing"

	"github.com/simbridge/simbridge/pkg/librarian"
	"github.com/simbridge/simbridge/pkg/physaudio"
	"github.com/simbridge/simbridge/pkg/protocol"
)

func coreLibrary(t *testing.T) *librarian.Librarian {
	t.Helper()
	lib, err := librarian.NewCore()
	if err != nil {
		t.Fatalf("core library: %v", err)
	}
	return lib
}

func TestTransformInitCommands(t *testing.T) {
	lib := coreLibrary(t)
	init := &TransformInit{
		Name:     "iron_box",
		Position: protocol.Vector3{X: 1, Y: 0.5},
	}
	id, commands, err := init.Commands(lib)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if id <= 0 {
		t.Errorf("object id = %d", id)
	}
	if len(commands) != 5 {
		t.Fatalf("got %d commands, want 5", len(commands))
	}

	add, ok := commands[0].(*protocol.AddObject)
	if !ok {
		t.Fatalf("first command = %T", commands[0])
	}
	if add.Name != "iron_box" || add.Category != "box" || add.ID != id {
		t.Errorf("add_object = %+v", add)
	}
	if add.URL == "" {
		t.Error("empty asset URL")
	}

	rotate := commands[1].(*protocol.RotateObjectTo)
	if rotate.Rotation != protocol.IdentityQuaternion {
		t.Errorf("default rotation = %+v", rotate.Rotation)
	}
	scale := commands[2].(*protocol.ScaleObject)
	if scale.ScaleFactor != protocol.UnitScale {
		t.Errorf("default scale = %+v", scale.ScaleFactor)
	}

	kin := commands[3].(*protocol.SetKinematicState)
	if kin.IsKinematic || !kin.UseGravity {
		t.Errorf("kinematic state = %+v", kin)
	}
	mode := commands[4].(*protocol.SetObjectCollisionDetectionMode)
	if mode.Mode != protocol.DetectionModeContinuousDynamic {
		t.Errorf("detection mode = %q", mode.Mode)
	}
}

func TestKinematicObjectsUseSpeculativeDetection(t *testing.T) {
	lib := coreLibrary(t)
	init := &TransformInit{Name: "iron_box", Kinematic: true}
	_, commands, err := init.Commands(lib)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	mode := commands[len(commands)-1].(*protocol.SetObjectCollisionDetectionMode)
	if mode.Mode != protocol.DetectionModeContinuousSpeculative {
		t.Errorf("detection mode = %q", mode.Mode)
	}
	kin := commands[3].(*protocol.SetKinematicState)
	if !kin.IsKinematic {
		t.Error("kinematic flag not set")
	}
}

func TestTransformInitUnknownModel(t *testing.T) {
	lib := coreLibrary(t)
	init := &TransformInit{Name: "does_not_exist"}
	if _, _, err := init.Commands(lib); err == nil {
		t.Error("expected an error for an unknown model")
	}
}

func TestRigidbodyInitCommands(t *testing.T) {
	lib := coreLibrary(t)
	init := &RigidbodyInit{
		TransformInit:   TransformInit{Name: "iron_box"},
		Mass:            1.88,
		DynamicFriction: 0.43,
		StaticFriction:  0.52,
		Bounciness:      0.25,
	}
	id, commands, err := init.Commands(lib)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if len(commands) != 7 {
		t.Fatalf("got %d commands, want 7", len(commands))
	}
	mass := commands[5].(*protocol.SetMass)
	if mass.Mass != 1.88 || mass.ID != id {
		t.Errorf("set_mass = %+v", mass)
	}
	mat := commands[6].(*protocol.SetPhysicMaterial)
	if mat.DynamicFriction != 0.43 || mat.StaticFriction != 0.52 || mat.Bounciness != 0.25 {
		t.Errorf("set_physic_material = %+v", mat)
	}
}

func TestAudioInitDerivesPhysics(t *testing.T) {
	lib := coreLibrary(t)
	init := &AudioInit{TransformInit: TransformInit{Name: "vase_02"}}
	_, commands, audio, err := init.Commands(lib)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if audio.Material != physaudio.Ceramic {
		t.Errorf("material = %v", audio.Material)
	}
	mass := commands[5].(*protocol.SetMass)
	if mass.Mass != audio.Mass {
		t.Errorf("mass = %v, want %v", mass.Mass, audio.Mass)
	}
	mat := commands[6].(*protocol.SetPhysicMaterial)
	if mat.DynamicFriction != 0.47 || mat.StaticFriction != 0.47 {
		t.Errorf("ceramic friction = %+v", mat)
	}
	if mat.Bounciness != audio.Bounciness {
		t.Errorf("bounciness = %v", mat.Bounciness)
	}
}

func TestAudioInitOverride(t *testing.T) {
	lib := coreLibrary(t)
	override := &physaudio.ObjectAudio{
		Name:       "iron_box",
		Mass:       5,
		Material:   physaudio.Rubber,
		Bounciness: 0.9,
		Amp:        0.3,
		Resonance:  0.2,
		Size:       2,
	}
	init := &AudioInit{TransformInit: TransformInit{Name: "iron_box"}, Audio: override}
	_, commands, audio, err := init.Commands(lib)
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if audio != override {
		t.Error("override profile not used")
	}
	mat := commands[6].(*protocol.SetPhysicMaterial)
	if mat.DynamicFriction != 0.75 {
		t.Errorf("rubber dynamic friction = %v", mat.DynamicFriction)
	}
}

func TestAudioInitMissingProfile(t *testing.T) {
	lib := coreLibrary(t)
	init := &AudioInit{TransformInit: TransformInit{Name: "missing_model"}}
	if _, _, _, err := init.Commands(lib); err == nil {
		t.Error("expected an error for a model without an audio profile")
	}
}
