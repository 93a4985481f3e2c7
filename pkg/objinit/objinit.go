// Package objinit builds the command sequences that create and configure
// scene objects. The three tiers add progressively more physics detail:
// TransformInit places an object, RigidbodyInit also sets its mass and
// physic material, and AudioInit derives the physics values from the
// object's acoustic profile.
package objinit

import (
	"fmt"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/librarian"
	"github.com/simbridge/simbridge/pkg/physaudio"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// TransformInit places a model in the scene.
type TransformInit struct {
	// Name of the model.
	Name string
	// Position of the object. Zero is the origin.
	Position protocol.Vector3
	// Rotation of the object. Zero means identity.
	Rotation protocol.Quaternion
	// ScaleFactor per axis. Zero means unit scale.
	ScaleFactor protocol.Vector3
	// Kinematic objects ignore physics forces.
	Kinematic bool
	// NoGravity disables gravity for the object.
	NoGravity bool
}

// Commands resolves the model record and returns the object's ID and its
// creation commands.
func (d *TransformInit) Commands(lib *librarian.Librarian) (int32, []protocol.Command, error) {
	record, err := lib.Get(d.Name)
	if err != nil {
		return 0, nil, err
	}
	if record.DoNotUse {
		return 0, nil, fmt.Errorf("model %q is flagged do_not_use", d.Name)
	}
	url, err := record.URL()
	if err != nil {
		return 0, nil, err
	}

	rotation := d.Rotation
	if rotation == (protocol.Quaternion{}) {
		rotation = protocol.IdentityQuaternion
	}
	scale := d.ScaleFactor
	if scale == (protocol.Vector3{}) {
		scale = protocol.UnitScale
	}

	objectID := controller.UniqueID()
	commands := []protocol.Command{
		&protocol.AddObject{
			Name:        record.Name,
			URL:         url,
			ScaleFactor: record.ScaleFactor,
			Position:    d.Position,
			Category:    record.WCategory,
			ID:          objectID,
		},
		&protocol.RotateObjectTo{Rotation: rotation, ID: objectID},
		&protocol.ScaleObject{ScaleFactor: scale, ID: objectID},
		&protocol.SetKinematicState{
			ID:          objectID,
			IsKinematic: d.Kinematic,
			UseGravity:  !d.NoGravity,
		},
	}
	// Kinematic objects must be continuous_speculative.
	mode := protocol.DetectionModeContinuousDynamic
	if d.Kinematic {
		mode = protocol.DetectionModeContinuousSpeculative
	}
	commands = append(commands, &protocol.SetObjectCollisionDetectionMode{ID: objectID, Mode: mode})
	return objectID, commands, nil
}

// RigidbodyInit places a model and sets its mass and physic material.
type RigidbodyInit struct {
	TransformInit
	Mass            float64
	DynamicFriction float64
	StaticFriction  float64
	Bounciness      float64
}

// Commands returns the object's ID and its creation commands.
func (d *RigidbodyInit) Commands(lib *librarian.Librarian) (int32, []protocol.Command, error) {
	objectID, commands, err := d.TransformInit.Commands(lib)
	if err != nil {
		return 0, nil, err
	}
	commands = append(commands,
		&protocol.SetMass{Mass: d.Mass, ID: objectID},
		&protocol.SetPhysicMaterial{
			DynamicFriction: d.DynamicFriction,
			StaticFriction:  d.StaticFriction,
			Bounciness:      d.Bounciness,
			ID:              objectID,
		},
	)
	return objectID, commands, nil
}

// Friction coefficients per acoustic material.
var (
	dynamicFriction = map[physaudio.Material]float64{
		physaudio.Ceramic:         0.47,
		physaudio.WoodHard:        0.35,
		physaudio.WoodMedium:      0.35,
		physaudio.WoodSoft:        0.35,
		physaudio.Metal:           0.43,
		physaudio.Glass:           0.65,
		physaudio.Paper:           0.47,
		physaudio.Cardboard:       0.47,
		physaudio.Leather:         0.4,
		physaudio.Fabric:          0.57,
		physaudio.PlasticHard:     0.3,
		physaudio.PlasticSoftFoam: 0.45,
		physaudio.Rubber:          0.75,
		physaudio.Stone:           0.5,
	}
	staticFriction = map[physaudio.Material]float64{
		physaudio.Ceramic:         0.47,
		physaudio.WoodHard:        0.4,
		physaudio.WoodMedium:      0.4,
		physaudio.WoodSoft:        0.4,
		physaudio.Metal:           0.52,
		physaudio.Glass:           0.65,
		physaudio.Paper:           0.47,
		physaudio.Cardboard:       0.47,
		physaudio.Leather:         0.43,
		physaudio.Fabric:          0.6,
		physaudio.PlasticHard:     0.35,
		physaudio.PlasticSoftFoam: 0.5,
		physaudio.Rubber:          0.8,
		physaudio.Stone:           0.55,
	}
)

// AudioInit places a model with physics values derived from its acoustic
// profile.
type AudioInit struct {
	TransformInit
	// Audio overrides the model's database profile. Nil uses the database.
	Audio *physaudio.ObjectAudio
}

// Commands returns the object's ID, its creation commands, and the audio
// profile used.
func (d *AudioInit) Commands(lib *librarian.Librarian) (int32, []protocol.Command, *physaudio.ObjectAudio, error) {
	audio := d.Audio
	if audio == nil {
		defaults, err := physaudio.DefaultObjectAudio()
		if err != nil {
			return 0, nil, nil, err
		}
		var ok bool
		if audio, ok = defaults[d.Name]; !ok {
			return 0, nil, nil, fmt.Errorf("no audio profile for model %q", d.Name)
		}
	}

	rb := RigidbodyInit{
		TransformInit:   d.TransformInit,
		Mass:            audio.Mass,
		DynamicFriction: dynamicFriction[audio.Material],
		StaticFriction:  staticFriction[audio.Material],
		Bounciness:      audio.Bounciness,
	}
	objectID, commands, err := rb.Commands(lib)
	if err != nil {
		return 0, nil, nil, err
	}
	return objectID, commands, audio, nil
}
