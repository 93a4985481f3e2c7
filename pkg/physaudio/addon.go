package physaudio

import (
	"fmt"
	"strings"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/telemetry"
)

// minImpactSpeed filters the very slow environment collisions that happen
// when objects spawn; they would otherwise click.
const minImpactSpeed = 0.01

// ImpactAudioConfig configures the impact audio add-on.
type ImpactAudioConfig struct {
	// InitialAmp is the master volume, in (0, 1). Defaults to 0.5.
	InitialAmp float64
	// Floor is the floor's audio material. Defaults to WoodMedium.
	Floor Material
	// ResonanceAudio emits play_point_source_data instead of
	// play_audio_data.
	ResonanceAudio bool
	// Seed for the synthesis RNG.
	Seed int64
	// Overrides replaces database entries by model name.
	Overrides map[string]*ObjectAudio
	// Metrics counts the queued playback commands when set.
	Metrics *telemetry.Metrics
}

// ImpactAudio is a controller add-on that listens for collisions and plays
// synthesized impact sounds in the build. Attach it, then read nothing: it
// pushes audio commands onto the next frame by itself.
type ImpactAudio struct {
	cfg     ImpactAudioConfig
	synth   *Synthesizer
	buffer  controller.CommandBuffer
	metrics *telemetry.Metrics

	cached bool
	// audio profiles by object (or robot joint) ID.
	audio map[int32]*ObjectAudio
	// robot joint IDs, for the robot_joint flag of play_audio_data.
	joints map[int32]bool
	floor  *ObjectAudio
}

// NewImpactAudio creates the add-on.
func NewImpactAudio(cfg ImpactAudioConfig) (*ImpactAudio, error) {
	if cfg.InitialAmp == 0 {
		cfg.InitialAmp = 0.5
	}
	if cfg.Floor == 0 {
		cfg.Floor = WoodMedium
	}
	synth, err := NewSynthesizer(cfg.InitialAmp, cfg.Seed)
	if err != nil {
		return nil, err
	}
	return &ImpactAudio{
		cfg:     cfg,
		synth:   synth,
		metrics: cfg.Metrics,
		audio:   make(map[int32]*ObjectAudio),
		joints:  make(map[int32]bool),
		floor: &ObjectAudio{
			Name:     "floor",
			Amp:      FloorAmp,
			Mass:     FloorMass,
			Material: cfg.Floor,
			Size:     FloorSize,
		},
	}, nil
}

// Name identifies the add-on in logs.
func (a *ImpactAudio) Name() string { return "impact_audio" }

// InitializationCommands subscribes to the physics data the synthesizer
// needs.
func (a *ImpactAudio) InitializationCommands() []protocol.Command {
	return []protocol.Command{
		&protocol.SendRigidbodies{Frequency: protocol.FrequencyAlways},
		&protocol.SendRobotJointVelocities{Frequency: protocol.FrequencyAlways},
		&protocol.SendCollisions{
			Enter: true, Stay: true, Exit: true,
			CollisionTypes: []string{
				protocol.CollisionTypeObject,
				protocol.CollisionTypeEnvironment,
			},
		},
		&protocol.SendStaticRobots{Frequency: protocol.FrequencyOnce},
		&protocol.SendSegmentationColors{Frequency: protocol.FrequencyOnce},
		&protocol.SendStaticRigidbodies{Frequency: protocol.FrequencyOnce},
	}
}

// Commands returns audio commands generated from the previous frame's
// collisions.
func (a *ImpactAudio) Commands() []protocol.Command {
	return a.buffer.Drain()
}

// Reset clears cached audio data between trials.
func (a *ImpactAudio) Reset(initialAmp float64) error {
	if err := a.synth.Reset(initialAmp); err != nil {
		return err
	}
	a.cached = false
	a.audio = make(map[int32]*ObjectAudio)
	a.joints = make(map[int32]bool)
	return nil
}

// OnFrame classifies the frame's collisions and queues audio commands for
// the impacts.
func (a *ImpactAudio) OnFrame(result *controller.Result) error {
	if !a.cached {
		if err := a.cacheStaticData(result); err != nil {
			return err
		}
		a.cached = true
	}

	speeds := make(map[int32]float64)
	velocities := make(map[int32]protocol.Vector3)
	for _, p := range result.Payloads {
		switch v := p.(type) {
		case *outputdata.Rigidbodies:
			for _, o := range v.Objects {
				speeds[o.ID] = norm(o.Velocity)
				velocities[o.ID] = o.Velocity
			}
		case *outputdata.RobotJointVelocities:
			for _, j := range v.Joints {
				speeds[j.ID] = norm(j.Velocity)
				velocities[j.ID] = j.Velocity
			}
		}
	}

	classified := ClassifyCollisions(result.Payloads)
	// One sound per object per frame.
	sounded := make(map[int32]bool)

	for _, c := range classified.Impacts {
		first, firstOK := a.audio[c.ColliderID]
		second, secondOK := a.audio[c.CollideeID]
		if !firstOK || !secondOK || sounded[c.ColliderID] || sounded[c.CollideeID] {
			continue
		}
		// The lighter object plays the sound.
		primary, secondary := first, second
		if second.Mass < first.Mass {
			primary, secondary = second, first
		}
		sounded[c.ColliderID] = true
		sounded[c.CollideeID] = true
		a.queueSound(ImpactParams{
			Velocity:          c.RelativeVelocity,
			ContactNormals:    contactNormals(c.Contacts),
			PrimaryID:         primary.ObjectID,
			PrimaryMaterial:   primary.SizedMaterial(),
			PrimaryAmp:        primary.Amp,
			PrimaryMass:       primary.Mass,
			SecondaryID:       secondary.ObjectID,
			SecondaryMaterial: secondary.SizedMaterial(),
			SecondaryAmp:      secondary.Amp,
			SecondaryMass:     secondary.Mass,
			Resonance:         primary.Resonance,
		})
	}

	for _, e := range classified.EnvImpacts {
		audio, ok := a.audio[e.ObjectID]
		if !ok || !e.Floor || sounded[e.ObjectID] || speeds[e.ObjectID] < minImpactSpeed {
			continue
		}
		velocity := velocities[e.ObjectID]
		// A downward velocity at an enter event means the object is
		// settling along the floor, not striking it.
		if velocity.Y < 0 {
			continue
		}
		sounded[e.ObjectID] = true
		a.queueSound(ImpactParams{
			Velocity:          velocity,
			ContactNormals:    contactNormals(e.Contacts),
			PrimaryID:         audio.ObjectID,
			PrimaryMaterial:   audio.SizedMaterial(),
			PrimaryAmp:        audio.Amp,
			PrimaryMass:       audio.Mass,
			SecondaryID:       a.floor.ObjectID,
			SecondaryMaterial: a.floor.SizedMaterial(),
			SecondaryAmp:      a.floor.Amp,
			SecondaryMass:     a.floor.Mass,
			Resonance:         audio.Resonance,
		})
	}

	for _, c := range classified.Scrapes {
		first, firstOK := a.audio[c.ColliderID]
		second, secondOK := a.audio[c.CollideeID]
		if !firstOK || !secondOK || sounded[c.ColliderID] || sounded[c.CollideeID] {
			continue
		}
		primary, secondary := first, second
		if second.Mass < first.Mass {
			primary, secondary = second, first
		}
		sounded[c.ColliderID] = true
		sounded[c.CollideeID] = true
		a.queueScrape(ImpactParams{
			Velocity:          c.RelativeVelocity,
			ContactNormals:    contactNormals(c.Contacts),
			PrimaryID:         primary.ObjectID,
			PrimaryMaterial:   primary.SizedMaterial(),
			PrimaryAmp:        primary.Amp,
			PrimaryMass:       primary.Mass,
			SecondaryID:       secondary.ObjectID,
			SecondaryMaterial: secondary.SizedMaterial(),
			SecondaryAmp:      secondary.Amp,
			SecondaryMass:     secondary.Mass,
			Resonance:         primary.Resonance,
		})
	}

	for _, e := range classified.EnvScrapes {
		audio, ok := a.audio[e.ObjectID]
		if !ok || !e.Floor || sounded[e.ObjectID] {
			continue
		}
		sounded[e.ObjectID] = true
		a.queueScrape(ImpactParams{
			Velocity:          velocities[e.ObjectID],
			ContactNormals:    contactNormals(e.Contacts),
			PrimaryID:         audio.ObjectID,
			PrimaryMaterial:   audio.SizedMaterial(),
			PrimaryAmp:        audio.Amp,
			PrimaryMass:       audio.Mass,
			SecondaryID:       a.floor.ObjectID,
			SecondaryMaterial: a.floor.SizedMaterial(),
			SecondaryAmp:      a.floor.Amp,
			SecondaryMass:     a.floor.Mass,
			Resonance:         audio.Resonance,
		})
	}
	return nil
}

func (a *ImpactAudio) queueSound(params ImpactParams) {
	sound := a.synth.Sound(params)
	if sound == nil {
		// Synthesis can fail on rare degenerate inputs; stay silent.
		a.buffer.Push(&protocol.DoNothing{})
		return
	}
	a.queuePlayback(sound, params.PrimaryID)
}

// queueScrape advances the pair's scrape and queues the resulting chunk.
// A nil sound means the scrape ended; unlike impacts, that queues nothing.
func (a *ImpactAudio) queueScrape(params ImpactParams) {
	sound := a.synth.ScrapeSound(params)
	if sound == nil {
		return
	}
	a.queuePlayback(sound, params.PrimaryID)
}

func (a *ImpactAudio) queuePlayback(sound *Sound, primaryID int32) {
	if a.metrics != nil {
		a.metrics.RecordAudioCommand()
	}
	if a.cfg.ResonanceAudio {
		a.buffer.Push(&protocol.PlayPointSourceData{
			ID:          primaryID,
			NumFrames:   sound.Length,
			NumChannels: 1,
			FrameRate:   SampleRate,
			WavData:     sound.WavData,
			RobotJoint:  a.joints[primaryID],
			YPosOffset:  0.1,
		})
		return
	}
	a.buffer.Push(&protocol.PlayAudioData{
		ID:          primaryID,
		NumFrames:   sound.Length,
		NumChannels: 1,
		FrameRate:   SampleRate,
		WavData:     sound.WavData,
		RobotJoint:  a.joints[primaryID],
		YPosOffset:  0.1,
	})
}

// cacheStaticData builds the per-object audio profiles from the first
// frame's static payloads. Objects missing from the database get derived
// profiles; robot joints are treated as metal.
func (a *ImpactAudio) cacheStaticData(result *controller.Result) error {
	defaults, err := DefaultObjectAudio()
	if err != nil {
		return fmt.Errorf("failed to load audio database: %w", err)
	}

	names := make(map[int32]string)
	categories := make(map[int32]string)
	masses := make(map[int32]float64)
	bouncinesses := make(map[int32]float64)
	for _, p := range result.Payloads {
		switch v := p.(type) {
		case *outputdata.SegmentationColors:
			for _, o := range v.Objects {
				names[o.ID] = strings.ToLower(o.Name)
				categories[o.ID] = o.Category
			}
		case *outputdata.StaticRigidbodies:
			for _, o := range v.Objects {
				masses[o.ID] = o.Mass
				bouncinesses[o.ID] = o.Bounciness
			}
		case *outputdata.StaticRobot:
			for _, j := range v.Joints {
				a.audio[j.ID] = &ObjectAudio{
					Name:       j.Name,
					ObjectID:   j.ID,
					Mass:       j.Mass,
					Material:   RobotJointMaterial,
					Bounciness: RobotJointBounciness,
					Resonance:  DefaultResonance,
					Size:       DefaultSize,
					Amp:        DefaultAmp,
				}
				a.joints[j.ID] = true
			}
		}
	}

	var underive []int32
	for id, name := range names {
		var src *ObjectAudio
		if o, ok := a.cfg.Overrides[name]; ok {
			src = o
		} else if o, ok := defaults[name]; ok {
			src = o
		} else {
			underive = append(underive, id)
			continue
		}
		profile := *src
		profile.ObjectID = id
		profile.Mass = masses[id]
		a.audio[id] = &profile
	}
	for _, id := range underive {
		a.audio[id] = deriveObjectAudio(names[id], id, masses[id], bouncinesses[id], categories[id], categories, a.audio)
	}
	return nil
}

func contactNormals(contacts []outputdata.Contact) []protocol.Vector3 {
	normals := make([]protocol.Vector3, len(contacts))
	for i, c := range contacts {
		normals[i] = c.Normal
	}
	return normals
}
