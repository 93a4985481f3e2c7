package physaudio

import (
	"math"

	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
)

// CollisionAudioType classifies a collision event by the sound it should
// produce.
type CollisionAudioType int

const (
	// AudioNone produces no sound.
	AudioNone CollisionAudioType = iota
	// AudioImpact is a discrete strike.
	AudioImpact
	// AudioScrape is a sustained sliding contact.
	AudioScrape
	// AudioRoll is a sustained rolling contact.
	AudioRoll
)

func (t CollisionAudioType) String() string {
	switch t {
	case AudioImpact:
		return "impact"
	case AudioScrape:
		return "scrape"
	case AudioRoll:
		return "roll"
	default:
		return "none"
	}
}

// rollAngularVelocity is the angular speed above which a sustained contact
// counts as rolling rather than scraping.
const rollAngularVelocity = 0.1

// ClassifiedCollisions are one frame's collision events grouped by audio
// type.
type ClassifiedCollisions struct {
	Impacts    []*outputdata.Collision
	EnvImpacts []*outputdata.EnvironmentCollision
	Scrapes    []*outputdata.Collision
	EnvScrapes []*outputdata.EnvironmentCollision
	Rolls      []*outputdata.Collision
	EnvRolls   []*outputdata.EnvironmentCollision
}

func norm(v protocol.Vector3) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ClassifyCollisions sorts a frame's collision payloads into audio types.
// Impacts are enter events, suppressed when the same pair also reports a
// stay or exit on this frame (repeated enters while resting would otherwise
// drone). Stays are rolls when either body spins faster than the threshold,
// scrapes otherwise. Exits make no sound.
func ClassifyCollisions(payloads []outputdata.Payload) *ClassifiedCollisions {
	type pair struct{ a, b int32 }
	makePair := func(a, b int32) pair {
		if a > b {
			a, b = b, a
		}
		return pair{a, b}
	}

	angular := make(map[int32]float64)
	objEnters := make(map[pair][]*outputdata.Collision)
	objStays := make(map[pair][]*outputdata.Collision)
	objExits := make(map[pair]bool)
	envEnters := make(map[int32][]*outputdata.EnvironmentCollision)
	envStays := make(map[int32][]*outputdata.EnvironmentCollision)
	envExits := make(map[int32]bool)

	for _, p := range payloads {
		switch v := p.(type) {
		case *outputdata.Rigidbodies:
			for _, o := range v.Objects {
				angular[o.ID] = norm(o.AngularVelocity)
			}
		case *outputdata.RobotJointVelocities:
			for _, j := range v.Joints {
				angular[j.ID] = norm(j.AngularVelocity)
			}
		case *outputdata.Collision:
			key := makePair(v.ColliderID, v.CollideeID)
			switch v.State {
			case outputdata.CollisionEnter:
				objEnters[key] = append(objEnters[key], v)
			case outputdata.CollisionStay:
				objStays[key] = append(objStays[key], v)
			case outputdata.CollisionExit:
				objExits[key] = true
			}
		case *outputdata.EnvironmentCollision:
			switch v.State {
			case outputdata.CollisionEnter:
				envEnters[v.ObjectID] = append(envEnters[v.ObjectID], v)
			case outputdata.CollisionStay:
				envStays[v.ObjectID] = append(envStays[v.ObjectID], v)
			case outputdata.CollisionExit:
				envExits[v.ObjectID] = true
			}
		}
	}

	out := &ClassifiedCollisions{}
	for key, events := range objEnters {
		if _, stay := objStays[key]; stay || objExits[key] {
			continue
		}
		out.Impacts = append(out.Impacts, events...)
	}
	for id, events := range envEnters {
		if _, stay := envStays[id]; stay || envExits[id] {
			continue
		}
		out.EnvImpacts = append(out.EnvImpacts, events...)
	}
	for key, events := range objStays {
		if angular[key.a] > rollAngularVelocity || angular[key.b] > rollAngularVelocity {
			out.Rolls = append(out.Rolls, events...)
		} else {
			out.Scrapes = append(out.Scrapes, events...)
		}
	}
	for id, events := range envStays {
		if angular[id] > rollAngularVelocity {
			out.EnvRolls = append(out.EnvRolls, events...)
		} else {
			out.EnvScrapes = append(out.EnvScrapes, events...)
		}
	}
	return out
}
