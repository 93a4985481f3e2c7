package physaudio

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/simbridge/simbridge/pkg/protocol"
)

// collisionAudioInfo is the cached state for one colliding pair. The first
// impact samples the modes; repeat impacts reuse them with jittered powers
// and an amplitude rescaled by impact speed.
type collisionAudioInfo struct {
	modes1    *Modes
	modes2    *Modes
	amp       float64
	initSpeed float64
	count     int
}

// ImpactParams describes one impact to synthesize. The primary object is
// the one that plays the sound, usually the lighter of the two.
type ImpactParams struct {
	Velocity       protocol.Vector3
	ContactNormals []protocol.Vector3

	PrimaryID       int32
	PrimaryMaterial SizedMaterial
	PrimaryAmp      float64
	PrimaryMass     float64

	SecondaryID       int32
	SecondaryMaterial SizedMaterial
	SecondaryAmp      float64
	SecondaryMass     float64

	Resonance float64
}

// Synthesizer turns impacts into audio. It caches mode data per object
// pair so that repeated impacts of the same pair sound related but not
// identical. Safe for concurrent use.
type Synthesizer struct {
	initialAmp        float64
	preventDistortion bool

	mu      sync.Mutex
	rng     *rand.Rand
	cache   map[int32]map[int32]*collisionAudioInfo
	scrapes map[int64]*scrapeState

	scrapeSlope []float64
	scrapeCurve []float64
}

// NewSynthesizer creates a synthesizer. initialAmp is the master volume and
// must be in (0, 1). The seed makes synthesis reproducible.
func NewSynthesizer(initialAmp float64, seed int64) (*Synthesizer, error) {
	if initialAmp <= 0 || initialAmp >= 1 {
		return nil, fmt.Errorf("initial amp is %v (must be > 0 and < 1)", initialAmp)
	}
	rng := rand.New(rand.NewSource(seed))
	slope, curve := buildScrapeSurface(rng)
	return &Synthesizer{
		initialAmp:        initialAmp,
		preventDistortion: true,
		rng:               rng,
		cache:             make(map[int32]map[int32]*collisionAudioInfo),
		scrapes:           make(map[int64]*scrapeState),
		scrapeSlope:       slope,
		scrapeCurve:       curve,
	}, nil
}

// Reset clears the cached pair state. Call it between trials; it is faster
// than creating a new synthesizer.
func (s *Synthesizer) Reset(initialAmp float64) error {
	if initialAmp <= 0 || initialAmp >= 1 {
		return fmt.Errorf("initial amp is %v (must be > 0 and < 1)", initialAmp)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialAmp = initialAmp
	s.cache = make(map[int32]map[int32]*collisionAudioInfo)
	s.scrapes = make(map[int64]*scrapeState)
	return nil
}

// pairInfo returns the cached mode data for a colliding pair, sampling it
// on first contact. The caller holds the lock.
func (s *Synthesizer) pairInfo(params ImpactParams) *collisionAudioInfo {
	if _, ok := s.cache[params.SecondaryID]; !ok {
		s.cache[params.SecondaryID] = make(map[int32]*collisionAudioInfo)
	}
	info, ok := s.cache[params.SecondaryID][params.PrimaryID]
	if !ok {
		info = &collisionAudioInfo{
			modes1:    sampleModes(params.SecondaryMaterial, s.rng),
			modes2:    sampleModes(params.PrimaryMaterial, s.rng),
			amp:       params.PrimaryAmp * s.initialAmp,
			initSpeed: 1,
		}
		s.cache[params.SecondaryID][params.PrimaryID] = info
	}
	return info
}

// Sound synthesizes the impact described by params. Returns nil when the
// impact cannot produce a sound: zero velocity, or a downward velocity that
// implies sliding along the floor rather than striking it.
func (s *Synthesizer) Sound(params ImpactParams) *Sound {
	speed := norm(params.Velocity)
	if speed == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := s.pairInfo(params)
	normalSpeed := s.normalSpeed(params.Velocity, speed, params.ContactNormals)
	mass := math.Min(params.PrimaryMass, params.SecondaryMass)

	var amp float64
	var raw []float64
	if info.count == 0 {
		// The secondary object's contribution is scaled relative to the
		// primary's amp by stretching its decay times.
		amp2re1 := params.SecondaryAmp / params.PrimaryAmp
		for i := range info.modes2.DecayTimes {
			info.modes2.DecayTimes[i] += 20 * math.Log10(amp2re1)
		}
		raw = synthImpactModes(info.modes1, info.modes2, mass, params.Resonance)
		amp = info.amp
		info.initSpeed = normalSpeed
	} else {
		amp = info.amp * normalSpeed / info.initSpeed
		for i := range info.modes1.Powers {
			info.modes1.Powers[i] += s.rng.NormFloat64() * 2
		}
		for i := range info.modes2.Powers {
			info.modes2.Powers[i] += s.rng.NormFloat64() * 2
		}
		raw = synthImpactModes(info.modes1, info.modes2, mass, params.Resonance)
	}
	if raw == nil {
		return nil
	}
	info.count++

	if s.preventDistortion && math.Abs(amp) > 0.99 {
		amp = 0.99
	}
	for i := range raw {
		raw[i] *= amp
	}
	return NewSound(raw)
}

// normalSpeed projects the impact speed onto the contact normals and
// averages, giving the speed normal to the surface.
func (s *Synthesizer) normalSpeed(velocity protocol.Vector3, speed float64, normals []protocol.Vector3) float64 {
	if len(normals) == 0 {
		return speed
	}
	nvel := protocol.Vector3{X: velocity.X / speed, Y: velocity.Y / speed, Z: velocity.Z / speed}
	sum := 0.0
	for _, n := range normals {
		nn := norm(n)
		if nn == 0 {
			continue
		}
		dot := (n.X*nvel.X + n.Y*nvel.Y + n.Z*nvel.Z) / nn
		dot = math.Max(-1, math.Min(1, dot))
		sum += speed * dot
	}
	return sum / float64(len(normals))
}
