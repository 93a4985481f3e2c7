package physaudio

import (
	"math"
	"math/rand"
)

// SampleRate of all synthesized audio in Hz.
const SampleRate = 44100

// modeCount is the number of resonant modes per object.
const modeCount = 10

// modeTemplate holds the measured resonant properties of a sized material:
// center frequencies in Hz, onset powers in dB, and decay times in seconds.
type modeTemplate struct {
	cf [modeCount]float64
	op [modeCount]float64
	rt [modeCount]float64
}

// materialProfile parameterizes a material's mode template: the fundamental
// frequency of the smallest size bucket, the fundamental's decay time, and
// how quickly higher modes lose power.
type materialProfile struct {
	baseFreq  float64
	baseDecay float64
	powerDrop float64
}

var materialProfiles = map[Material]materialProfile{
	Ceramic:         {baseFreq: 1800, baseDecay: 0.40, powerDrop: 2.5},
	WoodHard:        {baseFreq: 900, baseDecay: 0.15, powerDrop: 3.5},
	WoodMedium:      {baseFreq: 700, baseDecay: 0.12, powerDrop: 4.0},
	WoodSoft:        {baseFreq: 500, baseDecay: 0.08, powerDrop: 5.0},
	Metal:           {baseFreq: 1200, baseDecay: 1.20, powerDrop: 1.5},
	Glass:           {baseFreq: 2400, baseDecay: 0.60, powerDrop: 2.0},
	Paper:           {baseFreq: 250, baseDecay: 0.03, powerDrop: 6.0},
	Cardboard:       {baseFreq: 200, baseDecay: 0.04, powerDrop: 6.0},
	Leather:         {baseFreq: 150, baseDecay: 0.05, powerDrop: 5.5},
	Fabric:          {baseFreq: 100, baseDecay: 0.03, powerDrop: 7.0},
	PlasticHard:     {baseFreq: 1500, baseDecay: 0.20, powerDrop: 3.0},
	PlasticSoftFoam: {baseFreq: 300, baseDecay: 0.05, powerDrop: 6.0},
	Rubber:          {baseFreq: 150, baseDecay: 0.10, powerDrop: 5.0},
	Stone:           {baseFreq: 1600, baseDecay: 0.30, powerDrop: 3.0},
}

// template builds the mode template for a sized material. Larger size
// buckets shift the spectrum down and ring longer. Mode frequencies follow
// a slightly stretched harmonic series, as measured plates and shells do.
func template(sm SizedMaterial) modeTemplate {
	p := materialProfiles[sm.Material]
	sizeShift := math.Pow(2, -float64(sm.Size)/2)
	var t modeTemplate
	for j := 0; j < modeCount; j++ {
		ratio := math.Pow(float64(j+1), 1.32)
		t.cf[j] = p.baseFreq * sizeShift * ratio
		t.op[j] = -p.powerDrop * float64(j)
		t.rt[j] = p.baseDecay * (1 + 0.3*float64(sm.Size)) / (1 + 0.4*float64(j))
	}
	return t
}

// Modes holds one object's sampled resonant modes: frequencies in Hz,
// powers in dB, and decay times in milliseconds.
type Modes struct {
	Frequencies []float64
	Powers      []float64
	DecayTimes  []float64
}

// sampleModes draws an object's modes from a sized material's template.
// Frequencies and decay times are jittered proportionally, powers by a
// fixed 10 dB, so no two objects of the same material sound identical.
func sampleModes(sm SizedMaterial, rng *rand.Rand) *Modes {
	t := template(sm)
	m := &Modes{
		Frequencies: make([]float64, modeCount),
		Powers:      make([]float64, modeCount),
		DecayTimes:  make([]float64, modeCount),
	}
	for j := 0; j < modeCount; j++ {
		f := 0.0
		for f < 20 {
			f = t.cf[j] + rng.NormFloat64()*t.cf[j]/10
		}
		rt := 0.0
		for rt < 0.001 {
			rt = t.rt[j] + rng.NormFloat64()*t.rt[j]/10
		}
		m.Frequencies[j] = f
		m.Powers[j] = t.op[j] + rng.NormFloat64()*10
		m.DecayTimes[j] = rt * 1e3
	}
	return m
}

// SumModes synthesizes the object's modes as decaying sinusoids and sums
// them. Each mode rings until it has decayed 80 dB below its onset power;
// resonance stretches the decay.
func (m *Modes) SumModes(resonance float64) []float64 {
	var sound []float64
	for j := range m.Frequencies {
		headroom := 80 + m.Powers[j]
		if headroom <= 0 {
			continue
		}
		decaySec := m.DecayTimes[j] / 1e3 * resonance
		lengthSec := decaySec * headroom / 60
		n := int(math.Ceil(lengthSec * SampleRate))
		if n <= 0 {
			continue
		}
		amp := math.Pow(10, m.Powers[j]/20)
		omega := 2 * math.Pi * m.Frequencies[j]
		mode := make([]float64, n)
		for i := range mode {
			t := float64(i) / SampleRate
			env := math.Pow(10, -3*t/decaySec)
			mode[i] = amp * env * math.Cos(omega*t)
		}
		sound = modeAdd(sound, mode)
	}
	return sound
}

// modeAdd sums two signals of possibly different lengths.
func modeAdd(a, b []float64) []float64 {
	if len(b) > len(a) {
		a, b = b, a
	}
	out := make([]float64, len(a))
	copy(out, a)
	for i := range b {
		out[i] += b[i]
	}
	return out
}
