package physaudio

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// synthImpactModes renders the impact of two objects: the modes of both are
// summed and convolved with a half-sine force profile whose contact time
// scales with the mass of the smaller object. Returns nil when the modes
// produce no signal.
func synthImpactModes(modes1, modes2 *Modes, mass, resonance float64) []float64 {
	h := modeAdd(modes1.SumModes(resonance), modes2.SumModes(resonance))
	if len(h) == 0 {
		return nil
	}
	// A contact time over 2ms is unphysically long.
	maxT := math.Min(0.001*mass, 2e-3)
	n := int(math.Ceil(maxT * SampleRate))
	if n < 1 {
		n = 1
	}
	force := make([]float64, n)
	for i := range force {
		force[i] = math.Sin(math.Pi * float64(i) / float64(n))
	}
	x := fftConvolve(h, force)
	peak := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return nil
	}
	for i := range x {
		x[i] /= peak
	}
	return x
}

// fftConvolve computes the full linear convolution of two signals.
func fftConvolve(a, b []float64) []float64 {
	outLen := len(a) + len(b) - 1
	n := 1
	for n < outLen {
		n <<= 1
	}
	pa := make([]float64, n)
	pb := make([]float64, n)
	copy(pa, a)
	copy(pb, b)

	fft := fourier.NewFFT(n)
	ca := fft.Coefficients(nil, pa)
	cb := fft.Coefficients(nil, pb)
	for i := range ca {
		ca[i] *= cb[i]
	}
	out := fft.Sequence(nil, ca)
	scale := 1 / float64(n)
	for i := range out {
		out[i] *= scale
	}
	return out[:outLen]
}

// Sound is synthesized audio encoded for a play_audio_data command: mono
// 16-bit PCM at 44.1kHz, base64 encoded.
type Sound struct {
	// WavData is the base64 encoded sample data.
	WavData string
	// Length is the number of audio frames.
	Length int
}

// NewSound quantizes a normalized float signal to 16-bit PCM.
func NewSound(samples []float64) *Sound {
	pcm := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	return &Sound{
		WavData: base64.StdEncoding.EncodeToString(pcm),
		Length:  len(samples),
	}
}
