package physaudio

import (
	"math"
	"math/rand"
)

const (
	// scrapeMaxSpeed caps the speed used for scrape loudness and travel.
	scrapeMaxSpeed = 5.0
	// scrapeMetersPerSample is the spatial resolution of the surface
	// profile.
	scrapeMetersPerSample = 1394.068e-9
	// scrapeSurfaceLen is the length of the generated surface profile.
	scrapeSurfaceLen = 1 << 18
	// scrapeForceLen is the length the traversed surface section is
	// resampled to before convolution.
	scrapeForceLen = 4010
	// scrapeHop is how far the running scrape buffer advances per event,
	// 50ms of audio.
	scrapeHop = SampleRate / 20
)

// scrapeState is the per-pair state of an in-progress scrape: the running
// overlap-added waveform and the position on the surface profile.
type scrapeState struct {
	master     []float64
	pos        int
	index      int
	startSpeed float64
	count      int
}

// buildScrapeSurface generates a surface roughness profile and returns its
// first and second spatial derivatives. Smoothed gaussian noise at
// micrometer amplitude stands in for a measured profile.
func buildScrapeSurface(rng *rand.Rand) (slope, curve []float64) {
	height := make([]float64, scrapeSurfaceLen)
	const window = 16
	sum := 0.0
	raw := make([]float64, scrapeSurfaceLen)
	for i := range raw {
		raw[i] = rng.NormFloat64() * 0.5e-6
		sum += raw[i]
		if i >= window {
			sum -= raw[i-window]
		}
		height[i] = sum / window
	}

	slope = make([]float64, scrapeSurfaceLen-1)
	for i := range slope {
		slope[i] = (height[i+1] - height[i]) / scrapeMetersPerSample
	}
	curve = make([]float64, len(slope)-1)
	for i := range curve {
		curve[i] = (slope[i+1] - slope[i]) / scrapeMetersPerSample
	}
	return slope, curve
}

// ScrapeSound synthesizes the next chunk of a sustained scrape between the
// pair in params. Each call advances the scrape; the returned chunks abut,
// so playing them in sequence yields a continuous sound. Returns nil when
// the objects move too slowly to scrape, which also ends the scrape.
func (s *Synthesizer) ScrapeSound(params ImpactParams) *Sound {
	speed := norm(params.Velocity)
	mag := math.Min(speed, scrapeMaxSpeed)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := scrapeKey(params.PrimaryID, params.SecondaryID)
	travel := int(mag / 1000 / scrapeMetersPerSample)
	if travel <= 1 {
		delete(s.scrapes, key)
		return nil
	}
	st, ok := s.scrapes[key]
	if !ok {
		st = &scrapeState{startSpeed: mag}
		s.scrapes[key] = st
	}

	// Speed squared maps to gain on a decibel ramp.
	db := -80 + mag*mag/(scrapeMaxSpeed*scrapeMaxSpeed)*68
	gain := math.Pow(10, db/20)

	info := s.pairInfo(params)
	ir := modeAdd(info.modes1.SumModes(params.Resonance), info.modes2.SumModes(params.Resonance))
	if len(ir) == 0 {
		return nil
	}

	end := st.index + travel
	if end > len(s.scrapeCurve)-100 {
		st.index, end = 0, travel
	}
	slope := resample(s.scrapeSlope[st.index:end], scrapeForceLen)
	curvature := resample(s.scrapeCurve[st.index:end], scrapeForceLen)
	st.index = end

	force := scrapeForce(slope, curvature)
	conv := fftConvolve(ir, force)
	peak := 0.0
	for _, v := range conv {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return nil
	}
	amp := info.amp * gain
	if s.preventDistortion && math.Abs(amp) > 0.99 {
		amp = 0.99
	}
	scale := amp / peak
	for i := range conv {
		conv[i] *= scale
	}

	// Overlap-add into the running waveform and emit the next 50ms. The
	// tail of the previous event bleeds into this chunk, hiding the seams.
	if st.pos+len(conv) > len(st.master) {
		grown := make([]float64, st.pos+len(conv))
		copy(grown, st.master)
		st.master = grown
	}
	for i, v := range conv {
		st.master[st.pos+i] += v
	}
	chunk := make([]float64, scrapeHop)
	copy(chunk, st.master[st.pos:])
	st.pos += scrapeHop
	st.count++

	// Drop the consumed prefix so long scrapes stay bounded.
	if st.pos >= scrapeHop*64 {
		st.master = append([]float64(nil), st.master[st.pos:]...)
		st.pos = 0
	}
	return NewSound(chunk)
}

// EndScrape discards the scrape state for a pair, for contacts that ended
// without slowing down first.
func (s *Synthesizer) EndScrape(primaryID, secondaryID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scrapes, scrapeKey(primaryID, secondaryID))
}

func scrapeKey(primaryID, secondaryID int32) int64 {
	return int64(primaryID)<<32 | int64(uint32(secondaryID))
}

// scrapeForce turns the traversed surface section into a driving force:
// the curvature saturated and smoothed is the vertical component, the
// slope a weaker horizontal one, both normalized, with short edge fades.
func scrapeForce(slope, curvature []float64) []float64 {
	vert := make([]float64, len(curvature))
	for i, c := range curvature {
		vert[i] = math.Tanh(c / 1000)
	}
	vert = gaussianSmooth(vert, 10)

	normalize := func(x []float64) {
		peak := 0.0
		for _, v := range x {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		if peak == 0 {
			return
		}
		for i := range x {
			x[i] /= peak
		}
	}
	normalize(vert)
	normalize(slope)

	force := make([]float64, len(vert))
	for i := range force {
		force[i] = vert[i] + 0.2*slope[i]
	}

	// 4ms fades keep the chunk edges from clicking.
	fade := SampleRate * 4 / 1000
	if fade > len(force)/2 {
		fade = len(force) / 2
	}
	for i := 0; i < fade; i++ {
		ramp := float64(i) / float64(fade)
		force[i] *= ramp
		force[len(force)-1-i] *= ramp
	}
	return force
}

// resample linearly interpolates src to n points.
func resample(src []float64, n int) []float64 {
	out := make([]float64, n)
	if len(src) == 0 {
		return out
	}
	if len(src) == 1 {
		for i := range out {
			out[i] = src[0]
		}
		return out
	}
	step := float64(len(src)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = src[j]*(1-frac) + src[j+1]*frac
	}
	return out
}

// gaussianSmooth convolves x with a gaussian kernel of the given sigma.
func gaussianSmooth(x []float64, sigma float64) []float64 {
	radius := int(3 * sigma)
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	out := make([]float64, len(x))
	for i := range x {
		acc := 0.0
		for k, w := range kernel {
			j := i + k - radius
			if j < 0 {
				j = 0
			} else if j >= len(x) {
				j = len(x) - 1
			}
			acc += w * x[j]
		}
		out[i] = acc
	}
	return out
}
