package synth

import "math"

type oscState struct {
	phase   float64 // [0,1)
	freq    float64
	freqMul float64 // per-frame multiplier of the exponential glide
}

type layerState struct {
	wave     Waveform
	oscs     []oscState
	filter   *biquad
	amp      float64
	ampMul   float64
	noisePos int
}

// voice is one self-terminating hit. It renders frames [start, end) of the
// audio clock.
type voice struct {
	track  int
	start  int64
	end    int64
	gain   float64
	layers []layerState
}

// expRatio is the per-frame multiplier that takes from to to in n frames.
func expRatio(from, to float64, n int64) float64 {
	if n <= 0 || from <= 0 || to <= 0 {
		return 1
	}
	return math.Pow(to/from, 1/float64(n))
}

func newVoice(track int, recipe *Recipe, start int64, volume float64, sampleRate, floor float64) *voice {
	frames := int64(math.Round(recipe.Duration * sampleRate))
	if frames < 1 {
		frames = 1
	}
	v := &voice{
		track:  track,
		start:  start,
		end:    start + frames,
		gain:   volume,
		layers: make([]layerState, len(recipe.Layers)),
	}
	for i, l := range recipe.Layers {
		ls := &v.layers[i]
		ls.wave = l.Wave
		ls.filter = newBiquad(l.Filter, l.Cutoff, sampleRate)
		ls.amp = l.Level * volume
		ls.ampMul = expRatio(ls.amp, floor, frames)
		if l.Wave == WaveNoise {
			continue
		}
		ls.oscs = make([]oscState, len(l.Oscs))
		for j, o := range l.Oscs {
			ls.oscs[j] = oscState{freq: o.Freq, freqMul: 1}
			if o.EndFreq > 0 {
				ls.oscs[j].freqMul = expRatio(o.Freq, o.EndFreq, frames)
			}
		}
	}
	return v
}

// shift moves a late voice so it starts on frame at without shortening it.
func (v *voice) shift(at int64) {
	if v.start >= at {
		return
	}
	d := at - v.start
	v.start += d
	v.end += d
}

func (v *voice) render(noise []float64, sampleRate float64) float64 {
	var out float64
	for i := range v.layers {
		ls := &v.layers[i]
		var raw float64
		if ls.wave == WaveNoise {
			raw = noise[ls.noisePos]
			ls.noisePos++
			if ls.noisePos >= len(noise) {
				ls.noisePos = 0
			}
		} else {
			for j := range ls.oscs {
				raw += ls.oscs[j].next(ls.wave, sampleRate)
			}
		}
		if ls.filter != nil {
			raw = ls.filter.process(raw)
		}
		out += raw * ls.amp
		ls.amp *= ls.ampMul
	}
	return out * v.gain
}

func (o *oscState) next(wave Waveform, sampleRate float64) float64 {
	dt := o.freq / sampleRate
	var out float64
	switch wave {
	case WaveSine:
		out = math.Sin(2 * math.Pi * o.phase)
	case WaveSquare:
		out = -1
		if o.phase < 0.5 {
			out = 1
		}
		out += polyBLEP(o.phase, dt)
		out -= polyBLEP(math.Mod(o.phase+0.5, 1), dt)
	case WaveTriangle:
		out = 1 - 4*math.Abs(o.phase-0.5)
	}
	o.phase += dt
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	o.freq *= o.freqMul
	return out
}

// polyBLEP smooths the square wave's discontinuities. t is the phase in
// [0,1), dt the phase increment per frame.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}
