package synth

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/cbegin/stepdrum-go/internal/pattern"
)

type Params struct {
	MasterGain float64
	// Floor is the level every amplitude envelope decays toward.
	Floor        float64
	NoiseSeconds float64
	NoiseSeed    int64
	Recipes      [pattern.NumTracks]Recipe
}

func DefaultParams() Params {
	return Params{
		MasterGain:   0.8,
		Floor:        0.01,
		NoiseSeconds: 2,
		NoiseSeed:    1,
		Recipes:      DefaultRecipes(),
	}
}

// MuteSource reports the live mute state of a track.
type MuteSource interface {
	Muted(track int) bool
}

// Engine turns triggers into voices and mixes them on the audio clock. The
// clock is the number of frames rendered so far; Process is the only thing
// that advances it.
type Engine struct {
	sampleRate float64
	params     Params
	noise      []float64
	masterGain atomic.Uint64
	frames     atomic.Int64
	active     atomic.Int32

	mu      sync.Mutex
	pending []*voice
	mutes   MuteSource

	// Owned by the render path.
	voices []*voice
}

func New(sampleRate int, params Params) *Engine {
	if params.Floor <= 0 {
		params.Floor = 0.01
	}
	if params.NoiseSeconds <= 0 {
		params.NoiseSeconds = 2
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
	}
	n := int(params.NoiseSeconds * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	rng := rand.New(rand.NewSource(params.NoiseSeed))
	e.noise = make([]float64, n)
	for i := range e.noise {
		e.noise[i] = rng.Float64()*2 - 1
	}
	e.SetMasterGain(params.MasterGain)
	return e
}

func (e *Engine) SampleRate() int {
	return int(e.sampleRate)
}

// Now returns the audio clock in seconds.
func (e *Engine) Now() float64 {
	return float64(e.frames.Load()) / e.sampleRate
}

// SetMuteSource attaches the live mute table consulted by Trigger.
func (e *Engine) SetMuteSource(src MuteSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mutes = src
}

// Trigger schedules a hit of track at the absolute clock time at. It only
// queues the voice; rendering happens in Process.
func (e *Engine) Trigger(track int, at float64, volume float64) {
	if track < 0 || track >= pattern.NumTracks || volume <= 0 {
		return
	}
	e.mu.Lock()
	mutes := e.mutes
	e.mu.Unlock()
	if mutes != nil && mutes.Muted(track) {
		return
	}
	start := int64(math.Round(at * e.sampleRate))
	v := newVoice(track, &e.params.Recipes[track], start, volume, e.sampleRate, e.params.Floor)
	e.mu.Lock()
	e.pending = append(e.pending, v)
	e.mu.Unlock()
}

// Process renders interleaved stereo frames into dst and advances the clock.
func (e *Engine) Process(dst []float32) {
	frames := int64(len(dst) / 2)
	base := e.frames.Load()
	end := base + frames
	e.stage(base, end)

	gain := e.MasterGain()
	for f := int64(0); f < frames; f++ {
		frame := base + f
		var mix float64
		for _, v := range e.voices {
			if frame < v.start || frame >= v.end {
				continue
			}
			mix += v.render(e.noise, e.sampleRate)
		}
		out := float32(clamp(mix*gain, -1, 1))
		dst[f*2] = out
		dst[f*2+1] = out
	}

	kept := e.voices[:0]
	for _, v := range e.voices {
		if v.end > end {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(e.voices); i++ {
		e.voices[i] = nil
	}
	e.voices = kept
	e.active.Store(int32(len(kept)))
	e.frames.Store(end)
}

// stage moves pending voices that start before end onto the render list.
func (e *Engine) stage(base, end int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return
	}
	kept := e.pending[:0]
	for _, v := range e.pending {
		if v.start < end {
			v.shift(base)
			e.voices = append(e.voices, v)
			continue
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(e.pending); i++ {
		e.pending[i] = nil
	}
	e.pending = kept
}

// ActiveVoiceCount returns the voices still sounding after the last Process.
func (e *Engine) ActiveVoiceCount() int {
	return int(e.active.Load())
}

// PendingVoiceCount returns triggered voices not yet reached by the clock.
func (e *Engine) PendingVoiceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// SetMasterGain clamps gain to [0,1]. Safe to call from any goroutine.
func (e *Engine) SetMasterGain(gain float64) {
	e.masterGain.Store(math.Float64bits(clamp(gain, 0, 1)))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(e.masterGain.Load())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
