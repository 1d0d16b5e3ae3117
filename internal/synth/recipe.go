package synth

import "github.com/cbegin/stepdrum-go/internal/pattern"

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveTriangle
	WaveNoise
)

type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterBandPass
	FilterHighPass
)

// Osc is one oscillator. EndFreq <= 0 keeps the frequency constant, otherwise
// the frequency glides exponentially from Freq to EndFreq over the voice.
type Osc struct {
	Freq    float64
	EndFreq float64
}

// Layer sums its oscillators (or reads noise), runs the result through an
// optional filter and applies its own amplitude envelope, which starts at
// Level times the trigger volume.
type Layer struct {
	Wave   Waveform
	Oscs   []Osc
	Filter FilterKind
	Cutoff float64
	Level  float64
}

// Recipe describes one instrument. Every layer decays over Duration seconds,
// after which the voice is released.
type Recipe struct {
	Layers   []Layer
	Duration float64
}

func tom(freq float64) Recipe {
	return Recipe{
		Layers:   []Layer{{Wave: WaveSine, Oscs: []Osc{{Freq: freq, EndFreq: freq * 0.2}}, Level: 1}},
		Duration: 0.3,
	}
}

func hat(decay float64) Recipe {
	return Recipe{
		Layers:   []Layer{{Wave: WaveNoise, Filter: FilterHighPass, Cutoff: 7000, Level: 1}},
		Duration: decay,
	}
}

// DefaultRecipes returns the built-in kit in track order.
func DefaultRecipes() [pattern.NumTracks]Recipe {
	var r [pattern.NumTracks]Recipe
	r[pattern.Crash] = Recipe{
		Layers: []Layer{{
			Wave:   WaveSquare,
			Oscs:   []Osc{{Freq: 400}, {Freq: 600}},
			Filter: FilterBandPass,
			Cutoff: 8000,
			Level:  1,
		}},
		Duration: 1.5,
	}
	r[pattern.HighTom] = tom(250)
	r[pattern.MidTom] = tom(180)
	r[pattern.LowTom] = tom(120)
	r[pattern.OpenHat] = hat(0.4)
	r[pattern.ClosedHat] = hat(0.1)
	r[pattern.Snare] = Recipe{
		Layers: []Layer{
			{Wave: WaveTriangle, Oscs: []Osc{{Freq: 200}}, Level: 0.7},
			{Wave: WaveNoise, Filter: FilterHighPass, Cutoff: 2000, Level: 1},
		},
		Duration: 0.2,
	}
	r[pattern.Kick] = Recipe{
		Layers:   []Layer{{Wave: WaveSine, Oscs: []Osc{{Freq: 150, EndFreq: 0.01}}, Level: 1}},
		Duration: 0.5,
	}
	return r
}
