package synth

import "math"

// biquad is an RBJ cookbook filter in transposed direct form II.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func newBiquad(kind FilterKind, cutoff, sampleRate float64) *biquad {
	if kind == FilterNone {
		return nil
	}
	if cutoff > sampleRate*0.49 {
		cutoff = sampleRate * 0.49
	}
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case FilterBandPass:
		// Q = 1, 0 dB peak gain.
		alpha := sinW / 2
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cosW, 1-alpha
	case FilterHighPass:
		// Q of 1 dB, as browser high-pass filters interpret their default Q.
		alpha := sinW / (2 * math.Pow(10, 1.0/20))
		b0, b1, b2 = (1+cosW)/2, -(1 + cosW), (1+cosW)/2
		a0, a1, a2 = 1+alpha, -2*cosW, 1-alpha
	default:
		return nil
	}
	return &biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}
