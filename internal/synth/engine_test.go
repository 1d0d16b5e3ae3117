package synth

import (
	"math"
	"testing"

	"github.com/cbegin/stepdrum-go/internal/pattern"
)

const testRate = 48000

type muteTable map[int]bool

func (m muteTable) Muted(track int) bool { return m[track] }

func render(e *Engine, frames int) []float32 {
	buf := make([]float32, frames*2)
	e.Process(buf)
	return buf
}

func TestTriggerStartsOnScheduledFrame(t *testing.T) {
	e := New(testRate, DefaultParams())
	e.Trigger(int(pattern.Snare), 0.01, 1)
	if e.Now() != 0 {
		t.Fatalf("trigger must not advance the clock")
	}
	if e.PendingVoiceCount() != 1 {
		t.Fatalf("expected one pending voice")
	}
	buf := render(e, 1024)
	for f := 0; f < 480; f++ {
		if buf[f*2] != 0 || buf[f*2+1] != 0 {
			t.Fatalf("sound before scheduled frame at %d", f)
		}
	}
	if buf[480*2] == 0 {
		t.Fatalf("expected snare onset on frame 480")
	}
	if got, want := e.Now(), 1024.0/testRate; got != want {
		t.Fatalf("clock = %v, want %v", got, want)
	}
}

func TestTriggerAcrossBlocks(t *testing.T) {
	e := New(testRate, DefaultParams())
	e.Trigger(int(pattern.Snare), 1500.0/testRate, 1)
	render(e, 1024)
	if e.PendingVoiceCount() != 1 || e.ActiveVoiceCount() != 0 {
		t.Fatalf("voice should still be pending after first block")
	}
	buf := render(e, 1024)
	onset := 1500 - 1024
	if buf[(onset-1)*2] != 0 || buf[onset*2] == 0 {
		t.Fatalf("onset not on frame %d of second block", onset)
	}
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("expected one active voice, got %d", e.ActiveVoiceCount())
	}
}

func TestMutedTrackIgnored(t *testing.T) {
	e := New(testRate, DefaultParams())
	e.SetMuteSource(muteTable{int(pattern.Snare): true})
	e.Trigger(int(pattern.Snare), 0, 1)
	e.Trigger(int(pattern.Kick), 0, 1)
	if got := e.PendingVoiceCount(); got != 1 {
		t.Fatalf("pending = %d, want only the kick", got)
	}
}

func TestInvalidTriggersIgnored(t *testing.T) {
	e := New(testRate, DefaultParams())
	e.Trigger(-1, 0, 1)
	e.Trigger(pattern.NumTracks, 0, 1)
	e.Trigger(0, 0, 0)
	if e.PendingVoiceCount() != 0 {
		t.Fatalf("invalid triggers were queued")
	}
}

func TestVoiceReleasedAfterDuration(t *testing.T) {
	e := New(testRate, DefaultParams())
	e.Trigger(int(pattern.ClosedHat), 0, 1)
	render(e, 4096)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("closed hat should still sound after 4096 frames")
	}
	buf := render(e, 4096)
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("closed hat should be released after 0.1s")
	}
	// 0.1s = 4800 frames; the second block holds frames 4096..8191.
	for f := 4800 - 4096; f < 4096; f++ {
		if buf[f*2] != 0 {
			t.Fatalf("sound after release at frame %d", 4096+f)
		}
	}
}

func TestOverlappingVoicesOfSameInstrument(t *testing.T) {
	e := New(testRate, DefaultParams())
	for i := 0; i < 20; i++ {
		e.Trigger(int(pattern.Crash), float64(i)*0.001, 0.5)
	}
	render(e, 2048)
	if got := e.ActiveVoiceCount(); got != 20 {
		t.Fatalf("active voices = %d, want 20", got)
	}
}

func TestLateTriggerStartsImmediately(t *testing.T) {
	e := New(testRate, DefaultParams())
	render(e, 1024)
	e.Trigger(int(pattern.Snare), 0, 1)
	buf := render(e, 256)
	if buf[0] == 0 {
		t.Fatalf("late voice should start on the first frame of the next block")
	}
}

func TestMasterGain(t *testing.T) {
	e := New(testRate, DefaultParams())
	if e.MasterGain() != 0.8 {
		t.Fatalf("default master gain = %v", e.MasterGain())
	}
	e.SetMasterGain(3)
	if e.MasterGain() != 1 {
		t.Fatalf("master gain should clamp to 1")
	}
	e.SetMasterGain(0)
	e.Trigger(int(pattern.Snare), 0, 1)
	for _, s := range render(e, 2048) {
		if s != 0 {
			t.Fatalf("zero master gain must silence output")
		}
	}
}

func TestEnvelopesReachFloor(t *testing.T) {
	recipes := DefaultRecipes()
	for _, inst := range pattern.Instruments() {
		r := &recipes[inst]
		v := newVoice(int(inst), r, 0, 0.9, testRate, 0.01)
		noise := make([]float64, 16)
		for f := v.start; f < v.end; f++ {
			v.render(noise, testRate)
		}
		for i, ls := range v.layers {
			if math.Abs(ls.amp-0.01) > 1e-6 {
				t.Fatalf("%s layer %d amp = %v, want 0.01", inst, i, ls.amp)
			}
		}
	}
}

func TestFrequencyGlides(t *testing.T) {
	recipes := DefaultRecipes()
	cases := []struct {
		inst pattern.Instrument
		want float64
	}{
		{pattern.HighTom, 50},
		{pattern.MidTom, 36},
		{pattern.LowTom, 24},
		{pattern.Kick, 0.01},
	}
	for _, tc := range cases {
		v := newVoice(int(tc.inst), &recipes[tc.inst], 0, 1, testRate, 0.01)
		for f := v.start; f < v.end; f++ {
			v.render(nil, testRate)
		}
		got := v.layers[0].oscs[0].freq
		if math.Abs(got-tc.want)/tc.want > 1e-6 {
			t.Fatalf("%s end freq = %v, want %v", tc.inst, got, tc.want)
		}
	}
	crash := newVoice(int(pattern.Crash), &recipes[pattern.Crash], 0, 1, testRate, 0.01)
	for f := crash.start; f < crash.end; f++ {
		crash.render(nil, testRate)
	}
	if crash.layers[0].oscs[0].freq != 400 || crash.layers[0].oscs[1].freq != 600 {
		t.Fatalf("crash oscillators should hold their pitch")
	}
}

func TestSnareOscillatorWeighting(t *testing.T) {
	recipes := DefaultRecipes()
	v := newVoice(int(pattern.Snare), &recipes[pattern.Snare], 0, 0.5, testRate, 0.01)
	if v.layers[0].amp != 0.35 || v.layers[1].amp != 0.5 {
		t.Fatalf("snare layer levels = %v / %v", v.layers[0].amp, v.layers[1].amp)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a := New(testRate, DefaultParams())
	b := New(testRate, DefaultParams())
	for _, e := range []*Engine{a, b} {
		for _, inst := range pattern.Instruments() {
			e.Trigger(int(inst), float64(inst)*0.01, 0.8)
		}
	}
	ba := render(a, 8192)
	bb := render(b, 8192)
	var energy float64
	for i := range ba {
		if ba[i] != bb[i] {
			t.Fatalf("outputs differ at sample %d", i)
		}
		energy += math.Abs(float64(ba[i]))
	}
	if energy == 0 {
		t.Fatalf("expected non-zero audio energy")
	}
}

func TestFiltersRejectDC(t *testing.T) {
	for _, kind := range []FilterKind{FilterHighPass, FilterBandPass} {
		f := newBiquad(kind, 2000, testRate)
		var y float64
		for i := 0; i < 4000; i++ {
			y = f.process(1)
		}
		if math.Abs(y) > 1e-3 {
			t.Fatalf("filter %d passes DC: %v", kind, y)
		}
	}
	if newBiquad(FilterNone, 1000, testRate) != nil {
		t.Fatalf("FilterNone should not build a filter")
	}
}

func BenchmarkEngineProcess(b *testing.B) {
	buf := make([]float32, 2048*2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := New(testRate, DefaultParams())
		for _, inst := range pattern.Instruments() {
			e.Trigger(int(inst), 0, 0.8)
		}
		e.Process(buf)
	}
}
