package stepdrum

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/cbegin/stepdrum-go/internal/pattern"
)

func presetSnapshot(t *testing.T, name string) *pattern.Snapshot {
	t.Helper()
	store := pattern.NewStore()
	g, ok := pattern.Preset(name)
	if !ok {
		t.Fatalf("missing preset %q", name)
	}
	store.SetGrid(g, name)
	return store.Snapshot()
}

func peak(samples []float32) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return p
}

func TestRenderPatternLengthAndLevel(t *testing.T) {
	snap := presetSnapshot(t, pattern.DefaultPreset)
	out := RenderPattern(snap, 48000, 1)
	// 32 steps at 120 bpm plus the 1.5s crash tail.
	if want := int(math.Ceil(5.5*48000)) * 2; len(out) != want {
		t.Fatalf("len = %d, want %d", len(out), want)
	}
	if p := peak(out); p == 0 || p > 1 {
		t.Fatalf("peak = %v", p)
	}
}

func TestRenderPatternIsDeterministic(t *testing.T) {
	snap := presetSnapshot(t, "House")
	a := RenderPattern(snap, 22050, 2)
	b := RenderPattern(snap, 22050, 2)
	if len(a) != len(b) {
		t.Fatalf("length differs")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestRenderPatternSilentCases(t *testing.T) {
	empty := pattern.NewStore()
	if p := peak(RenderPattern(empty.Snapshot(), 48000, 1)); p != 0 {
		t.Fatalf("empty pattern peak = %v", p)
	}

	store := pattern.NewStore()
	g, _ := pattern.Preset(pattern.DefaultPreset)
	store.SetGrid(g, "")
	for track := 0; track < pattern.NumTracks; track++ {
		store.SetMute(track, true)
	}
	if p := peak(RenderPattern(store.Snapshot(), 48000, 1)); p != 0 {
		t.Fatalf("all-muted pattern peak = %v", p)
	}
}

func TestRenderPatternPlacesStepsOnTheClock(t *testing.T) {
	store := pattern.NewStore()
	store.SetCell(int(pattern.Snare), 4, true)
	out := RenderPattern(store.Snapshot(), 48000, 1)
	// Step 4 at 120 bpm sounds at 0.5s, frame 24000.
	for f := 0; f < 24000; f++ {
		if out[f*2] != 0 {
			t.Fatalf("sound before step 4 at frame %d", f)
		}
	}
	if out[24000*2] == 0 {
		t.Fatalf("no onset at frame 24000")
	}
}

func TestRenderPatternStopsAfterLoops(t *testing.T) {
	store := pattern.NewStore()
	store.SetCell(int(pattern.ClosedHat), 0, true)
	out := RenderPattern(store.Snapshot(), 48000, 2)
	// Hits at 0s and 4s only; the second hat ends at 4.1s.
	second := 4 * 48000
	if out[second*2] == 0 {
		t.Fatalf("second loop missing")
	}
	for f := second + 4800; f < len(out)/2; f++ {
		if out[f*2] != 0 {
			t.Fatalf("sound after last loop at frame %d", f)
		}
	}
}

func TestEncodeWAV(t *testing.T) {
	samples := []float32{0, 0, 0.5, -0.5, 1, -1, 2, -2}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := EncodeWAV(f, samples, 44100); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	f.Close()

	r, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		t.Fatalf("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.NumChans != 2 || dec.SampleRate != 44100 || dec.BitDepth != 16 {
		t.Fatalf("format = %d ch, %d Hz, %d bit", dec.NumChans, dec.SampleRate, dec.BitDepth)
	}
	want := []int{0, 0, 16384, -16384, 32767, -32767, 32767, -32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(want))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], want[i])
		}
	}
}

func TestBounceWAV(t *testing.T) {
	m, _ := newTestMachine(t, WithPreset("Hip Hop"))
	path := filepath.Join(t.TempDir(), "bounce.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.BounceWAV(f, 1); err != nil {
		t.Fatalf("BounceWAV: %v", err)
	}
	f.Close()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() <= 44 {
		t.Fatalf("bounce is empty")
	}
	if m.IsPlaying() {
		t.Fatalf("bounce started playback")
	}
}
