package stepdrum

import (
	"io"
	"math"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/stepdrum-go/internal/pattern"
	intsynth "github.com/cbegin/stepdrum-go/internal/synth"
	intxport "github.com/cbegin/stepdrum-go/internal/transport"
)

const renderBlock = 256

var quietLog = func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()

type fixedSource struct{ snap *pattern.Snapshot }

func (s fixedSource) Snapshot() *pattern.Snapshot { return s.snap }

// boundedSink drops hits at or after limit so rendering stops after a whole
// number of loops.
type boundedSink struct {
	engine *intsynth.Engine
	limit  float64
}

func (s boundedSink) Trigger(track int, at float64, volume float64) {
	if at >= s.limit {
		return
	}
	s.engine.Trigger(track, at, volume)
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// manualAfter never fires; the offline loop polls by hand.
func manualAfter(time.Duration, func()) intxport.Timer { return idleTimer{} }

// RenderPattern renders loops passes of snap through a fresh engine and
// returns interleaved stereo samples, including the release tail of the
// last hits.
func RenderPattern(snap *pattern.Snapshot, sampleRate int, loops int) []float32 {
	return renderPattern(snap, sampleRate, loops, intsynth.DefaultParams().MasterGain)
}

func renderPattern(snap *pattern.Snapshot, sampleRate int, loops int, gain float64) []float32 {
	if loops < 1 {
		loops = 1
	}
	params := intsynth.DefaultParams()
	engine := intsynth.New(sampleRate, params)
	engine.SetMasterGain(gain)
	engine.SetMuteSource(snap)

	var tail float64
	for _, r := range params.Recipes {
		tail = math.Max(tail, r.Duration)
	}
	length := float64(loops*pattern.NumSteps) * snap.StepDuration()
	frames := int(math.Ceil((length + tail) * float64(sampleRate)))
	out := make([]float32, frames*2)

	sink := boundedSink{engine: engine, limit: length - snap.StepDuration()/2}
	sched := intxport.New(engine, sink, fixedSource{snap}, intxport.Options{
		StartOffset: 0,
		After:       manualAfter,
		Logger:      quietLog,
	})
	sched.Start()
	for pos := 0; pos < frames; pos += renderBlock {
		end := pos + renderBlock
		if end > frames {
			end = frames
		}
		sched.Poll()
		engine.Process(out[pos*2 : end*2])
	}
	sched.Stop()
	return out
}

// EncodeWAV writes samples as 16-bit stereo PCM.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * 32767))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fault.Wrap(err, ftag.With(ftag.Internal), fmsg.WithDesc("wav write failed", "Could not write audio"))
	}
	if err := enc.Close(); err != nil {
		return fault.Wrap(err, ftag.With(ftag.Internal), fmsg.WithDesc("wav finalize failed", "Could not write audio"))
	}
	return nil
}

// BounceWAV renders the current pattern for loops passes at the machine's
// master volume and writes it as a WAV file.
func (m *Machine) BounceWAV(w io.WriteSeeker, loops int) error {
	snap := m.store.Snapshot()
	samples := renderPattern(snap, m.sampleRate, loops, m.engine.MasterGain())
	if err := EncodeWAV(w, samples, m.sampleRate); err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"loops": loops, "bpm": snap.Tempo}).Info("pattern bounced")
	return nil
}
