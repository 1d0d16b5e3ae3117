package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// Output is a running sink that pulls from a SampleSource.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Opener starts an Output for source at sampleRate.
type Opener func(sampleRate int, source SampleSource) (Output, error)

// StreamReader adapts a SampleSource to the little-endian float32 byte stream
// that audio players read.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }
