package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

type rampSource struct {
	calls atomic.Int64
	next  float32
}

func (s *rampSource) Process(dst []float32) {
	s.calls.Add(1)
	for i := range dst {
		dst[i] = s.next
		s.next += 0.25
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	p := make([]byte, 8*3+5)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 24 {
		t.Fatalf("n = %d, want whole frames only", n)
	}
	for i := 0; i < 6; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != float32(i)*0.25 {
			t.Fatalf("sample %d = %v", i, got)
		}
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	n, err := r.Read(make([]byte, 7))
	if n != 0 || err != nil {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if src.calls.Load() != 0 {
		t.Fatalf("source rendered for a partial frame")
	}
}

func TestPumpDrivesSource(t *testing.T) {
	src := &rampSource{}
	p, err := NewPump(48000, 48, src)
	if err != nil {
		t.Fatalf("NewPump: %v", err)
	}
	if p.IsPlaying() {
		t.Fatalf("pump should start paused")
	}
	p.Play()
	p.Play()
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if src.calls.Load() < 3 {
		t.Fatalf("pump did not render")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.IsPlaying() {
		t.Fatalf("pump still playing after Close")
	}
	calls := src.calls.Load()
	time.Sleep(10 * time.Millisecond)
	if src.calls.Load() != calls {
		t.Fatalf("pump rendered after Close")
	}
}

func TestNewPumpRejectsBadArguments(t *testing.T) {
	if _, err := NewPump(0, 64, &rampSource{}); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if _, err := OpenPump(48000, &rampSource{}); err != nil {
		t.Fatalf("OpenPump: %v", err)
	}
}
