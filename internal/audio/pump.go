package audio

import (
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/ftag"
)

// DefaultPumpBlock is the number of frames rendered per pump tick.
const DefaultPumpBlock = 512

// Pump renders a SampleSource in real time and discards the result. It keeps
// the audio clock moving where no device is available.
type Pump struct {
	source SampleSource
	period time.Duration
	buf    []float32

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func OpenPump(sampleRate int, source SampleSource) (Output, error) {
	p, err := NewPump(sampleRate, DefaultPumpBlock, source)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func NewPump(sampleRate, block int, source SampleSource) (*Pump, error) {
	if sampleRate <= 0 || block <= 0 {
		return nil, fault.New("sample rate and block size must be positive", ftag.With(ftag.InvalidArgument))
	}
	return &Pump{
		source: source,
		period: time.Duration(float64(block) / float64(sampleRate) * float64(time.Second)),
		buf:    make([]float32, block*2),
	}, nil
}

func (p *Pump) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
}

func (p *Pump) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.source.Process(p.buf)
		}
	}
}

func (p *Pump) Pause() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (p *Pump) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Pump) Close() error {
	p.Pause()
	return nil
}
