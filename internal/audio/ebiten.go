//go:build !headless

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// BufferSize bounds how far rendering runs ahead of the listener. Hits
// scheduled inside an already rendered block start late by up to this much.
const BufferSize = 30 * time.Millisecond

type devicePlayer struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fault.New(fmt.Sprintf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate),
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("sample rate mismatch", "Audio is already running at a different sample rate"))
	}
	return audioContext, nil
}

// Open starts the platform audio device. The device stays paused until Play.
func Open(sampleRate int, source SampleSource) (Output, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(ftag.Internal),
			fmsg.WithDesc("could not create audio player", "Audio output is not available on this system"))
	}
	pl.SetBufferSize(BufferSize)
	return &devicePlayer{player: pl, reader: reader}, nil
}

func (p *devicePlayer) Play()  { p.player.Play() }
func (p *devicePlayer) Pause() { p.player.Pause() }
func (p *devicePlayer) IsPlaying() bool {
	return p.player.IsPlaying()
}

func (p *devicePlayer) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return fault.Wrap(err, fmsg.With("close audio player"))
	}
	return p.reader.Close()
}
