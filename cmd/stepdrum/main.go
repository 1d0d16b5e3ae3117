package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Southclaws/fault/fmsg"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/stepdrum-go"
	intaudio "github.com/cbegin/stepdrum-go/internal/audio"
	"github.com/cbegin/stepdrum-go/internal/pattern"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		preset     = flag.String("preset", pattern.DefaultPreset, "preset pattern to load")
		bpm        = flag.Int("bpm", pattern.DefaultTempo, "tempo in beats per minute (60..200)")
		seconds    = flag.Float64("seconds", 8, "play for this long (0 = skip playback)")
		volume     = flag.Float64("volume", 0.8, "master volume (0..1)")
		exportDir  = flag.String("export-dir", "", "write drum-pattern-<bpm>bpm.mid into this directory")
		wavPath    = flag.String("wav", "", "bounce the pattern to this WAV file")
		loops      = flag.Int("loops", 2, "pattern passes rendered by -wav")
		silent     = flag.Bool("silent", false, "run the transport without an audio device")
		logLevel   = flag.String("log-level", "info", "log level: debug|info|warn|error")
		list       = flag.Bool("list", false, "list presets and exit")
	)
	flag.Parse()

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid -log-level")
	}
	log.SetLevel(level)

	if *list {
		for _, name := range pattern.PresetNames() {
			fmt.Println(name)
		}
		return
	}

	opts := []stepdrum.Option{
		stepdrum.WithLogger(log),
		stepdrum.WithPreset(*preset),
		stepdrum.WithMasterVolume(*volume),
	}
	if *silent {
		opts = append(opts, stepdrum.WithOutput(intaudio.OpenPump))
	}
	m, err := stepdrum.NewMachine(*sampleRate, opts...)
	if err != nil {
		fatal(log, err)
	}
	defer m.Close()
	if got := m.SetTempo(*bpm); got != *bpm {
		log.WithFields(logrus.Fields{"requested": *bpm, "bpm": got}).Warn("tempo clamped")
	}

	if *exportDir != "" {
		path, err := m.ExportMIDIFile(*exportDir)
		if err != nil {
			fatal(log, err)
		}
		fmt.Println("wrote", path)
	}

	if *wavPath != "" {
		if err := bounce(m, *wavPath, *loops); err != nil {
			fatal(log, err)
		}
		fmt.Println("wrote", *wavPath)
	}

	if *seconds <= 0 {
		return
	}
	ch := m.Watch()
	if err := m.Start(); err != nil {
		fatal(log, err)
	}
	timeout := time.After(time.Duration(*seconds * float64(time.Second)))
	bars := 0
	for {
		select {
		case ev := <-ch:
			if ev.Kind != stepdrum.EventStep {
				continue
			}
			if ev.Step%16 == 0 {
				bars++
				log.WithFields(logrus.Fields{"bar": bars, "step": ev.Step}).Debug("bar")
			}
		case <-timeout:
			m.Stop()
			fmt.Printf("played %d bars\n", bars)
			return
		}
	}
}

func bounce(m *stepdrum.Machine, path string, loops int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.BounceWAV(f, loops); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fatal(log *logrus.Logger, err error) {
	entry := log.WithError(err)
	if issue := fmsg.GetIssue(err); issue != "" {
		entry = entry.WithField("issue", issue)
	}
	entry.Fatal("stepdrum failed")
}
