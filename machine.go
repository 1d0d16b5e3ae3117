package stepdrum

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/stepdrum-go/internal/audio"
	intmidi "github.com/cbegin/stepdrum-go/internal/midiexport"
	"github.com/cbegin/stepdrum-go/internal/pattern"
	intsynth "github.com/cbegin/stepdrum-go/internal/synth"
	intxport "github.com/cbegin/stepdrum-go/internal/transport"
)

// StepEvent carries transport events from Watch().
type StepEvent struct {
	Kind int // EventStep, EventStarted or EventStopped
	Step int
}

const (
	EventStep int = iota
	EventStarted
	EventStopped
)

type Option func(*machineConfig)

type machineConfig struct {
	logger       *logrus.Logger
	sched        intxport.Options
	masterVolume float64
	preset       string
	stepHandler  func(step int)
	open         intaudio.Opener
	seed         int64
}

func defaultMachineConfig() machineConfig {
	return machineConfig{
		logger:       logrus.StandardLogger(),
		sched:        intxport.DefaultOptions(),
		masterVolume: intsynth.DefaultParams().MasterGain,
		preset:       pattern.DefaultPreset,
		open:         intaudio.Open,
		seed:         time.Now().UnixNano(),
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(cfg *machineConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithLookAhead sets how far ahead of the audio clock each poll schedules.
func WithLookAhead(seconds float64) Option {
	return func(cfg *machineConfig) {
		cfg.sched.LookAhead = seconds
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(cfg *machineConfig) {
		cfg.sched.PollInterval = d
	}
}

// WithStartOffset sets the gap between Start and the first step.
func WithStartOffset(seconds float64) Option {
	return func(cfg *machineConfig) {
		cfg.sched.StartOffset = seconds
	}
}

func WithMasterVolume(volume float64) Option {
	return func(cfg *machineConfig) {
		cfg.masterVolume = volume
	}
}

// WithPreset loads a named preset into the grid at construction. An empty
// name starts from a blank grid.
func WithPreset(name string) Option {
	return func(cfg *machineConfig) {
		cfg.preset = name
	}
}

// WithStepHandler installs a callback invoked with each step index at about
// the moment it sounds. It runs on a timer goroutine; keep it brief.
func WithStepHandler(fn func(step int)) Option {
	return func(cfg *machineConfig) {
		cfg.stepHandler = fn
	}
}

// WithOutput replaces the platform audio device, e.g. with audio.OpenPump.
func WithOutput(open intaudio.Opener) Option {
	return func(cfg *machineConfig) {
		if open != nil {
			cfg.open = open
		}
	}
}

// WithSeed fixes the random source used by RandomPreset.
func WithSeed(seed int64) Option {
	return func(cfg *machineConfig) {
		cfg.seed = seed
	}
}

// Machine is an eight-track, 32-step drum machine. Editing calls are safe
// from any goroutine and take effect on the next unplayed step.
type Machine struct {
	mu         sync.Mutex
	sampleRate int
	log        *logrus.Logger
	store      *pattern.Store
	engine     *intsynth.Engine
	sched      *intxport.Scheduler
	open       intaudio.Opener
	out        intaudio.Output
	rng        *rand.Rand

	stepHandler func(step int)
	current     atomic.Int32
	eventCh     chan StepEvent
	eventChMu   sync.Mutex
}

func NewMachine(sampleRate int, opts ...Option) (*Machine, error) {
	if sampleRate <= 0 {
		return nil, fault.New("sampleRate must be positive", ftag.With(ftag.InvalidArgument))
	}
	cfg := defaultMachineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	store := pattern.NewStore()
	if cfg.preset != "" {
		g, ok := pattern.Preset(cfg.preset)
		if !ok {
			return nil, fault.New("unknown preset "+cfg.preset,
				ftag.With(ftag.NotFound),
				fmsg.WithDesc("unknown preset", "No preset named "+cfg.preset))
		}
		store.SetGrid(g, cfg.preset)
	}

	engine := intsynth.New(sampleRate, intsynth.DefaultParams())
	engine.SetMasterGain(cfg.masterVolume)
	engine.SetMuteSource(store)

	m := &Machine{
		sampleRate:  sampleRate,
		log:         cfg.logger,
		store:       store,
		engine:      engine,
		open:        cfg.open,
		rng:         rand.New(rand.NewSource(cfg.seed)),
		stepHandler: cfg.stepHandler,
	}
	schedOpts := cfg.sched
	schedOpts.OnStep = m.onStep
	schedOpts.Logger = logrus.NewEntry(cfg.logger)
	m.sched = intxport.New(engine, engine, store, schedOpts)
	return m, nil
}

func (m *Machine) SampleRate() int { return m.sampleRate }

// ensureAudioLocked opens and starts the output once. The device keeps
// running while stopped so auditions sound immediately.
func (m *Machine) ensureAudioLocked() error {
	if m.out != nil {
		return nil
	}
	out, err := m.open(m.sampleRate, m.engine)
	if err != nil {
		m.log.WithError(err).Warn("audio unavailable")
		return fault.Wrap(err,
			ftag.With(ftag.Internal),
			fmsg.WithDesc("audio init failed", "Audio playback is not supported on this system"))
	}
	out.Play()
	m.out = out
	m.log.WithField("sample_rate", m.sampleRate).Debug("audio initialized")
	return nil
}

// Start initializes audio if needed and begins playback from step 0.
// Starting while playing does nothing.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureAudioLocked(); err != nil {
		return err
	}
	if m.sched.Running() {
		return nil
	}
	m.sched.Start()
	m.log.WithField("bpm", m.store.Snapshot().Tempo).Info("playback started")
	m.sendEvent(StepEvent{Kind: EventStarted})
	return nil
}

// Stop ends scheduling. Hits already scheduled ring out.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sched.Running() {
		return
	}
	m.sched.Stop()
	m.current.Store(0)
	m.log.Info("playback stopped")
	m.sendEvent(StepEvent{Kind: EventStopped})
}

func (m *Machine) TogglePlayback() error {
	if m.IsPlaying() {
		m.Stop()
		return nil
	}
	return m.Start()
}

func (m *Machine) IsPlaying() bool {
	return m.sched.Running()
}

// CurrentStep returns the last step reported as sounding.
func (m *Machine) CurrentStep() int {
	return int(m.current.Load())
}

// Close stops playback and releases the audio device.
func (m *Machine) Close() error {
	m.Stop()
	m.mu.Lock()
	out := m.out
	m.out = nil
	m.mu.Unlock()
	if out == nil {
		return nil
	}
	return out.Close()
}

func (m *Machine) onStep(step int) {
	m.current.Store(int32(step))
	m.sendEvent(StepEvent{Kind: EventStep, Step: step})
	if m.stepHandler != nil {
		m.stepHandler(step)
	}
}

func (m *Machine) sendEvent(ev StepEvent) {
	m.eventChMu.Lock()
	ch := m.eventCh
	m.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives transport events. The channel is
// buffered (cap 32) and events are dropped when it is full. Only the most
// recent Watch() channel receives events.
func (m *Machine) Watch() <-chan StepEvent {
	ch := make(chan StepEvent, 32)
	m.eventChMu.Lock()
	m.eventCh = ch
	m.eventChMu.Unlock()
	return ch
}

// ToggleCell flips a cell and returns its new state. Switching a cell on
// while stopped auditions the instrument.
func (m *Machine) ToggleCell(track, step int) bool {
	on := m.store.Toggle(track, step)
	if on && !m.IsPlaying() {
		m.Audition(track)
	}
	return on
}

// Audition plays track once, now, at its current volume.
func (m *Machine) Audition(track int) {
	m.mu.Lock()
	err := m.ensureAudioLocked()
	m.mu.Unlock()
	if err != nil {
		return
	}
	snap := m.store.Snapshot()
	if track < 0 || track >= pattern.NumTracks {
		return
	}
	m.engine.Trigger(track, m.engine.Now(), snap.Volumes[track])
}

func (m *Machine) SetCell(track, step int, on bool) {
	m.store.SetCell(track, step, on)
}

// SetTempo clamps bpm to [60,200] and returns the stored value.
func (m *Machine) SetTempo(bpm int) int {
	return m.store.SetTempo(bpm)
}

func (m *Machine) SetTrackVolume(track int, volume float64) {
	m.store.SetVolume(track, volume)
}

func (m *Machine) SetMute(track int, muted bool) {
	m.store.SetMute(track, muted)
}

func (m *Machine) ToggleMute(track int) bool {
	return m.store.ToggleMute(track)
}

func (m *Machine) SetPitch(track, p int) bool {
	return m.store.SetPitch(track, p)
}

// SetPitchName parses a note name like "C#2". Invalid names leave the
// previous pitch in place and return false.
func (m *Machine) SetPitchName(track int, name string) bool {
	return m.store.SetPitchName(track, name)
}

// SetMasterVolume sets the output level in [0,1]. Takes effect immediately.
func (m *Machine) SetMasterVolume(volume float64) {
	m.engine.SetMasterGain(volume)
}

func (m *Machine) MasterVolume() float64 {
	return m.engine.MasterGain()
}

func (m *Machine) Clear() {
	m.store.Clear()
}

func (m *Machine) LoadPreset(name string) error {
	g, ok := pattern.Preset(name)
	if !ok {
		return fault.New("unknown preset "+name,
			ftag.With(ftag.NotFound),
			fmsg.WithDesc("unknown preset", "No preset named "+name))
	}
	m.store.SetGrid(g, name)
	m.log.WithField("preset", name).Debug("preset loaded")
	return nil
}

// RandomPreset loads a preset other than the one currently selected and
// returns its name.
func (m *Machine) RandomPreset() string {
	m.mu.Lock()
	name := pattern.RandomPresetName(m.rng, m.store.Snapshot().Preset)
	m.mu.Unlock()
	g, _ := pattern.Preset(name)
	m.store.SetGrid(g, name)
	return name
}

// Snapshot returns the current pattern state. It must not be modified.
func (m *Machine) Snapshot() *pattern.Snapshot {
	return m.store.Snapshot()
}

// ExportMIDI writes the current pattern as a Standard MIDI File.
func (m *Machine) ExportMIDI(w io.Writer) error {
	snap := m.store.Snapshot()
	if err := intmidi.Write(w, snap.Grid, snap.Tempo, snap.Pitches); err != nil {
		m.log.WithError(err).Warn("midi export failed")
		return err
	}
	m.log.WithField("bpm", snap.Tempo).Info("midi exported")
	return nil
}

// ExportMIDIFile writes drum-pattern-<bpm>bpm.mid into dir and returns its path.
func (m *Machine) ExportMIDIFile(dir string) (string, error) {
	snap := m.store.Snapshot()
	path := filepath.Join(dir, intmidi.FileName(snap.Tempo))
	f, err := os.Create(path)
	if err != nil {
		return "", fault.Wrap(err,
			ftag.With(ftag.Internal),
			fmsg.WithDesc("cannot create file", "Could not create "+path))
	}
	if err := intmidi.Write(f, snap.Grid, snap.Tempo, snap.Pitches); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fault.Wrap(err,
			ftag.With(ftag.Internal),
			fmsg.WithDesc("cannot write file", "Could not write "+path))
	}
	m.log.WithField("path", path).Info("midi exported")
	return path, nil
}
