package pattern

import (
	"sync"
	"sync/atomic"

	"github.com/cbegin/stepdrum-go/internal/pitch"
)

const (
	MinTempo     = 60
	MaxTempo     = 200
	DefaultTempo = 120

	DefaultTrackVolume = 0.8
)

// Grid is the hit/rest matrix indexed by [track][step].
type Grid [NumTracks][NumSteps]bool

// Empty reports whether no cell is set.
func (g *Grid) Empty() bool {
	for t := range g {
		for s := range g[t] {
			if g[t][s] {
				return false
			}
		}
	}
	return true
}

// StepActive reports whether any track hits on step.
func (g *Grid) StepActive(step int) bool {
	for t := range g {
		if g[t][step] {
			return true
		}
	}
	return false
}

// Snapshot is one committed version of the store. Snapshots are never
// mutated after publication.
type Snapshot struct {
	Version uint64
	Grid    Grid
	Volumes [NumTracks]float64
	Mutes   [NumTracks]bool
	Pitches [NumTracks]int
	Tempo   int
	// Preset names the preset the grid was loaded from, or "" once edited.
	Preset string
}

// StepDuration is the length of a sixteenth note at the snapshot tempo.
func (s *Snapshot) StepDuration() float64 {
	return 0.25 * (60.0 / float64(s.Tempo))
}

// Muted reports whether track is muted in this version.
func (s *Snapshot) Muted(track int) bool {
	if track < 0 || track >= NumTracks {
		return true
	}
	return s.Mutes[track]
}

// Store holds the pattern, per-track metadata and tempo. Writers serialize on
// a mutex and publish a fresh copy; readers load the current copy without
// locking and always see one consistent version.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	snap := &Snapshot{
		Pitches: DefaultPitches(),
		Tempo:   DefaultTempo,
	}
	for i := range snap.Volumes {
		snap.Volumes[i] = DefaultTrackVolume
	}
	s.cur.Store(snap)
	return s
}

// Snapshot returns the latest committed version.
func (s *Store) Snapshot() *Snapshot {
	return s.cur.Load()
}

// Muted reports the live mute state of track.
func (s *Store) Muted(track int) bool {
	return s.Snapshot().Muted(track)
}

func (s *Store) update(fn func(next *Snapshot) bool) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur.Load()
	next := *prev
	if !fn(&next) {
		return prev
	}
	next.Version = prev.Version + 1
	s.cur.Store(&next)
	return &next
}

func validCell(track, step int) bool {
	return track >= 0 && track < NumTracks && step >= 0 && step < NumSteps
}

// Cell returns the live state of one cell.
func (s *Store) Cell(track, step int) bool {
	if !validCell(track, step) {
		return false
	}
	return s.Snapshot().Grid[track][step]
}

// Toggle flips one cell and returns its new state.
func (s *Store) Toggle(track, step int) bool {
	if !validCell(track, step) {
		return false
	}
	snap := s.update(func(next *Snapshot) bool {
		next.Grid[track][step] = !next.Grid[track][step]
		next.Preset = ""
		return true
	})
	return snap.Grid[track][step]
}

func (s *Store) SetCell(track, step int, on bool) {
	if !validCell(track, step) {
		return
	}
	s.update(func(next *Snapshot) bool {
		if next.Grid[track][step] == on {
			return false
		}
		next.Grid[track][step] = on
		next.Preset = ""
		return true
	})
}

// SetGrid replaces the whole pattern. preset records where it came from.
func (s *Store) SetGrid(g Grid, preset string) {
	s.update(func(next *Snapshot) bool {
		next.Grid = g
		next.Preset = preset
		return true
	})
}

func (s *Store) Clear() {
	s.SetGrid(Grid{}, "")
}

// SetTempo clamps bpm to [MinTempo, MaxTempo] and returns the effective tempo.
func (s *Store) SetTempo(bpm int) int {
	bpm = ClampTempo(bpm)
	s.update(func(next *Snapshot) bool {
		if next.Tempo == bpm {
			return false
		}
		next.Tempo = bpm
		return true
	})
	return bpm
}

func ClampTempo(bpm int) int {
	if bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}

// SetVolume clamps volume to [0,1].
func (s *Store) SetVolume(track int, volume float64) {
	if track < 0 || track >= NumTracks {
		return
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	s.update(func(next *Snapshot) bool {
		next.Volumes[track] = volume
		return true
	})
}

func (s *Store) SetMute(track int, muted bool) {
	if track < 0 || track >= NumTracks {
		return
	}
	s.update(func(next *Snapshot) bool {
		if next.Mutes[track] == muted {
			return false
		}
		next.Mutes[track] = muted
		return true
	})
}

// ToggleMute flips the mute flag of track and returns the new state.
func (s *Store) ToggleMute(track int) bool {
	if track < 0 || track >= NumTracks {
		return false
	}
	snap := s.update(func(next *Snapshot) bool {
		next.Mutes[track] = !next.Mutes[track]
		return true
	})
	return snap.Mutes[track]
}

// SetPitch maps track to a MIDI pitch. Out-of-range pitches are rejected and
// the previous mapping is kept.
func (s *Store) SetPitch(track, p int) bool {
	if track < 0 || track >= NumTracks || !pitch.Valid(p) {
		return false
	}
	s.update(func(next *Snapshot) bool {
		next.Pitches[track] = p
		return true
	})
	return true
}

// SetPitchName is SetPitch for a note name such as "C#3".
func (s *Store) SetPitchName(track int, name string) bool {
	p, ok := pitch.NameToPitch(name)
	if !ok {
		return false
	}
	return s.SetPitch(track, p)
}

func (s *Store) ResetPitches() {
	s.update(func(next *Snapshot) bool {
		next.Pitches = DefaultPitches()
		return true
	})
}
