// Package midiexport writes a pattern as a single-track Standard MIDI File on
// the General MIDI percussion channel.
package midiexport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/stepdrum-go/internal/pattern"
	"github.com/cbegin/stepdrum-go/internal/pitch"
)

const (
	TicksPerQuarter = 128
	TicksPerStep    = TicksPerQuarter / 4
	Velocity        = 100
	// Channel is MIDI channel 10, zero based.
	Channel = 9
)

// Encode serializes grid at tempo, mapping each track to pitches[track].
// Consecutive silent steps fold into the wait before the next chord.
func Encode(grid pattern.Grid, tempo int, pitches [pattern.NumTracks]int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, grid, tempo, pitches); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Write(w io.Writer, grid pattern.Grid, tempo int, pitches [pattern.NumTracks]int) error {
	for track, p := range pitches {
		if !pitch.Valid(p) {
			return fault.New(fmt.Sprintf("pitch %d out of range on track %d", p, track),
				ftag.With(ftag.InvalidArgument),
				fmsg.WithDesc("invalid pitch", fmt.Sprintf("%s has no valid MIDI note", pattern.Instrument(track))))
		}
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(float64(pattern.ClampTempo(tempo))))

	rest := 0
	for step := 0; step < pattern.NumSteps; step++ {
		var keys []uint8
		for track := 0; track < pattern.NumTracks; track++ {
			if grid[track][step] {
				keys = append(keys, uint8(pitches[track]))
			}
		}
		if len(keys) == 0 {
			rest++
			continue
		}
		wait := uint32(rest * TicksPerStep)
		for i, key := range keys {
			if i == 0 {
				tr.Add(wait, midi.NoteOn(Channel, key, Velocity))
				continue
			}
			tr.Add(0, midi.NoteOn(Channel, key, Velocity))
		}
		for i, key := range keys {
			if i == 0 {
				tr.Add(TicksPerStep, midi.NoteOff(Channel, key))
				continue
			}
			tr.Add(0, midi.NoteOff(Channel, key))
		}
		rest = 0
	}
	tr.Close(0)

	if err := sm.Add(tr); err != nil {
		return fault.Wrap(err, ftag.With(ftag.Internal), fmsg.WithDesc("could not add track", "MIDI export failed"))
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fault.Wrap(err, ftag.With(ftag.Internal), fmsg.WithDesc("could not write midi file", "MIDI export failed"))
	}
	return nil
}

// FileName is the conventional export name for a pattern at bpm.
func FileName(bpm int) string {
	return fmt.Sprintf("drum-pattern-%dbpm.mid", bpm)
}
