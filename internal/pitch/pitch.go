package pitch

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	Min = 0
	Max = 127
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Semitone offsets of the natural letters within an octave.
var letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// After upper-casing, "B" doubles as the flat marker ("EB3" = Eb3).
var namePattern = regexp.MustCompile(`^([A-G])([#B])?(-?\d+)$`)

// Valid reports whether p is a MIDI pitch.
func Valid(p int) bool {
	return p >= Min && p <= Max
}

// PitchToName renders p using sharps and the C4 = 60 octave convention.
// Out-of-range pitches render as "".
func PitchToName(p int) string {
	if !Valid(p) {
		return ""
	}
	return noteNames[p%12] + strconv.Itoa(p/12-1)
}

// NameToPitch parses names like "C#3", "Eb-1" or "g9". The boolean is false
// for malformed names and for names outside the MIDI range.
func NameToPitch(name string) (int, bool) {
	m := namePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(name)))
	if m == nil {
		return 0, false
	}
	octave, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, false
	}
	// Guard the multiplication below against absurd octave numbers.
	if octave < -2 || octave > 10 {
		return 0, false
	}
	semitone := letterOffsets[m[1][0]]
	switch m[2] {
	case "#":
		semitone++
	case "B":
		semitone--
	}
	p := (octave+1)*12 + semitone
	if !Valid(p) {
		return 0, false
	}
	return p, true
}
