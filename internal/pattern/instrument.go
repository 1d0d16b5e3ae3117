package pattern

const (
	NumTracks = 8
	NumSteps  = 32
)

// Instrument identifies a track. The order is fixed and doubles as the
// track index.
type Instrument int

const (
	Crash Instrument = iota
	HighTom
	MidTom
	LowTom
	OpenHat
	ClosedHat
	Snare
	Kick
)

var instrumentNames = [NumTracks]string{
	"CRASH",
	"HIGH TOM",
	"MID TOM",
	"LOW TOM",
	"OPEN HI-HAT",
	"CLOSED HI-HAT",
	"SNARE",
	"KICK",
}

// General MIDI percussion keys.
var defaultPitches = [NumTracks]int{49, 50, 47, 43, 46, 42, 38, 36}

func (i Instrument) Valid() bool {
	return i >= 0 && int(i) < NumTracks
}

func (i Instrument) String() string {
	if !i.Valid() {
		return "UNKNOWN"
	}
	return instrumentNames[i]
}

func (i Instrument) DefaultPitch() int {
	if !i.Valid() {
		return 0
	}
	return defaultPitches[i]
}

// Instruments returns the instruments in track order.
func Instruments() []Instrument {
	out := make([]Instrument, NumTracks)
	for i := range out {
		out[i] = Instrument(i)
	}
	return out
}

// DefaultPitches returns the default pitch map in track order.
func DefaultPitches() [NumTracks]int {
	return defaultPitches
}
