package pattern

import (
	"math/rand"
	"sort"
	"strings"
)

const DefaultPreset = "Basic 1 (8 Beat)"

// Rows are in track order; 'x' is a hit, spaces are ignored and an empty
// row is silent.
var presetRows = map[string][NumTracks]string{
	"Basic 1 (8 Beat)": {
		ClosedHat: "x.x. x.x. x.x. x.x. x.x. x.x. x.x. x.x.",
		Snare:     ".... x... .... x... .... x... .... x...",
		Kick:      "x... .... x... .... x... .... x... ....",
	},
	"Basic 2 (16 Beat)": {
		Crash:     "x... .... .... .... .... .... .... ....",
		ClosedHat: "xxxx xxxx xxxx xxxx xxxx xxxx xxxx xxxx",
		Snare:     ".... x... .... x... .... x... .... x...",
		Kick:      "x..x .... x.x. .... x..x .... x.x. ....",
	},
	"House": {
		Crash:     "x... .... .... .... .... .... .... ....",
		OpenHat:   "..x. ..x. ..x. ..x. ..x. ..x. ..x. ..x.",
		ClosedHat: "x... x... x... x... x... x... x... x...",
		Snare:     ".... x... .... x... .... x... .... x...",
		Kick:      "x... x... x... x... x... x... x... x...",
	},
	"Hip Hop": {
		OpenHat:   ".... .... .... ..x. .... .... .... ..x.",
		ClosedHat: "x.x. x.xx x.x. x... x.x. x.xx x.x. x...",
		Snare:     ".... x... .... x... .... x... .... x...",
		Kick:      "x... ..x. .x.. .... x... ..x. .x.. ....",
	},
	"Reggaeton": {
		ClosedHat: "x.x. x.x. x.x. x.x. x.x. x.x. x.x. x.x.",
		Snare:     "...x ..x. ...x ..x. ...x ..x. ...x ..x.",
		Kick:      "x... x... x... x... x... x... x... x...",
	},
}

func parseRows(rows [NumTracks]string) Grid {
	var g Grid
	for t, row := range rows {
		step := 0
		for _, r := range strings.ReplaceAll(row, " ", "") {
			if step >= NumSteps {
				break
			}
			g[t][step] = r == 'x'
			step++
		}
	}
	return g
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presetRows))
	for name := range presetRows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the grid for a named preset.
func Preset(name string) (Grid, bool) {
	rows, ok := presetRows[name]
	if !ok {
		return Grid{}, false
	}
	return parseRows(rows), true
}

// RandomPresetName picks a preset other than current.
func RandomPresetName(rng *rand.Rand, current string) string {
	names := PresetNames()
	candidates := names[:0:0]
	for _, name := range names {
		if name != current {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return names[0]
	}
	return candidates[rng.Intn(len(candidates))]
}
