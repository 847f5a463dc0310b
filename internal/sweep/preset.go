package sweep

import "strings"

// Preset is a named sweep for a waveguide or coax band
type Preset struct {
	Name   string
	Config Config
}

// presets is the single canonical preset table shared by every front end
var presets = []Preset{
	{"WR-75", Config{Power: -10, FrequencyStart: 9.9e9, FrequencyStop: 15e9, Points: 1021, Bandwidth: 1e3, CalibrationName: "WR75"}},
	{"WR-51", Config{Power: -10, FrequencyStart: 14.5e9, FrequencyStop: 22e9, Points: 1501, Bandwidth: 1e3, CalibrationName: "WR51"}},
	{"WR-42", Config{Power: -10, FrequencyStart: 17.6e9, FrequencyStop: 26.7e9, Points: 1821, Bandwidth: 1e3, CalibrationName: "WR42"}},
	{"WR-34", Config{Power: -10, FrequencyStart: 21.7e9, FrequencyStop: 33e9, Points: 2261, Bandwidth: 1e3, CalibrationName: "WR34"}},
	{"WR-28", Config{Power: -10, FrequencyStart: 26.3e9, FrequencyStop: 40e9, Points: 2741, Bandwidth: 1e3, CalibrationName: "WR28"}},
	{"Coax", Config{Power: -10, FrequencyStart: 2e9, FrequencyStop: 6e9, Points: 1001, Bandwidth: 1e3, CalibrationName: "coaxcav"}},
}

// Presets returns a copy of the preset table in display order
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a preset by name. The match ignores case and dashes,
// so "wr75" finds "WR-75".
func LookupPreset(name string) (Preset, bool) {
	key := normalizePresetName(name)
	for _, p := range presets {
		if normalizePresetName(p.Name) == key {
			return p, true
		}
	}
	return Preset{}, false
}

func normalizePresetName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
}
