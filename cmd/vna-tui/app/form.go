package app

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/roman-kulish/vna-sparams/internal/sweep"
	"github.com/roman-kulish/vna-sparams/internal/vna"
)

const (
	fieldAddress field = iota
	fieldStart
	fieldStop
	fieldPoints
	fieldBandwidth
	fieldPower
	fieldCalibration
	fieldFile
	fieldCount
)

// presetSelect is the first choice of the preset selector and leaves the
// form untouched
const presetSelect = "Select"

type field int

type fieldSpec struct {
	label       string
	placeholder string
	param       sweep.ParameterName // empty for fields outside the sweep table
	unit        sweep.Unit
}

var fields = [fieldCount]fieldSpec{
	fieldAddress:     {label: "IP address", placeholder: "10.43.1.19"},
	fieldStart:       {label: "Start (GHz)", placeholder: "9.9", param: sweep.ParamFrequencyStart, unit: sweep.GHz},
	fieldStop:        {label: "Stop (GHz)", placeholder: "15", param: sweep.ParamFrequencyStop, unit: sweep.GHz},
	fieldPoints:      {label: "Points", placeholder: "1021", param: sweep.ParamPoints, unit: sweep.Unitless},
	fieldBandwidth:   {label: "IF bandwidth (kHz)", placeholder: "1", param: sweep.ParamBandwidth, unit: sweep.KHz},
	fieldPower:       {label: "Power (dBm)", placeholder: "-10", param: sweep.ParamPower, unit: sweep.DBm},
	fieldCalibration: {label: "Calibration", placeholder: sweep.NoCalibration, param: sweep.ParamCalibration},
	fieldFile:        {label: "Output file", placeholder: "dut.s2p"},
}

// form holds the operator's sweep settings
type form struct {
	inputs  [fieldCount]textinput.Model
	presets []string
	preset  int // index into presets, 0 is presetSelect
}

func newForm(address string) form {
	f := form{presets: []string{presetSelect}}
	for _, p := range sweep.Presets() {
		f.presets = append(f.presets, p.Name)
	}

	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = fields[i].placeholder
		ti.CharLimit = 64
		ti.Width = 24
		ti.Prompt = ""
		f.inputs[i] = ti
	}
	f.inputs[fieldAddress].SetValue(address)

	return f
}

// selectPreset moves the selector by delta and overwrites every sweep field
// with the preset values, calibration included
func (f *form) selectPreset(delta int) {
	f.preset = (f.preset + delta + len(f.presets)) % len(f.presets)
	if f.preset == 0 {
		return
	}

	p, ok := sweep.LookupPreset(f.presets[f.preset])
	if !ok {
		return
	}

	for _, row := range p.Config.Table() {
		for i, def := range fields {
			if def.param == row.Name {
				f.inputs[i].SetValue(row.Value)
			}
		}
	}
}

func (f *form) value(i field) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// table validates the form and builds the configuration table. An empty
// calibration means no calibration.
func (f *form) table() (sweep.Table, error) {
	if err := vna.ValidateAddress(f.value(fieldAddress)); err != nil {
		return nil, err
	}
	if f.value(fieldFile) == "" {
		return nil, errors.New("output file name is required")
	}

	var table sweep.Table
	for i, def := range fields {
		if def.param == "" {
			continue
		}

		v := f.value(field(i))
		if def.param == sweep.ParamCalibration && v == "" {
			v = sweep.NoCalibration
		}
		table = append(table, sweep.Parameter{Name: def.param, Value: v, Unit: def.unit})
	}

	if _, err := table.Resolve(); err != nil {
		return nil, err
	}

	return table, nil
}
