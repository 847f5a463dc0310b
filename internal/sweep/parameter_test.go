package sweep

import (
	"testing"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wr75Table() Table {
	return Table{
		{ParamFrequencyStart, "9.9", GHz},
		{ParamFrequencyStop, "15.0", GHz},
		{ParamPoints, "1021", Unitless},
		{ParamBandwidth, "1", KHz},
		{ParamPower, "-10.0", DBm},
		{ParamCalibration, "WR75", ""},
	}
}

func TestMultiplier(t *testing.T) {
	for _, v := range []float64{0.5, 1, 2.25, 9.9, 15, 1021} {
		for unit, mult := range map[Unit]float64{KHz: 1e3, MHz: 1e6, GHz: 1e9} {
			p := Parameter{ParamFrequencyStart, formatFloat(v), unit}

			got, err := p.frequency()
			require.NoError(t, err)
			assert.Equal(t, v*mult, got, "%g %s", v, unit)
		}
	}

	for _, unit := range []Unit{"Hz", "ghz", "THz", "", "dBm"} {
		_, err := Multiplier(unit)

		var ce *driver.ConfigurationError
		assert.ErrorAs(t, err, &ce, "unit %q", unit)
	}
}

func TestResolve_Scenario(t *testing.T) {
	c, err := wr75Table().Resolve()
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Power:           -10,
		FrequencyStart:  9.9e9,
		FrequencyStop:   1.5e10,
		Points:          1021,
		Bandwidth:       1000,
		CalibrationName: "WR75",
	}, c)
	assert.True(t, c.HasCalibration())
}

func TestResolve_EmptyTable(t *testing.T) {
	c, err := Table{}.Resolve()
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Table(nil).Resolve()
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestResolve_LastDuplicateWins(t *testing.T) {
	table := append(Table{{ParamFrequencyStart, "9.9", GHz}}, wr75Table()[1:]...)
	table = append(table, Parameter{ParamFrequencyStart, "12.0", GHz})

	c, err := table.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 12e9, c.FrequencyStart)
}

func TestResolve_CalibrationSentinel(t *testing.T) {
	table := wr75Table()
	table[5].Value = NoCalibration

	c, err := table.Resolve()
	require.NoError(t, err)
	assert.Equal(t, NoCalibration, c.CalibrationName)
	assert.False(t, c.HasCalibration())

	c, err = wr75Table()[:5].Resolve()
	require.NoError(t, err)
	assert.Equal(t, NoCalibration, c.CalibrationName, "missing cal_name defaults to the sentinel")
}

func TestResolve_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(Table) Table
	}{
		{"unknown frequency unit", func(t Table) Table { t[0].Unit = "THz"; return t }},
		{"bandwidth without unit", func(t Table) Table { t[3].Unit = ""; return t }},
		{"not a number", func(t Table) Table { t[1].Value = "fifteen"; return t }},
		{"fractional points", func(t Table) Table { t[2].Value = "10.5"; return t }},
		{"zero points", func(t Table) Table { t[2].Value = "0"; return t }},
		{"power in watts", func(t Table) Table { t[4].Unit = "W"; return t }},
		{"unknown parameter", func(t Table) Table { return append(t, Parameter{"averaging", "10", ""}) }},
		{"missing stop", func(t Table) Table { return append(t[:1:1], t[2:]...) }},
		{"start above stop", func(t Table) Table { t[0].Value = "20"; return t }},
		{"start equals stop", func(t Table) Table { t[0].Value = "15"; return t }},
		{"negative bandwidth", func(t Table) Table { t[3].Value = "-1"; return t }},
		{"NaN stop", func(t Table) Table { t[1].Value = "NaN"; return t }},
		{"NaN bandwidth", func(t Table) Table { t[3].Value = "NaN"; return t }},
		{"infinite stop", func(t Table) Table { t[1].Value = "Inf"; return t }},
		{"infinite bandwidth", func(t Table) Table { t[3].Value = "+Inf"; return t }},
		{"NaN power", func(t Table) Table { t[4].Value = "nan"; return t }},
		{"infinite power", func(t Table) Table { t[4].Value = "-Inf"; return t }},
		{"infinite points", func(t Table) Table { t[2].Value = "-Inf"; return t }},
		{"quote in calibration", func(t Table) Table { t[5].Value = "WR75', 'x"; return t }},
		{"double quote in calibration", func(t Table) Table { t[5].Value = `WR"75`; return t }},
		{"newline in calibration", func(t Table) Table { t[5].Value = "WR75\n*RST"; return t }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := tc.mutate(wr75Table()).Resolve()
			assert.Nil(t, c)

			var ce *driver.ConfigurationError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestConfig_TableRoundTrip(t *testing.T) {
	for _, p := range Presets() {
		t.Run(p.Name, func(t *testing.T) {
			c, err := p.Config.Table().Resolve()
			require.NoError(t, err)
			assert.InDelta(t, p.Config.FrequencyStart, c.FrequencyStart, 1e-3)
			assert.InDelta(t, p.Config.FrequencyStop, c.FrequencyStop, 1e-3)
			assert.Equal(t, p.Config.Points, c.Points)
			assert.Equal(t, p.Config.Bandwidth, c.Bandwidth)
			assert.Equal(t, p.Config.Power, c.Power)
			assert.Equal(t, p.Config.CalibrationName, c.CalibrationName)
		})
	}
}
