package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

// NoCalibration is the calibration name meaning "do not recall a
// calibration file". It is a literal string, not an empty value.
const NoCalibration = "None"

// Config is a resolved frequency sweep. Frequencies and bandwidth are in
// Hz, power in dBm.
type Config struct {
	Power           float64 `yaml:"power" json:"power"`
	FrequencyStart  float64 `yaml:"frequencyStart" json:"frequencyStart"`
	FrequencyStop   float64 `yaml:"frequencyStop" json:"frequencyStop"`
	Points          int     `yaml:"points" json:"points"`
	Bandwidth       float64 `yaml:"bandwidth" json:"bandwidth"`
	CalibrationName string  `yaml:"calibrationName" json:"calibrationName"`
}

// HasCalibration reports whether a calibration file must be recalled
func (c *Config) HasCalibration() bool {
	return c.CalibrationName != "" && c.CalibrationName != NoCalibration
}

func (c *Config) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"power", c.Power},
		{"start frequency", c.FrequencyStart},
		{"stop frequency", c.FrequencyStop},
		{"bandwidth", c.Bandwidth},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return driver.NewConfigurationError(fmt.Sprintf("sweep.Config: %s must be a finite number: %g given", f.name, f.value))
		}
	}
	if c.FrequencyStart <= 0 {
		return driver.NewConfigurationError(fmt.Sprintf("sweep.Config: start frequency must be positive: %g Hz given", c.FrequencyStart))
	}
	if c.FrequencyStart >= c.FrequencyStop {
		return driver.NewConfigurationError("sweep.Config: stop frequency must be greater than start frequency")
	}
	if c.Points < 1 {
		return driver.NewConfigurationError(fmt.Sprintf("sweep.Config: point count must be at least 1: %d given", c.Points))
	}
	if c.Bandwidth <= 0 {
		return driver.NewConfigurationError(fmt.Sprintf("sweep.Config: bandwidth must be positive: %g Hz given", c.Bandwidth))
	}
	// the name is sent quoted in MMEM:LOAD:CORR
	if strings.ContainsAny(c.CalibrationName, "\"'\r\n") {
		return driver.NewConfigurationError(fmt.Sprintf("sweep.Config: invalid calibration name %q", c.CalibrationName))
	}

	return nil
}

// Table renders the config back into a configuration table using the
// units of the operator form: GHz for the sweep range, kHz for bandwidth.
func (c *Config) Table() Table {
	cal := c.CalibrationName
	if cal == "" {
		cal = NoCalibration
	}

	return Table{
		{ParamFrequencyStart, formatFloat(c.FrequencyStart / 1e9), GHz},
		{ParamFrequencyStop, formatFloat(c.FrequencyStop / 1e9), GHz},
		{ParamPoints, strconv.Itoa(c.Points), Unitless},
		{ParamBandwidth, formatFloat(c.Bandwidth / 1e3), KHz},
		{ParamPower, formatFloat(c.Power), DBm},
		{ParamCalibration, cal, ""},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
