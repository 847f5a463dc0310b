package sweep

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatFrequency renders hz with an SI prefix, e.g. "9.9 GHz"
func FormatFrequency(hz float64) string {
	v, prefix := humanize.ComputeSI(hz)
	return strconv.FormatFloat(v, 'g', 6, 64) + " " + prefix + "Hz"
}

// Summary is a one line description of the sweep
func (c *Config) Summary() string {
	cal := c.CalibrationName
	if !c.HasCalibration() {
		cal = "no calibration"
	}

	return fmt.Sprintf("%s to %s, %d points, IF %s, %s dBm, %s",
		FormatFrequency(c.FrequencyStart),
		FormatFrequency(c.FrequencyStop),
		c.Points,
		FormatFrequency(c.Bandwidth),
		formatFloat(c.Power),
		cal)
}
