package sweep

import (
	"fmt"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

const (
	KHz Unit = "kHz"
	MHz Unit = "MHz"
	GHz Unit = "GHz"

	DBm      Unit = "dBm"
	Unitless Unit = "-"
)

// Unit is the literal unit column of a sweep parameter
type Unit string

var frequencyMultipliers = map[Unit]float64{
	KHz: 1e3,
	MHz: 1e6,
	GHz: 1e9,
}

// Multiplier returns the Hz multiplier for a frequency unit. Units are
// matched literally, "ghz" or "Hz" are configuration errors.
func Multiplier(u Unit) (float64, error) {
	m, ok := frequencyMultipliers[u]
	if !ok {
		return 0, driver.NewConfigurationError(fmt.Sprintf("sweep: unrecognized frequency unit '%s'", u))
	}
	return m, nil
}
