package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

const (
	ParamFrequencyStart ParameterName = "f::start"
	ParamFrequencyStop  ParameterName = "f::stop"
	ParamPoints         ParameterName = "nb_pts"
	ParamBandwidth      ParameterName = "bandwidth"
	ParamPower          ParameterName = "power"
	ParamCalibration    ParameterName = "cal_name"
)

// ParameterName identifies a row of the configuration table
type ParameterName string

// Parameter is a single (name, value, unit) row of a configuration table.
// Values are kept as text, the way operators type them.
type Parameter struct {
	Name  ParameterName `yaml:"parameter" json:"parameter" csv:"parameter"`
	Value string        `yaml:"value" json:"value" csv:"value"`
	Unit  Unit          `yaml:"unit" json:"unit" csv:"unit"`
}

// Table is an ordered configuration table. Rows are looked up by name and
// a later row overrides an earlier one with the same name.
type Table []Parameter

// Resolve converts the table into a validated Config. An empty table
// resolves to a nil Config and no error: nothing is to be configured.
func (t Table) Resolve() (*Config, error) {
	if len(t) == 0 {
		return nil, nil
	}

	var (
		c    = Config{CalibrationName: NoCalibration}
		seen = make(map[ParameterName]bool, len(t))
		err  error
	)

	for _, p := range t {
		switch p.Name {
		case ParamFrequencyStart:
			c.FrequencyStart, err = p.frequency()
		case ParamFrequencyStop:
			c.FrequencyStop, err = p.frequency()
		case ParamBandwidth:
			c.Bandwidth, err = p.frequency()
		case ParamPoints:
			c.Points, err = p.points()
		case ParamPower:
			c.Power, err = p.power()
		case ParamCalibration:
			c.CalibrationName = strings.TrimSpace(p.Value)
		default:
			err = driver.NewConfigurationError(fmt.Sprintf("sweep: unknown parameter '%s'", p.Name))
		}
		if err != nil {
			return nil, err
		}

		seen[p.Name] = true
	}

	for _, name := range []ParameterName{ParamFrequencyStart, ParamFrequencyStop, ParamPoints, ParamBandwidth, ParamPower} {
		if !seen[name] {
			return nil, driver.NewConfigurationError(fmt.Sprintf("sweep: missing required parameter '%s'", name))
		}
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (p Parameter) number() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
	if err != nil {
		return 0, driver.NewConfigurationError(fmt.Sprintf("sweep: parameter '%s': invalid number '%s'", p.Name, p.Value))
	}
	return v, nil
}

func (p Parameter) frequency() (float64, error) {
	m, err := Multiplier(p.Unit)
	if err != nil {
		return 0, driver.NewConfigurationError(fmt.Sprintf("sweep: parameter '%s': %s", p.Name, err.Error()))
	}

	v, err := p.number()
	if err != nil {
		return 0, err
	}

	return v * m, nil
}

func (p Parameter) points() (int, error) {
	if p.Unit != "" && p.Unit != Unitless {
		return 0, driver.NewConfigurationError(fmt.Sprintf("sweep: parameter '%s' is unitless: '%s' given", p.Name, p.Unit))
	}

	v, err := p.number()
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, driver.NewConfigurationError(fmt.Sprintf("sweep: parameter '%s' must be a whole number: %s given", p.Name, p.Value))
	}

	return int(v), nil
}

func (p Parameter) power() (float64, error) {
	if p.Unit != "" && p.Unit != DBm {
		return 0, driver.NewConfigurationError(fmt.Sprintf("sweep: parameter '%s' must be in dBm: '%s' given", p.Name, p.Unit))
	}
	return p.number()
}
