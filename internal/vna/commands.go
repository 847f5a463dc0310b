package vna

import (
	"fmt"
	"strconv"

	"github.com/roman-kulish/vna-sparams/internal/sweep"
)

const (
	cmdDisplayUpdate = "SYSTem:DISPlay:UPDate ON"
	cmdIdentify      = "*IDN?"
)

// traces are the four S-parameters of a two-port measurement, in the
// order they are defined on the instrument
var traces = []string{"S11", "S21", "S12", "S22"}

// configureCommands returns the sweep setup sequence. Start and stop are
// additionally serialised with *WAI on the instrument side.
func configureCommands(c *sweep.Config) []string {
	cmds := []string{
		"SOUR:POW1 " + formatNumber(c.Power),
		"FREQ:STAR " + formatNumber(c.FrequencyStart) + ";*WAI",
		"FREQ:STOP " + formatNumber(c.FrequencyStop) + ";*WAI",
		"SWE:POIN " + strconv.Itoa(c.Points),
		"BAND " + formatNumber(c.Bandwidth),
	}

	if c.HasCalibration() {
		cmds = append(cmds, fmt.Sprintf("MMEM:LOAD:CORR 1, '%s'", c.CalibrationName))
	}

	return cmds
}

// measureCommands returns the single shot measurement sequence. Output is
// enabled before the traces are defined and disabled only after the sweep
// has completed and the display is frozen.
func measureCommands() []string {
	cmds := []string{
		"OUTPut1:STATe ON",
		"OUTPut2:STATe ON",
	}

	for i, s := range traces {
		cmds = append(cmds, fmt.Sprintf("CALCulate1:PARameter:SDEFine 'TRC%d', '%s'", i+1, s))
	}

	cmds = append(cmds,
		"CALCulate1:FORMat MLOGarithmic",
		"DISPlay:WINDow1:STATe ON",
	)

	for i := range traces {
		cmds = append(cmds, fmt.Sprintf("DISPlay:WINDow1:TRACe%d:FEED 'TRC%d'", i+1, i+1))
	}

	return append(cmds,
		"INITiate1:IMMediate;*WAI",
		"INITiate1:CONTinuous OFF",
		"OUTPut1:STATe OFF",
		"OUTPut2:STATe OFF",
	)
}

func saveCommand(file string) string {
	return fmt.Sprintf(`MMEMory:STORe:TRACe:PORTs 1, "%s", COMPlex, 1, 2`, file)
}

func fetchCommand(file string) string {
	return fmt.Sprintf("MMEM:DATA? '%s'", file)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
