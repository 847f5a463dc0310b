package vna

import (
	"testing"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	for _, addr := range []string{"10.43.1.19", "192.168.1.1", "10.0.0.254", "127.0.0.1", "999.999.999.999"} {
		assert.NoError(t, ValidateAddress(addr), addr)
	}

	for _, addr := range []string{"", "localhost", "10.43.1", "192.168.1", "192.168.1.1.1", "1234.1.1.1", "192.168.1.1:5025", " 192.168.1.1"} {
		var ce *driver.ConfigurationError
		assert.ErrorAs(t, ValidateAddress(addr), &ce, addr)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "measurement complete", StateMeasurementComplete.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestValidateFileName(t *testing.T) {
	for _, name := range []string{"dut.s2p", "omt 12.s2p", `C:\data\dut.s2p`} {
		assert.NoError(t, ValidateFileName(name), name)
	}

	for _, name := range []string{"", "a'b.s2p", `a"b.s2p`, "dut.s2p\n*RST", "dut\r.s2p"} {
		var ce *driver.ConfigurationError
		assert.ErrorAs(t, ValidateFileName(name), &ce, name)
	}
}
