package vna

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

// ipv4Pattern only checks the dotted quad shape. Octets above 255 pass and
// are rejected later by the dialer as a connection error.
var ipv4Pattern = regexp.MustCompile(`^(?:\d{1,3}\.){3}\d{1,3}$`)

// ValidateAddress checks that addr looks like an IPv4 address
func ValidateAddress(addr string) error {
	if !ipv4Pattern.MatchString(addr) {
		return driver.NewConfigurationError(fmt.Sprintf("invalid IPv4 address '%s'", addr))
	}
	return nil
}

// ValidateFileName rejects instrument file names that would break the
// quoting of MMEM commands
func ValidateFileName(name string) error {
	if name == "" {
		return driver.NewConfigurationError("file name is required")
	}
	if strings.ContainsAny(name, "\"'\n\r") {
		return driver.NewConfigurationError(fmt.Sprintf("invalid file name '%s'", name))
	}
	return nil
}
