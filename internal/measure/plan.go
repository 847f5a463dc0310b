package measure

import (
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/vna-sparams/internal/scpi"
	"github.com/roman-kulish/vna-sparams/internal/sweep"
	"github.com/roman-kulish/vna-sparams/internal/vna"
	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

// Plan is everything needed for one measurement
type Plan struct {
	Address string
	Port    int // defaults to the SCPI port

	// Table is the sweep to apply. An empty table measures with the
	// instrument's current settings.
	Table sweep.Table

	// RemoteFile is the file name the traces are stored under on the
	// instrument
	RemoteFile string

	// LocalFile is where the file is fetched to, defaults to RemoteFile
	LocalFile string
}

// Validate checks the address and file names
func (p *Plan) Validate() error {
	if err := vna.ValidateAddress(p.Address); err != nil {
		return err
	}
	if p.RemoteFile == "" {
		return driver.NewConfigurationError("output file name is required")
	}
	if err := vna.ValidateFileName(p.RemoteFile); err != nil {
		return err
	}
	if p.Port < 0 || p.Port > 65535 {
		return driver.NewConfigurationError("invalid port")
	}
	return nil
}

func (p *Plan) port() int {
	if p.Port == 0 {
		return scpi.DefaultPort
	}
	return p.Port
}

func (p *Plan) localFile() string {
	if p.LocalFile == "" {
		return p.RemoteFile
	}
	return p.LocalFile
}

// Result describes a completed measurement
type Result struct {
	RunID     uuid.UUID
	Identity  string
	Config    *sweep.Config // nil when the instrument settings were kept
	LocalFile string
	Size      int64
	Started   time.Time
	Finished  time.Time
}

// Duration returns how long the measurement took
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
