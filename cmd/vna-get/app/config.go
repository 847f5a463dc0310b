package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/vna-sparams/internal/plot"
	"github.com/roman-kulish/vna-sparams/internal/scpi"
	"github.com/roman-kulish/vna-sparams/internal/sweep"
	"github.com/roman-kulish/vna-sparams/internal/vna"
)

const (
	defaultAddress = "10.43.1.19"
	defaultPreset  = "WR-75"

	// PresetNone measures with the settings already on the instrument
	PresetNone = "none"
)

// Config represents the main application configuration
type Config struct {
	Settings   Settings         `yaml:"settings"`
	Instrument InstrumentConfig `yaml:"instrument"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Journal    JournalConfig    `yaml:"journal"`
	Plot       PlotConfig       `yaml:"plot"`

	// OutputFile is the positional argument, never read from the file
	OutputFile string `yaml:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// InstrumentConfig represents the connection to the analyzer
type InstrumentConfig struct {
	Address       string        `yaml:"address"`
	Port          int           `yaml:"port"`
	Timeout       time.Duration `yaml:"timeout"`
	OPCTimeout    time.Duration `yaml:"opcTimeout"`
	IdentifyDelay time.Duration `yaml:"identifyDelay"`
	SettleDelay   time.Duration `yaml:"settleDelay"`
}

// SweepConfig selects the sweep: a table file wins over inline parameters,
// which win over the preset
type SweepConfig struct {
	Preset     string      `yaml:"preset"`
	Table      string      `yaml:"table"`
	Parameters sweep.Table `yaml:"parameters"`
}

// JournalConfig represents the measurement journal settings
type JournalConfig struct {
	DB string `yaml:"db"`
}

// PlotConfig represents the optional plot of the fetched file
type PlotConfig struct {
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// NewConfig returns a configuration with every default applied
func NewConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Instrument: InstrumentConfig{
			Address:       defaultAddress,
			Port:          scpi.DefaultPort,
			Timeout:       scpi.DefaultTimeout,
			OPCTimeout:    scpi.DefaultOPCTimeout,
			IdentifyDelay: vna.DefaultIdentifyDelay,
			SettleDelay:   vna.DefaultSettleDelay,
		},
		Sweep: SweepConfig{Preset: defaultPreset},
	}
}

// LoadConfig reads a YAML configuration file over the defaults
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := NewConfig()
	if err = yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	return c, nil
}

// NewConfigFromCLI builds the configuration from the command line. Flags
// that were set explicitly override values from the -c file.
func NewConfigFromCLI(args []string) (*Config, error) {
	fs := flag.NewFlagSet("vna-get", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: vna-get [flags] <filename>\n\n")
		fs.PrintDefaults()
	}

	var (
		configPath, address, preset, table, db, plotFile, logLevel string
		port                                                       int
	)
	fs.StringVar(&configPath, "c", "", "Path to the configuration file")
	fs.StringVar(&address, "address", defaultAddress, "IPv4 address of the analyzer")
	fs.IntVar(&port, "port", scpi.DefaultPort, "SCPI port of the analyzer")
	fs.StringVar(&preset, "preset", defaultPreset, "Sweep preset, or 'none' to keep the instrument settings")
	fs.StringVar(&table, "table", "", "Path to a sweep table (.csv, .yaml)")
	fs.StringVar(&db, "db", "", "Path to the measurement journal database")
	fs.StringVar(&plotFile, "plot", "", "Render the fetched file to this image (.png, .jpeg)")
	fs.StringVar(&logLevel, "log-level", "info", "Log level [debug, info, warn, error]")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := NewConfig()
	if configPath != "" {
		var err error
		if c, err = LoadConfig(configPath); err != nil {
			return nil, fmt.Errorf("failed to load configuration file '%s': %w", configPath, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			c.Instrument.Address = address
		case "port":
			c.Instrument.Port = port
		case "preset":
			c.Sweep.Preset = preset
		case "table":
			c.Sweep.Table = table
		case "db":
			c.Journal.DB = db
		case "plot":
			c.Plot.File = plotFile
		case "log-level":
			c.Settings.LogLevel = logLevel
		}
	})

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one output filename is required")
	}
	c.OutputFile = fs.Arg(0)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level '%s'", c.Settings.LogLevel)
	}
	if err := vna.ValidateAddress(c.Instrument.Address); err != nil {
		return err
	}
	if c.Instrument.Port <= 0 || c.Instrument.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Instrument.Port)
	}
	if c.Instrument.Timeout <= 0 || c.Instrument.OPCTimeout <= 0 {
		return errors.New("instrument timeouts must be positive")
	}
	if c.Instrument.IdentifyDelay < 0 || c.Instrument.SettleDelay < 0 {
		return errors.New("instrument delays must not be negative")
	}
	if c.Sweep.Table == "" && len(c.Sweep.Parameters) == 0 && !strings.EqualFold(c.Sweep.Preset, PresetNone) {
		if _, ok := sweep.LookupPreset(c.Sweep.Preset); !ok {
			return fmt.Errorf("unknown preset '%s'", c.Sweep.Preset)
		}
	}
	if c.Plot.File != "" {
		if _, err := c.Plot.ImageFormat(); err != nil {
			return err
		}
	}
	return nil
}

// SweepTable returns the configuration table to apply. An empty table keeps
// the instrument settings.
func (c *Config) SweepTable() (sweep.Table, error) {
	switch {
	case c.Sweep.Table != "":
		return sweep.LoadTable(c.Sweep.Table)

	case len(c.Sweep.Parameters) > 0:
		return c.Sweep.Parameters, nil

	case strings.EqualFold(c.Sweep.Preset, PresetNone):
		return nil, nil
	}

	p, ok := sweep.LookupPreset(c.Sweep.Preset)
	if !ok {
		return nil, fmt.Errorf("unknown preset '%s'", c.Sweep.Preset)
	}
	return p.Config.Table(), nil
}

// ImageFormat returns the image format, taken from the plot file extension
// unless set explicitly
func (p *PlotConfig) ImageFormat() (plot.ImageFormat, error) {
	format := p.Format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(p.File)), ".")
	}
	return plot.ParseFormat(format)
}

