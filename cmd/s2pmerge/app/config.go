package app

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/roman-kulish/vna-sparams/internal/plot"
	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

type Config struct {
	OutputFile string
	Ports      int
	Inputs     []string
	PlotFile   string
	PlotFormat plot.ImageFormat
	LogLevel   log.Level
}

func NewConfigFromCLI(args []string) (*Config, error) {
	fs := flag.NewFlagSet("s2pmerge", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: s2pmerge -o out.s3p [flags] a12.s2p a13.s2p a23.s2p\n\n")
		fmt.Fprintf(fs.Output(), "The port pair of every input is taken from the last two digits of its name.\n\n")
		fs.PrintDefaults()
	}

	c := &Config{}
	var logLevel string
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, its .sNp extension sets the port count")
	fs.StringVar(&c.PlotFile, "plot", "", "Also render the composed network to this image (.png, .jpeg)")
	fs.StringVar(&logLevel, "log-level", "info", "Log level [debug, info, warn, error]")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.Inputs = fs.Args()

	err := c.init(logLevel)
	if err != nil {
		fs.Usage()
		return nil, err
	}

	return c, nil
}

func (c *Config) init(logLevel string) (err error) {
	if c.LogLevel, err = log.ParseLevel(logLevel); err != nil {
		return fmt.Errorf("invalid log level '%s'", logLevel)
	}
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	if c.Ports, err = touchstone.PortsFromName(c.OutputFile); err != nil {
		return err
	}
	if c.Ports < 3 {
		return fmt.Errorf("output must have at least 3 ports: %d given", c.Ports)
	}
	if len(c.Inputs) == 0 {
		return errors.New("at least one two-port input is required")
	}
	for _, in := range c.Inputs {
		i, j, err := touchstone.PairFromName(in)
		if err != nil {
			return err
		}
		if i > c.Ports || j > c.Ports {
			return fmt.Errorf("'%s' refers to port %d of a %d-port network", in, max(i, j), c.Ports)
		}
	}
	if c.PlotFile != "" {
		ext := strings.TrimPrefix(filepath.Ext(c.PlotFile), ".")
		if c.PlotFormat, err = plot.ParseFormat(ext); err != nil {
			return err
		}
	}
	return nil
}
