package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roman-kulish/vna-sparams/internal/plot"
)

type Config struct {
	InputFile    string
	DBPath       string
	RunID        uuid.UUID
	List         bool
	OutputFile   string
	Format       plot.ImageFormat
	Title        string
	MinDB        *float64
	MaxDB        *float64
	MinFrequency *float64 // Hz
	MaxFrequency *float64 // Hz
	Verbose      bool
}

func NewConfig() *Config {
	return &Config{
		Format: plot.ImagePNG,
	}
}

func NewConfigFromCLI(args []string) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("splot", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: splot -o out [flags] (<file.sNp> | -db path -run id)\n       splot -db path -list\n\n")
		fs.PrintDefaults()
	}

	var imageFormat, runID string
	var minDB, maxDB, minFreq, maxFreq float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the measurement journal database")
	fs.StringVar(&runID, "run", "", "Run ID in the journal")
	fs.BoolVar(&c.List, "list", false, "List the runs in the journal and exit")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(plot.ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&c.Title, "title", "", "Plot title, defaults to the input name")
	fs.Float64Var(&minDB, "min-db", 0, "Define a manual bottom of the dB scale (format nn.n)")
	fs.Float64Var(&maxDB, "max-db", 0, "Define a manual top of the dB scale (format nn.n)")
	fs.Float64Var(&minFreq, "fmin", 0, "Lowest frequency to plot in GHz")
	fs.Float64Var(&maxFreq, "fmax", 0, "Highest frequency to plot in GHz")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-db":
			c.MinDB = &minDB
		case "max-db":
			c.MaxDB = &maxDB
		case "fmin":
			hz := minFreq * 1e9
			c.MinFrequency = &hz
		case "fmax":
			hz := maxFreq * 1e9
			c.MaxFrequency = &hz
		}
	})

	if fs.NArg() > 1 {
		fs.Usage()
		return nil, errors.New("only one input file can be plotted")
	}
	c.InputFile = fs.Arg(0)

	var err error
	if runID != "" {
		if c.RunID, err = uuid.Parse(runID); err != nil {
			err = fmt.Errorf("invalid run id '%s': %w", runID, err)
		}
	}

	format, fErr := plot.ParseFormat(strings.ToLower(imageFormat))
	switch {
	case err != nil:
	case c.List:
		if c.DBPath == "" {
			err = errors.New("db path is required to list runs")
		}
	case c.InputFile != "" && c.DBPath != "":
		err = errors.New("plot either a file or a journal run, not both")
	case c.InputFile == "" && c.DBPath == "":
		err = errors.New("input file or db path is required")
	case c.DBPath != "" && c.RunID == uuid.Nil:
		err = errors.New("run id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case fErr != nil:
		err = fErr
	case c.MinDB != nil && c.MaxDB != nil && *c.MinDB >= *c.MaxDB:
		err = errors.New("min-db must be below max-db")
	case c.MinFrequency != nil && c.MaxFrequency != nil && *c.MinFrequency >= *c.MaxFrequency:
		err = errors.New("fmin must be below fmax")
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	if c.List {
		return c, nil
	}

	c.Format = format
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
