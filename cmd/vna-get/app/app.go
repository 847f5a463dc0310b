package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roman-kulish/vna-sparams/internal/measure"
	"github.com/roman-kulish/vna-sparams/internal/plot"
	"github.com/roman-kulish/vna-sparams/internal/storage"
	"github.com/roman-kulish/vna-sparams/internal/touchstone"
	"github.com/roman-kulish/vna-sparams/internal/vna"
)

// Run performs one measurement and writes progress to out
func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) error {
	table, err := config.SweepTable()
	if err != nil {
		return fmt.Errorf("failed to read sweep table: %w", err)
	}

	options := []func(*measure.Runner){
		measure.WithLogger(logger),
		measure.WithEmitter(measure.NewConsole(out)),
		measure.WithSessionOptions(
			vna.WithTimeout(config.Instrument.Timeout),
			vna.WithOPCTimeout(config.Instrument.OPCTimeout),
			vna.WithIdentifyDelay(config.Instrument.IdentifyDelay),
			vna.WithSettleDelay(config.Instrument.SettleDelay),
		),
	}

	if config.Journal.DB != "" {
		store, err := createStorage(&config.Journal)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer func() {
			if cErr := store.Close(); cErr != nil {
				logger.Error("closing journal", slog.String("error", cErr.Error()))
			}
		}()

		options = append(options, measure.WithJournal(store))
	}

	plan := measure.Plan{
		Address:    config.Instrument.Address,
		Port:       config.Instrument.Port,
		Table:      table,
		RemoteFile: filepath.Base(config.OutputFile),
		LocalFile:  config.OutputFile,
	}

	res, err := measure.NewRunner(options...).Run(ctx, plan)
	if err != nil {
		return err
	}

	if config.Plot.File == "" {
		return nil
	}

	return renderPlot(res.LocalFile, &config.Plot, logger)
}

func createStorage(config *JournalConfig) (*storage.SqliteStore, error) {
	dir := filepath.Dir(config.DB)
	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("journal directory '%s' does not exist: %w", dir, err)
		}
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid journal directory '%s'", dir)
	}

	return storage.NewSqliteStore(config.DB), nil
}

func renderPlot(file string, config *PlotConfig, logger *slog.Logger) error {
	format, err := config.ImageFormat()
	if err != nil {
		return err
	}

	n, err := touchstone.ParseFile(file)
	if err != nil {
		return fmt.Errorf("reading measurement: %w", err)
	}

	renderer, err := plot.NewRenderer(plot.RenderConfig{Title: filepath.Base(file)})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	img, err := renderer.Render(n)
	if err != nil {
		return err
	}

	if err = plot.WriteFile(config.File, img, format); err != nil {
		return fmt.Errorf("writing plot: %w", err)
	}

	logger.Info("plot written",
		slog.Group("image",
			slog.String("destination", config.File),
			slog.String("format", string(format)),
			slog.Int("ports", n.Ports()),
			slog.Int("points", n.Points()),
		))

	return nil
}
