package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/vna-sparams/internal/plot"
	"github.com/roman-kulish/vna-sparams/internal/storage"
	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) error {
	if config.DBPath == "" {
		n, err := touchstone.ParseFile(config.InputFile)
		if err != nil {
			return err
		}

		lo, hi := frequencyRange(config)
		return render(n.Window(lo, hi), filepath.Base(config.InputFile), config, logger)
	}

	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	if config.List {
		return listRuns(ctx, store, out)
	}

	return readNetwork(ctx, store, config, logger)
}

func frequencyRange(config *Config) (lo, hi float64) {
	lo, hi = 0, math.MaxFloat64
	if config.MinFrequency != nil {
		lo = *config.MinFrequency
	}
	if config.MaxFrequency != nil {
		hi = *config.MaxFrequency
	}
	return lo, hi
}

func readNetwork(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) error {
	var filters []any
	var readOpts []storage.ReadOption
	switch {
	case config.MinFrequency != nil && config.MaxFrequency != nil:
		readOpts = append(readOpts, storage.WithFrequencyRange(*config.MinFrequency, *config.MaxFrequency))

		filters = append(filters,
			slog.String("minFreq", humanize.SIWithDigits(*config.MinFrequency, 3, "Hz")),
			slog.String("maxFreq", humanize.SIWithDigits(*config.MaxFrequency, 3, "Hz")))

	case config.MinFrequency != nil:
		readOpts = append(readOpts, storage.WithMinFrequency(*config.MinFrequency))
		filters = append(filters, slog.String("minFreq", humanize.SIWithDigits(*config.MinFrequency, 3, "Hz")))

	case config.MaxFrequency != nil:
		readOpts = append(readOpts, storage.WithMaxFrequency(*config.MaxFrequency))
		filters = append(filters, slog.String("maxFreq", humanize.SIWithDigits(*config.MaxFrequency, 3, "Hz")))
	}

	logger.Info("reading run", append(filters, slog.String("run", config.RunID.String()))...)

	run, err := store.Run(ctx, config.RunID)
	if err != nil {
		return err
	}

	n, err := store.Network(ctx, config.RunID, readOpts...)
	if err != nil {
		return err
	}

	title := config.RunID.String()
	if run.File.Valid {
		title = filepath.Base(run.File.String)
	}

	return render(n, title, config, logger)
}

func render(n *touchstone.Network, title string, config *Config, logger *slog.Logger) error {
	if config.Title != "" {
		title = config.Title
	}

	renderer, err := plot.NewRenderer(plot.RenderConfig{
		Title: title,
		MinDB: config.MinDB,
		MaxDB: config.MaxDB,
	})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	logger.Info("rendering network",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("ports", n.Ports()),
			slog.Int("points", n.Points()),
		))

	img, err := renderer.Render(n)
	if err != nil {
		return fmt.Errorf("rendering network: %w", err)
	}

	return plot.WriteFile(config.OutputFile, img, config.Format)
}

func listRuns(ctx context.Context, store *storage.SqliteStore, out io.Writer) error {
	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tADDRESS\tFILE\tSIZE")
	for _, run := range runs {
		file, size := "-", "-"
		if run.File.Valid && run.File.String != "" {
			file = run.File.String
		}
		if run.Size.Valid {
			size = humanize.Bytes(uint64(run.Size.Int64))
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.StartTime.Local().Format(time.DateTime),
			run.Status,
			run.Address,
			file,
			size)
	}

	return w.Flush()
}
