package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roman-kulish/vna-sparams/internal/plot"
	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

// Run composes the two-port inputs into one network file
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	parts := make([]touchstone.Part, 0, len(config.Inputs))
	comments := make([]string, 0, len(config.Inputs))
	for _, in := range config.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		i, j, err := touchstone.PairFromName(in)
		if err != nil {
			return err
		}

		n, err := touchstone.ParseFile(in)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		logger.Debug("loaded input",
			slog.String("file", in),
			slog.Int("portI", i),
			slog.Int("portJ", j),
			slog.Int("points", n.Points()))

		parts = append(parts, touchstone.Part{I: i, J: j, Network: n})
		comments = append(comments, fmt.Sprintf("%s from %s", touchstone.TraceName(i, j), filepath.Base(in)))
	}

	n, err := touchstone.Compose(config.Ports, parts...)
	if err != nil {
		return fmt.Errorf("composing network: %w", err)
	}

	n.Comments = comments

	if err = touchstone.WriteFile(config.OutputFile, n); err != nil {
		return fmt.Errorf("writing network: %w", err)
	}

	logger.Info("network written",
		slog.String("destination", config.OutputFile),
		slog.Int("ports", n.Ports()),
		slog.Int("points", n.Points()),
		slog.Float64("z0", n.Z0))

	if config.PlotFile == "" {
		return nil
	}

	renderer, err := plot.NewRenderer(plot.RenderConfig{Title: filepath.Base(config.OutputFile)})
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	img, err := renderer.Render(n)
	if err != nil {
		return err
	}

	if err = plot.WriteFile(config.PlotFile, img, config.PlotFormat); err != nil {
		return fmt.Errorf("writing plot: %w", err)
	}

	logger.Info("plot written", slog.String("destination", config.PlotFile))

	return nil
}
