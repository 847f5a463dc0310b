package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roman-kulish/vna-sparams/internal/measure"
	"github.com/roman-kulish/vna-sparams/internal/storage"
	"github.com/roman-kulish/vna-sparams/internal/vna"
)

// Config represents the interactive application settings
type Config struct {
	Address string // initial value of the address field
	Port    int
	DBPath  string // journal database, optional
}

// programEmitter forwards progress from the worker goroutine to the event
// loop. Results and errors arrive through the completion channel instead.
type programEmitter struct {
	p *tea.Program
}

func (e *programEmitter) OnState(s vna.State) {
	e.p.Send(stateMsg(s))
}

func (e *programEmitter) OnIdentity(id string) {
	e.p.Send(identityMsg(id))
}

func (e *programEmitter) OnResult(*measure.Result) {}
func (e *programEmitter) OnError(error)            {}

// Run shows the form until the operator quits. A measurement still running
// at that point is allowed to finish so the instrument is left closed.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	emitter := &programEmitter{}
	options := []func(*measure.Runner){
		measure.WithLogger(logger),
		measure.WithEmitter(emitter),
	}

	if config.DBPath != "" {
		store := storage.NewSqliteStore(filepath.Clean(config.DBPath))
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("closing journal", slog.String("error", err.Error()))
			}
		}()

		options = append(options, measure.WithJournal(store))
	}

	worker := measure.NewWorker(measure.NewRunner(options...))

	p := tea.NewProgram(NewModel(ctx, worker, config), tea.WithContext(ctx), tea.WithAltScreen())
	emitter.p = p

	_, err := p.Run()

	if worker.Running() {
		logger.Info("waiting for the running measurement to finish")
	}
	worker.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running interface: %w", err)
	}

	return nil
}
