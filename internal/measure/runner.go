// Package measure runs the complete measurement sequence against an
// instrument, either synchronously or on a background worker.
package measure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/vna-sparams/internal/sweep"
	"github.com/roman-kulish/vna-sparams/internal/touchstone"
	"github.com/roman-kulish/vna-sparams/internal/vna"
)

// WithLogger sets the logger for the runner
func WithLogger(logger *slog.Logger) func(*Runner) {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithEmitter sets the progress receiver
func WithEmitter(e Emitter) func(*Runner) {
	return func(r *Runner) {
		r.emitter = e
	}
}

// WithJournal records every run in j
func WithJournal(j Journal) func(*Runner) {
	return func(r *Runner) {
		r.journal = j
	}
}

// WithSessionOptions passes options to every instrument session
func WithSessionOptions(options ...func(*vna.Session)) func(*Runner) {
	return func(r *Runner) {
		r.sessionOptions = append(r.sessionOptions, options...)
	}
}

// Runner executes measurement plans synchronously
type Runner struct {
	logger         *slog.Logger
	emitter        Emitter
	journal        Journal
	sessionOptions []func(*vna.Session)
}

// NewRunner creates a runner with a discard logger and no emitter
func NewRunner(options ...func(*Runner)) *Runner {
	r := Runner{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		emitter: nopEmitter{},
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Run connects, verifies, configures, measures, saves and fetches. The
// table is resolved before connecting, so configuration errors never reach
// the instrument. The session is closed on every path.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	config, err := r.prepare(plan)
	if err != nil {
		r.emitter.OnError(err)
		return nil, err
	}

	res := Result{
		RunID:     uuid.New(),
		Config:    config,
		LocalFile: plan.localFile(),
		Started:   time.Now(),
	}

	logger := r.logger.With(slog.String("run", res.RunID.String()))
	logger.Info("starting measurement", slog.String("address", plan.Address), slog.String("file", plan.RemoteFile))

	if r.journal != nil {
		if jErr := r.journal.CreateRun(ctx, res.RunID, plan.Address, config); jErr != nil {
			logger.Error(fmt.Sprintf("failed to journal run: %s", jErr.Error()))
		}
	}

	options := []func(*vna.Session){
		vna.WithPort(plan.port()),
		vna.WithLogger(logger),
		vna.WithStateObserver(r.emitter.OnState),
	}
	options = append(options, r.sessionOptions...)

	err = vna.WithSession(ctx, plan.Address, func(ctx context.Context, s *vna.Session) error {
		id, err := s.Verify(ctx)
		if err != nil {
			return err
		}

		res.Identity = id
		r.emitter.OnIdentity(id)

		if err = s.Configure(ctx, config); err != nil {
			return err
		}
		if err = s.Measure(ctx); err != nil {
			return err
		}
		if err = s.Save(ctx, plan.RemoteFile); err != nil {
			return err
		}

		res.Size, err = s.Fetch(ctx, plan.RemoteFile, res.LocalFile)
		return err
	}, options...)

	res.Finished = time.Now()
	r.record(context.WithoutCancel(ctx), logger, &res, err)

	if err != nil {
		logger.Error(fmt.Sprintf("measurement failed: %s", err.Error()))
		r.emitter.OnError(err)
		return nil, err
	}

	logger.Info("measurement complete",
		slog.String("file", res.LocalFile),
		slog.Int64("size", res.Size),
		slog.Duration("duration", res.Duration()))
	r.emitter.OnResult(&res)

	return &res, nil
}

func (r *Runner) prepare(plan Plan) (*sweep.Config, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan.Table.Resolve()
}

// record finishes the journal entry. Journal failures are logged and never
// fail the measurement.
func (r *Runner) record(ctx context.Context, logger *slog.Logger, res *Result, runErr error) {
	if r.journal == nil {
		return
	}

	file := ""
	if runErr == nil {
		file = res.LocalFile
	}

	if err := r.journal.FinishRun(ctx, res.RunID, res.Identity, file, res.Size, runErr); err != nil {
		logger.Error(fmt.Sprintf("failed to finish journal run: %s", err.Error()))
	}

	if runErr != nil {
		return
	}

	n, err := touchstone.ParseFile(res.LocalFile)
	if err != nil {
		logger.Warn(fmt.Sprintf("fetched file is not a readable network: %s", err.Error()))
		return
	}

	if err = r.journal.StoreNetwork(ctx, res.RunID, n); err != nil {
		logger.Error(fmt.Sprintf("failed to journal network: %s", err.Error()))
	}
}
