package vna

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/roman-kulish/vna-sparams/internal/scpi"
	"github.com/roman-kulish/vna-sparams/internal/sweep"
	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

const (
	// DefaultIdentifyDelay is the pause between the identity query and
	// reading its reply
	DefaultIdentifyDelay = time.Second

	// DefaultSettleDelay is the pause after the sweep configuration has been
	// written
	DefaultSettleDelay = time.Second
)

// ErrInvalidState is returned when an operation is attempted out of order
var ErrInvalidState = errors.New("invalid session state")

// WithPort sets the SCPI port of the instrument
func WithPort(port int) func(*Session) {
	return func(s *Session) {
		s.port = port
	}
}

// WithTimeout sets the connect and read timeout
func WithTimeout(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithOPCTimeout sets the timeout of operation complete synchronised commands
func WithOPCTimeout(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.opcTimeout = d
	}
}

// WithIdentifyDelay sets the pause between *IDN? and reading its reply
func WithIdentifyDelay(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.identifyDelay = d
	}
}

// WithSettleDelay sets the pause after the sweep has been configured
func WithSettleDelay(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.settleDelay = d
	}
}

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(*Session) {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithStateObserver registers fn to be called on every state transition
func WithStateObserver(fn func(State)) func(*Session) {
	return func(s *Session) {
		s.observer = fn
	}
}

// Session drives one instrument through a single measurement. It is not
// safe for concurrent use.
type Session struct {
	address string
	port    int

	timeout       time.Duration
	opcTimeout    time.Duration
	identifyDelay time.Duration
	settleDelay   time.Duration

	logger   *slog.Logger
	observer func(State)

	client   *scpi.Client
	state    State
	identity string
}

// NewSession creates a session for the instrument at address. No
// connection is made until Connect.
func NewSession(address string, options ...func(*Session)) *Session {
	s := Session{
		address:       address,
		port:          scpi.DefaultPort,
		timeout:       scpi.DefaultTimeout,
		opcTimeout:    scpi.DefaultOPCTimeout,
		identifyDelay: DefaultIdentifyDelay,
		settleDelay:   DefaultSettleDelay,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:         StateDisconnected,
	}

	for _, option := range options {
		option(&s)
	}

	s.logger = s.logger.With(slog.String("instrument", s.address))

	return &s
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// Identity returns the identification string read by Verify
func (s *Session) Identity() string {
	return s.identity
}

// Connect opens the transport, clears the status registers and enables
// display updates while under remote control.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.require("connect", StateDisconnected); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.address, strconv.Itoa(s.port))
	s.logger.Info("connecting", slog.String("address", addr))

	client, err := scpi.Dial(ctx, addr,
		scpi.WithTimeout(s.timeout),
		scpi.WithOPCTimeout(s.opcTimeout),
		scpi.WithStatusChecking(true),
		scpi.WithLogger(s.logger),
	)
	if err != nil {
		return driver.NewConnectionError(fmt.Sprintf("failed to connect to %s", addr), err)
	}

	if err = client.ClearStatus(ctx); err != nil {
		return closeWithError(client, driver.NewConnectionError("failed to initialise instrument session", err))
	}

	if err = client.WriteWithOPC(ctx, cmdDisplayUpdate); err != nil {
		return closeWithError(client, fmt.Errorf("enabling display update: %w", err))
	}

	s.client = client
	s.setState(StateConnected)

	return nil
}

// Verify queries the instrument identity. The reply is informational and
// never validated against an expected model.
func (s *Session) Verify(ctx context.Context) (string, error) {
	if err := s.require("verify", StateConnected); err != nil {
		return "", err
	}

	id, err := s.client.QueryDelayed(ctx, cmdIdentify, s.identifyDelay)
	if err != nil {
		return "", fmt.Errorf("querying identity: %w", err)
	}

	s.identity = id
	s.logger.Info("instrument identified", slog.String("identity", id))
	s.setState(StateVerified)

	return id, nil
}

// Configure applies the sweep configuration. A nil configuration, which is
// what an empty parameter table resolves to, leaves the instrument
// untouched and issues no commands.
func (s *Session) Configure(ctx context.Context, c *sweep.Config) error {
	if err := s.require("configure", StateVerified, StateConfigured); err != nil {
		return err
	}

	if c == nil {
		s.logger.Info("empty sweep table, keeping instrument configuration")
		return nil
	}

	if err := c.Validate(); err != nil {
		return err
	}

	for _, cmd := range configureCommands(c) {
		if err := s.client.WriteWithOPC(ctx, cmd); err != nil {
			return fmt.Errorf("configuring sweep: %w", err)
		}
	}

	if err := sleep(ctx, s.settleDelay); err != nil {
		return err
	}

	s.logger.Info("sweep configured",
		slog.Float64("start", c.FrequencyStart),
		slog.Float64("stop", c.FrequencyStop),
		slog.Int("points", c.Points),
		slog.Float64("bandwidth", c.Bandwidth),
		slog.Float64("power", c.Power),
		slog.String("calibration", c.CalibrationName))

	s.setState(StateConfigured)

	return nil
}

// ConfigureTable resolves the parameter table and applies it
func (s *Session) ConfigureTable(ctx context.Context, t sweep.Table) error {
	c, err := t.Resolve()
	if err != nil {
		return err
	}
	return s.Configure(ctx, c)
}

// Measure runs a single sweep of all four S-parameters. RF output is on
// only for the duration of the sweep.
func (s *Session) Measure(ctx context.Context) error {
	if err := s.require("measure", StateVerified, StateConfigured); err != nil {
		return err
	}

	s.setState(StateArmed)

	for _, cmd := range measureCommands() {
		if err := s.client.WriteWithOPC(ctx, cmd); err != nil {
			return fmt.Errorf("measuring: %w", err)
		}
	}

	s.setState(StateMeasurementComplete)

	return nil
}

// Save stores the measured traces on the instrument as a two-port
// Touchstone file with complex values.
func (s *Session) Save(ctx context.Context, file string) error {
	if err := s.require("save", StateMeasurementComplete); err != nil {
		return err
	}

	if err := ValidateFileName(file); err != nil {
		return err
	}

	if err := s.client.WriteWithOPC(ctx, saveCommand(file)); err != nil {
		return fmt.Errorf("saving '%s': %w", file, err)
	}

	s.logger.Info("traces saved", slog.String("file", file))

	return nil
}

// Fetch copies the instrument file remote to the local path and returns
// the number of bytes written. The local file only appears once the
// transfer is complete.
func (s *Session) Fetch(ctx context.Context, remote, local string) (int64, error) {
	if err := s.require("fetch", StateVerified, StateConfigured, StateMeasurementComplete); err != nil {
		return 0, err
	}

	if err := ValidateFileName(remote); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), "."+filepath.Base(local)+".*")
	if err != nil {
		return 0, driver.NewTransferError(remote, err)
	}

	n, err := s.client.QueryBlock(ctx, fetchCommand(remote), tmp)
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), local)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, driver.NewTransferError(remote, err)
	}

	s.logger.Info("file fetched",
		slog.String("remote", remote),
		slog.String("local", local),
		slog.Int64("size", n))

	return n, nil
}

// Close releases the transport. It is safe to call more than once and in
// any state.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}

	var err error
	if s.client != nil {
		err = s.client.Close()
		s.client = nil
	}

	s.setState(StateClosed)

	return err
}

func (s *Session) require(op string, allowed ...State) error {
	if slices.Contains(allowed, s.state) {
		return nil
	}
	return fmt.Errorf("cannot %s in state '%s': %w", op, s.state, ErrInvalidState)
}

func (s *Session) setState(state State) {
	s.state = state
	s.logger.Debug("session state changed", slog.String("state", state.String()))

	if s.observer != nil {
		s.observer(state)
	}
}

func closeWithError(c io.Closer, err error) error {
	if cErr := c.Close(); cErr != nil {
		return errors.Join(err, fmt.Errorf("closing connection: %w", cErr))
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
