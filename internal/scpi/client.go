package scpi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
)

const (
	// DefaultPort is the raw socket SCPI port of the instrument
	DefaultPort = 5025

	// DefaultTimeout bounds every read from the instrument
	DefaultTimeout = 50 * time.Second

	// DefaultOPCTimeout bounds the wait for an operation complete reply
	DefaultOPCTimeout = 50 * time.Second

	opcQuery     = "*OPC?"
	statusQuery  = "*STB?"
	errorQuery   = "SYST:ERR:ALL?"
	clearCommand = "*CLS"

	// errorQueueBit is set in the status byte while the error queue holds
	// at least one entry
	errorQueueBit = 0x04
)

// ErrClosed is returned by operations on a closed client
var ErrClosed = errors.New("scpi: client is closed")

// WithTimeout sets the read timeout
func WithTimeout(d time.Duration) func(*Client) {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithOPCTimeout sets the timeout of operation complete synchronised commands
func WithOPCTimeout(d time.Duration) func(*Client) {
	return func(c *Client) {
		c.opcTimeout = d
	}
}

// WithStatusChecking enables or disables the status byte check after each
// command
func WithStatusChecking(enabled bool) func(*Client) {
	return func(c *Client) {
		c.statusChecking = enabled
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is a line oriented SCPI client over a raw TCP socket. It is safe
// for concurrent use, although instruments expect one exchange at a time,
// which the client serialises.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	timeout        time.Duration
	opcTimeout     time.Duration
	statusChecking bool
	logger         *slog.Logger

	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the instrument at address ("host:port")
func Dial(ctx context.Context, address string, options ...func(*Client)) (*Client, error) {
	c := newClient(options...)

	d := net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.logger = c.logger.With(slog.String("address", address))

	return c, nil
}

func newClient(options ...func(*Client)) *Client {
	c := Client{
		timeout:        DefaultTimeout,
		opcTimeout:     DefaultOPCTimeout,
		statusChecking: true,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Send writes a single command line without waiting for anything
func (c *Client) Send(ctx context.Context, cmd string) error {
	return c.exchange(ctx, func() error {
		return c.send(ctx, cmd)
	})
}

// ReadLine reads one response line, without the terminator
func (c *Client) ReadLine(ctx context.Context) (string, error) {
	var line string
	err := c.exchange(ctx, func() (err error) {
		line, err = c.readLine(ctx, c.timeout)
		return err
	})
	return line, err
}

// Write sends a command and checks the instrument status
func (c *Client) Write(ctx context.Context, cmd string) error {
	return c.exchange(ctx, func() error {
		if err := c.send(ctx, cmd); err != nil {
			return err
		}
		return c.checkStatus(ctx, cmd)
	})
}

// WriteWithOPC sends a command suffixed with an operation complete query
// and blocks until the instrument reports completion.
func (c *Client) WriteWithOPC(ctx context.Context, cmd string) error {
	return c.exchange(ctx, func() error {
		if err := c.send(ctx, cmd+";"+opcQuery); err != nil {
			return err
		}

		reply, err := c.readLine(ctx, c.opcTimeout)
		if err != nil {
			return fmt.Errorf("waiting for completion of '%s': %w", cmd, err)
		}
		if reply != "1" {
			return fmt.Errorf("unexpected operation complete reply to '%s': %q", cmd, reply)
		}

		return c.checkStatus(ctx, cmd)
	})
}

// Query sends a query and returns the response line
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	return c.QueryDelayed(ctx, query, 0)
}

// QueryDelayed sends a query, waits for delay before reading the response
// line and then checks the instrument status. Some instruments need a pause
// before answering *IDN? over a fresh connection.
func (c *Client) QueryDelayed(ctx context.Context, query string, delay time.Duration) (string, error) {
	var reply string
	err := c.exchange(ctx, func() error {
		if err := c.send(ctx, query); err != nil {
			return err
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}

		var err error
		if reply, err = c.readLine(ctx, c.timeout); err != nil {
			return fmt.Errorf("reading reply to '%s': %w", query, err)
		}

		return c.checkStatus(ctx, query)
	})
	if err != nil {
		return "", err
	}

	return reply, nil
}

// QueryBlock sends a query answered with an IEEE 488.2 block and copies the
// block payload to w. It returns the number of payload bytes.
func (c *Client) QueryBlock(ctx context.Context, query string, w io.Writer) (int64, error) {
	var n int64
	err := c.exchange(ctx, func() error {
		if err := c.send(ctx, query); err != nil {
			return err
		}

		if err := c.setDeadline(ctx, c.timeout); err != nil {
			return err
		}

		var err error
		if n, err = readBlock(c.reader, w); err != nil {
			return fmt.Errorf("reading block reply to '%s': %w", query, err)
		}

		return c.checkStatus(ctx, query)
	})

	return n, err
}

// ClearStatus clears the status registers and the error queue
func (c *Client) ClearStatus(ctx context.Context) error {
	return c.Write(ctx, clearCommand)
}

// Close releases the connection. It is safe to call Close multiple times.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.conn != nil {
			c.closeErr = c.conn.Close()
		}
	})

	return c.closeErr
}

func (c *Client) send(ctx context.Context, cmd string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.setDeadline(ctx, c.timeout); err != nil {
		return err
	}

	c.logger.Debug("scpi write", slog.String("command", cmd))

	if _, err := io.WriteString(c.conn, cmd+"\n"); err != nil {
		return fmt.Errorf("writing '%s': %w", cmd, err)
	}
	return nil
}

func (c *Client) readLine(ctx context.Context, timeout time.Duration) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	if err := c.setDeadline(ctx, timeout); err != nil {
		return "", err
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	line = strings.TrimRight(line, "\r\n")
	c.logger.Debug("scpi read", slog.String("reply", line))

	return line, nil
}

// checkStatus reads the status byte and drains the error queue when the
// instrument flags an error.
func (c *Client) checkStatus(ctx context.Context, cmd string) error {
	if !c.statusChecking {
		return nil
	}

	if err := c.send(ctx, statusQuery); err != nil {
		return err
	}

	reply, err := c.readLine(ctx, c.timeout)
	if err != nil {
		return fmt.Errorf("reading status byte: %w", err)
	}

	stb, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return fmt.Errorf("invalid status byte %q: %w", reply, err)
	}
	if stb&errorQueueBit == 0 {
		return nil
	}

	if err = c.send(ctx, errorQuery); err != nil {
		return err
	}

	msg, err := c.readLine(ctx, c.timeout)
	if err != nil {
		return fmt.Errorf("reading error queue: %w", err)
	}

	return driver.NewInstrumentError(cmd, msg)
}

// exchange runs fn holding the connection. Cancelling ctx while fn is
// blocked on the socket expires the connection deadline, so a long *OPC?
// wait returns promptly with the context error.
func (c *Client) exchange(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		_ = c.conn.SetDeadline(time.Now())
	})

	err := fn()

	if !stop() {
		<-interrupted
		if err != nil && !errors.Is(err, ctx.Err()) {
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	}

	return err
}

// setDeadline applies the operation timeout, or the context deadline when
// it comes first.
func (c *Client) setDeadline(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	return c.conn.SetDeadline(deadline)
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
