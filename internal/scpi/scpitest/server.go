// Package scpitest provides an in-process fake network analyzer speaking
// the SCPI subset used by this module, for tests.
package scpitest

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

const (
	// DefaultIdentity is the *IDN? reply of the fake instrument
	DefaultIdentity = "Rohde-Schwarz,ZNB40-2Port,1311601062101071,3.45"

	// DefaultTouchstone is stored under the file name of every
	// MMEMory:STORe:TRACe:PORTs command
	DefaultTouchstone = `! fake ZNB export
# Hz S RI R 50
10000000000 0.10 -0.05 0.70 0.20 0.70 0.20 0.12 -0.04
12500000000 0.08 -0.02 0.65 0.25 0.65 0.25 0.10 -0.01
15000000000 0.05 0.01 0.60 0.30 0.60 0.30 0.07 0.02
`

	fileNotFound = `-256,"File name not found"`
)

// WithIdentity sets the identity string returned by *IDN?
func WithIdentity(id string) func(*Server) {
	return func(s *Server) {
		s.identity = id
	}
}

// Server is a fake instrument listening on a loopback port. It records every
// command it receives, except status and error queue polling, with the
// operation complete suffix removed.
type Server struct {
	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	identity string
	commands []string
	files    map[string][]byte
	failures map[string]string
	errQueue []string
	conns    int
	active   map[net.Conn]struct{}
}

// NewServer starts a fake instrument. It is closed on test cleanup.
func NewServer(t testing.TB, options ...func(*Server)) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("scpitest: listening: %v", err)
	}

	s := Server{
		ln:       ln,
		identity: DefaultIdentity,
		files:    make(map[string][]byte),
		failures: make(map[string]string),
		active:   make(map[net.Conn]struct{}),
	}

	for _, option := range options {
		option(&s)
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return &s
}

// Host returns the listening IP address
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening TCP port
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Addr returns "host:port"
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Commands returns the commands received so far
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Reset forgets the recorded commands
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = nil
}

// Connections returns the number of accepted connections
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conns
}

// SetFile stores a file in the fake instrument storage
func (s *Server) SetFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[name] = data
}

// File returns a file from the fake instrument storage
func (s *Server) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[name]
	return data, ok
}

// FailOn makes every command starting with prefix push message into the
// instrument error queue.
func (s *Server) FailOn(prefix, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[prefix] = message
}

// Close stops the listener, drops open connections and waits for the
// handlers to finish
func (s *Server) Close() {
	_ = s.ln.Close()

	s.mu.Lock()
	for conn := range s.active {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns++
		s.active[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.active, conn)
		s.mu.Unlock()

		_ = conn.Close()
	}()

	w := bufio.NewWriter(conn)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if reply, ok := s.process(line); ok {
			_, _ = w.WriteString(reply)
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

// process executes one command line and returns the reply, if any
func (s *Server) process(line string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, opc := strings.CutSuffix(line, ";*OPC?")

	switch {
	case cmd == "*OPC?":
		return "1\n", true

	case cmd == "*STB?":
		if len(s.errQueue) > 0 {
			return "4\n", true
		}
		return "0\n", true

	case cmd == "SYST:ERR:ALL?":
		if len(s.errQueue) == 0 {
			return "0,\"No error\"\n", true
		}
		reply := strings.Join(s.errQueue, ",")
		s.errQueue = nil
		return reply + "\n", true
	}

	s.commands = append(s.commands, cmd)

	for prefix, msg := range s.failures {
		if strings.HasPrefix(cmd, prefix) {
			s.errQueue = append(s.errQueue, msg)
		}
	}

	var reply string
	switch {
	case cmd == "*CLS":
		s.errQueue = nil

	case cmd == "*IDN?":
		reply = s.identity + "\n"

	case strings.HasPrefix(cmd, "MMEMory:STORe:TRACe:PORTs"):
		if name, ok := quoted(cmd, '"'); ok {
			s.files[name] = []byte(DefaultTouchstone)
		}

	case strings.HasPrefix(cmd, "MMEM:DATA?"):
		name, _ := quoted(cmd, '\'')
		data, ok := s.files[name]
		if !ok {
			s.errQueue = append(s.errQueue, fileNotFound)
		}
		size := strconv.Itoa(len(data))
		reply = fmt.Sprintf("#%d%s%s\n", len(size), size, data)

	case strings.HasSuffix(cmd, "?"):
		reply = "0\n"
	}

	if opc {
		reply += "1\n"
	}

	return reply, reply != ""
}

func quoted(s string, q byte) (string, bool) {
	start := strings.IndexByte(s, q)
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], q)
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}
