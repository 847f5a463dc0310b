// Package touchstone reads and writes Touchstone v1 S-parameter files and
// composes n-port networks from two-port measurements.
//
// Port numbers in the public API are one-based, matching the Sij naming.
package touchstone

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrSyntax is wrapped by every parse error
var ErrSyntax = errors.New("touchstone: syntax error")

// Network is a frequency domain S-parameter network
type Network struct {
	// Frequency holds the sweep points in Hz, ascending
	Frequency []float64

	// S holds one ports x ports matrix per frequency point, zero-based
	S [][][]complex128

	// Z0 is the reference impedance in ohms
	Z0 float64

	Comments []string
}

// NewNetwork allocates a network with zeroed S matrices
func NewNetwork(ports int, frequency []float64, z0 float64) *Network {
	s := make([][][]complex128, len(frequency))
	for k := range s {
		s[k] = make([][]complex128, ports)
		for i := range s[k] {
			s[k][i] = make([]complex128, ports)
		}
	}

	return &Network{
		Frequency: frequency,
		S:         s,
		Z0:        z0,
	}
}

// Ports returns the number of ports
func (n *Network) Ports() int {
	if len(n.S) == 0 {
		return 0
	}
	return len(n.S[0])
}

// Points returns the number of frequency points
func (n *Network) Points() int {
	return len(n.Frequency)
}

// Validate checks that every matrix is square and matches the frequency axis
func (n *Network) Validate() error {
	if len(n.Frequency) == 0 {
		return errors.New("network has no frequency points")
	}
	if len(n.S) != len(n.Frequency) {
		return fmt.Errorf("network has %d frequency points but %d matrices", len(n.Frequency), len(n.S))
	}

	ports := n.Ports()
	if ports < 1 {
		return errors.New("network has no ports")
	}

	for k, m := range n.S {
		if len(m) != ports {
			return fmt.Errorf("matrix %d has %d rows, want %d", k, len(m), ports)
		}
		for i, row := range m {
			if len(row) != ports {
				return fmt.Errorf("matrix %d row %d has %d columns, want %d", k, i, len(row), ports)
			}
		}
	}

	for k := 1; k < len(n.Frequency); k++ {
		if n.Frequency[k] <= n.Frequency[k-1] {
			return fmt.Errorf("frequency is not ascending at point %d", k)
		}
	}

	return nil
}

// Window returns the points with lo <= frequency <= hi. The result shares
// matrices with n.
func (n *Network) Window(lo, hi float64) *Network {
	out := &Network{Z0: n.Z0, Comments: n.Comments}
	for k, f := range n.Frequency {
		if f < lo || f > hi {
			continue
		}
		out.Frequency = append(out.Frequency, f)
		out.S = append(out.S, n.S[k])
	}
	return out
}

// At returns Sij at frequency point k
func (n *Network) At(k, i, j int) complex128 {
	return n.S[k][i-1][j-1]
}

// DB returns |Sij| in dB over the frequency axis. A zero magnitude is -Inf.
func (n *Network) DB(i, j int) []float64 {
	out := make([]float64, len(n.S))
	for k := range n.S {
		out[k] = 20 * math.Log10(cmplx.Abs(n.S[k][i-1][j-1]))
	}
	return out
}

// Trace is the magnitude of one S-parameter in dB
type Trace struct {
	Name string
	I, J int
	DB   []float64
}

// Range returns the finite minimum and maximum of the trace. ok is false
// when the trace holds no finite value.
func (t Trace) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range t.DB {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// Traces returns every Sij trace, row-major
func (n *Network) Traces() []Trace {
	ports := n.Ports()
	out := make([]Trace, 0, ports*ports)
	for i := 1; i <= ports; i++ {
		for j := 1; j <= ports; j++ {
			out = append(out, Trace{Name: TraceName(i, j), I: i, J: j, DB: n.DB(i, j)})
		}
	}
	return out
}

// TraceName returns the conventional name of Sij
func TraceName(i, j int) string {
	if i < 10 && j < 10 {
		return fmt.Sprintf("S%d%d", i, j)
	}
	return fmt.Sprintf("S%d,%d", i, j)
}
