package touchstone

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// frequencyTolerance is the relative difference under which two frequency
// points are considered equal
const frequencyTolerance = 1e-9

// Part is a two-port measurement between ports I and J of a larger network.
// Port 1 of the measurement maps to I and port 2 to J.
type Part struct {
	I, J    int
	Network *Network
}

// PairFromName derives the port pair from the last two digits of a file
// name, so "omt13.s2p" is the measurement between ports 1 and 3.
func PairFromName(name string) (int, int, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if len(base) < 2 {
		return 0, 0, fmt.Errorf("'%s' does not end with a port pair", name)
	}

	a, b := base[len(base)-2], base[len(base)-1]
	if a < '1' || a > '9' || b < '1' || b > '9' || a == b {
		return 0, 0, fmt.Errorf("'%s' does not end with a port pair", name)
	}

	return int(a - '0'), int(b - '0'), nil
}

// Compose builds a network with the given number of ports from two-port
// parts. All parts must share one frequency axis and reference impedance.
// A reflection term measured by more than one part is taken from the last.
// Transmission terms not covered by any part are zero.
func Compose(ports int, parts ...Part) (*Network, error) {
	if ports < 2 {
		return nil, fmt.Errorf("invalid port count %d", ports)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no parts to compose")
	}

	ref := parts[0].Network
	for idx, p := range parts {
		if p.Network == nil {
			return nil, fmt.Errorf("part %d has no network", idx+1)
		}
		if p.Network.Ports() != 2 {
			return nil, fmt.Errorf("part %d is a %d-port network, want 2", idx+1, p.Network.Ports())
		}
		if p.I < 1 || p.I > ports || p.J < 1 || p.J > ports || p.I == p.J {
			return nil, fmt.Errorf("part %d has invalid port pair (%d,%d)", idx+1, p.I, p.J)
		}
		if !sameAxis(ref.Frequency, p.Network.Frequency) {
			return nil, fmt.Errorf("part %d frequency axis differs from part 1", idx+1)
		}
		if p.Network.Z0 != ref.Z0 {
			return nil, fmt.Errorf("part %d reference impedance %g differs from %g", idx+1, p.Network.Z0, ref.Z0)
		}
	}

	freq := make([]float64, len(ref.Frequency))
	copy(freq, ref.Frequency)
	n := NewNetwork(ports, freq, ref.Z0)

	for _, p := range parts {
		i, j := p.I-1, p.J-1
		for k, m := range p.Network.S {
			n.S[k][i][i] = m[0][0]
			n.S[k][i][j] = m[0][1]
			n.S[k][j][i] = m[1][0]
			n.S[k][j][j] = m[1][1]
		}
	}

	return n, nil
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if math.Abs(a[k]-b[k]) > frequencyTolerance*math.Max(math.Abs(a[k]), math.Abs(b[k])) {
			return false
		}
	}
	return true
}
